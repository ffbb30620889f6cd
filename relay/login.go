package relay

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"

	"github.com/papercomputeco/chatrelay/pkg/llm"
)

// handleLogin exchanges a username and password for the backend's bearer
// token. The relay never inspects the token; the backend's JSON is returned
// as is.
func (r *Relay) handleLogin(c *fiber.Ctx) error {
	var req llm.LoginRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return r.loginError(c, fiber.StatusBadRequest, msgInvalidBody)
	}
	if req.Username == "" || req.Password == "" {
		return r.loginError(c, fiber.StatusBadRequest, msgCredentialsRequired)
	}

	form := url.Values{}
	form.Set("username", req.Username)
	form.Set("password", req.Password)

	upstreamURL := r.config.UpstreamURL + r.config.LoginPath
	httpReq, err := http.NewRequestWithContext(c.Context(), http.MethodPost, upstreamURL, strings.NewReader(form.Encode()))
	if err != nil {
		r.logger.Error("failed to create login request", "error", err)
		return r.loginError(c, fiber.StatusInternalServerError, msgInternal)
	}
	httpReq.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	httpReq.Header.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)

	sent := r.now()
	httpResp, err := r.httpClient.Do(httpReq)
	r.metrics.ObserveUpstreamLatency(routeLogin, r.now().Sub(sent))
	if err != nil {
		r.logger.Error("login request failed", "error", err)
		return r.loginError(c, fiber.StatusInternalServerError, msgInternal)
	}
	defer httpResp.Body.Close()

	if !isSuccess(httpResp.StatusCode) {
		msg := r.upstreamErrorMessage(httpResp.Body, r.loginErrors, msgInvalidCredentials)
		r.logger.Warn("login rejected", "status", httpResp.StatusCode, "username", req.Username)
		return r.loginError(c, httpResp.StatusCode, msg)
	}

	body, err := readLimited(httpResp.Body, r.config.MaxBodyBytes)
	if err != nil || !gjson.ValidBytes(body) {
		r.logger.Error("unreadable login response", "error", err)
		return r.loginError(c, fiber.StatusInternalServerError, msgInternal)
	}

	r.metrics.RequestCompleted(routeLogin, fiber.StatusOK)
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(fiber.StatusOK).Send(body)
}

func (r *Relay) loginError(c *fiber.Ctx, status int, msg string) error {
	r.metrics.RequestCompleted(routeLogin, status)
	return c.Status(status).JSON(llm.ErrorResponse{Error: msg})
}
