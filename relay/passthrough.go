package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/sse"
	"github.com/papercomputeco/chatrelay/relay/header"
)

// handlePassthrough serves the read-only push variant of the chat route: the
// backend's fake stream is copied to the client byte for byte. EventSource
// clients cannot set headers, so the token arrives as a query parameter.
func (r *Relay) handlePassthrough(c *fiber.Ctx) error {
	requestID := uuid.NewString()
	c.Set(header.RequestIDHeader, requestID)
	log := r.logger.With("request_id", requestID, "route", routeChat)

	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		r.metrics.RequestCompleted(routeChat, fiber.StatusUnauthorized)
		r.headerHandler.SetStreamHeaders(c, header.EventStreamContentType)
		return c.Status(fiber.StatusUnauthorized).SendString(tokenRequiredEvent)
	}

	ctx, cancel := context.WithCancel(context.Background())

	upstreamURL := r.config.UpstreamURL + r.config.FakeStreamPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, upstreamURL, nil)
	if err != nil {
		cancel()
		log.Error("failed to create upstream request", "error", err)
		return r.passthroughError(c, fiber.StatusInternalServerError, msgInternal)
	}
	r.headerHandler.SetUpstreamAuth(httpReq, token, requestID)

	httpResp, err := r.httpClient.Do(httpReq)
	if err != nil {
		cancel()
		log.Error("upstream request failed", "error", err)
		return r.passthroughError(c, fiber.StatusInternalServerError, msgInternal)
	}

	if !isSuccess(httpResp.StatusCode) {
		defer cancel()
		defer httpResp.Body.Close()

		msg := r.upstreamErrorMessage(httpResp.Body, r.chatErrors, msgFakeStreamFailed)
		log.Warn("upstream returned error", "status", httpResp.StatusCode, "error", msg)
		return r.passthroughError(c, httpResp.StatusCode, msg)
	}

	r.headerHandler.SetStreamHeaders(c, header.EventStreamContentType)

	pr, pw := io.Pipe()
	go func() {
		defer cancel()
		defer httpResp.Body.Close()

		endStream := r.metrics.StreamStarted()
		defer endStream()

		events, err := sse.NewTeeReader(httpResp.Body, pw).Drain()
		switch {
		case err == nil:
			pw.Close()
			log.Info("push stream completed", "events", events)
		case errors.Is(err, io.ErrClosedPipe):
			pw.Close()
			log.Info("client went away mid-stream", "events", events)
		default:
			pw.CloseWithError(err)
			log.Error("upstream stream failed", "error", err, "events", events)
		}
		r.metrics.RequestCompleted(routeChat, fiber.StatusOK)
	}()

	c.Status(fiber.StatusOK)
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

func (r *Relay) passthroughError(c *fiber.Ctx, status int, msg string) error {
	r.metrics.RequestCompleted(routeChat, status)
	return c.Status(status).JSON(llm.ErrorResponse{Error: msg})
}
