package relay

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/chatrelay/pkg/storage"
	"github.com/papercomputeco/chatrelay/pkg/transcode"
	"github.com/papercomputeco/chatrelay/relay/header"
)

// handleFallback answers a backend that replied with one complete payload
// instead of a stream: exactly one token carrying the resolved reply.
func (r *Relay) handleFallback(c *fiber.Ctx, t *storage.Transcript, httpResp *http.Response, log *slog.Logger) error {
	body, err := readLimited(httpResp.Body, r.config.MaxBodyBytes)
	if err != nil {
		log.Error("failed to read upstream response", "error", err)
		return r.fail(c, t, storage.StatusUpstreamError, fiber.StatusInternalServerError, msgInternal)
	}

	reply, err := r.fallback.ExtractBytes(body)
	if err != nil {
		log.Error("upstream response is not json", "error", err)
		return r.fail(c, t, storage.StatusUpstreamError, fiber.StatusInternalServerError, msgInternal)
	}
	if reply == "" {
		reply = transcode.FallbackDefault
	}

	token, _ := transcode.Encode(reply)

	t.Reply = reply
	t.Records = 1
	t.Tokens = 1
	r.metrics.TokenForwarded()
	r.finish(t, storage.StatusCompleted, fiber.StatusOK, "")

	c.Set(fiber.HeaderContentType, header.TokenContentType)
	return c.Status(fiber.StatusOK).Send(token)
}
