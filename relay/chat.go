package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/storage"
	"github.com/papercomputeco/chatrelay/pkg/transcode"
	"github.com/papercomputeco/chatrelay/relay/header"
)

// handleChat validates the client's conversation, forwards it to the backend
// and answers with the transcoded token stream.
func (r *Relay) handleChat(c *fiber.Ctx) error {
	t := r.newTranscript(routeChat)
	c.Set(header.RequestIDHeader, t.RequestID)
	log := r.logger.With("request_id", t.RequestID, "route", routeChat)

	token := header.BearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		return r.fail(c, t, storage.StatusRejected, fiber.StatusUnauthorized, msgTokenRequired)
	}

	var req llm.ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		log.Warn("invalid chat request body", "error", err)
		return r.fail(c, t, storage.StatusRejected, fiber.StatusBadRequest, msgInvalidBody)
	}
	t.Messages = req.Messages

	if len(req.Messages) == 0 {
		return r.fail(c, t, storage.StatusRejected, fiber.StatusBadRequest, msgMessagesRequired)
	}

	payload, err := json.Marshal(llm.UpstreamChatRequest{Messages: req.Messages, Stream: true})
	if err != nil {
		log.Error("failed to encode upstream request", "error", err)
		return r.fail(c, t, storage.StatusRejected, fiber.StatusInternalServerError, msgInternal)
	}

	// Use context.Background() instead of c.Context() because fasthttp recycles
	// its RequestCtx after the handler returns, but the stream is pumped by a
	// separate goroutine that needs the upstream connection to remain open.
	ctx, cancel := context.WithCancel(context.Background())

	upstreamURL := r.config.UpstreamURL + r.config.ChatPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, upstreamURL, bytes.NewReader(payload))
	if err != nil {
		cancel()
		log.Error("failed to create upstream request", "error", err)
		return r.fail(c, t, storage.StatusUpstreamError, fiber.StatusInternalServerError, msgInternal)
	}

	r.headerHandler.SetUpstreamRequestHeaders(c, httpReq)
	httpReq.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	r.headerHandler.SetUpstreamAuth(httpReq, token, t.RequestID)

	log.Debug("forwarding chat to upstream",
		"url", upstreamURL,
		"message_count", len(req.Messages),
	)

	sent := r.now()
	httpResp, err := r.httpClient.Do(httpReq)
	r.metrics.ObserveUpstreamLatency(routeChat, r.now().Sub(sent))
	if err != nil {
		cancel()
		log.Error("upstream request failed", "error", err)
		return r.fail(c, t, storage.StatusUpstreamError, fiber.StatusInternalServerError, msgInternal)
	}

	if !isSuccess(httpResp.StatusCode) {
		defer cancel()
		defer httpResp.Body.Close()

		msg := r.upstreamErrorMessage(httpResp.Body, r.chatErrors, msgChatFailed)
		log.Warn("upstream returned error",
			"status", httpResp.StatusCode,
			"error", msg,
		)
		return r.fail(c, t, storage.StatusUpstreamError, httpResp.StatusCode, msg)
	}

	if !header.IsStreaming(httpResp.Header.Get(fiber.HeaderContentType)) {
		defer cancel()
		defer httpResp.Body.Close()
		return r.handleFallback(c, t, httpResp, log)
	}

	t.Streaming = true
	r.headerHandler.SetStreamHeaders(c, header.TokenContentType)

	// pw.Write blocks until fasthttp has read the previous token from the
	// pipe and flushed it to the socket, so the client's pace bounds the
	// upstream reads.
	pr, pw := io.Pipe()
	go r.pump(ctx, cancel, httpResp, pw, t, log)

	// Unknown size (-1) selects chunked transfer encoding.
	c.Status(fiber.StatusOK)
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// pump transcodes the upstream body into pw until either side ends, then
// releases the upstream and records the exchange.
func (r *Relay) pump(ctx context.Context, cancel context.CancelFunc, httpResp *http.Response, pw *io.PipeWriter, t *storage.Transcript, log *slog.Logger) {
	defer cancel()
	defer httpResp.Body.Close()

	endStream := r.metrics.StreamStarted()
	defer endStream()

	tc := transcode.NewTranscoder(transcode.Options{
		FlushTrailing: r.config.FlushTrailing,
		Collect:       true,
		Logger:        log,
		Observer:      r.metrics,
	})

	res, err := tc.Run(ctx, httpResp.Body, pw)

	t.Reply = res.Text
	t.Records = res.Records
	t.Tokens = res.Tokens
	t.Skipped = res.Skipped

	switch {
	case err == nil:
		pw.Close()
		r.finish(t, storage.StatusCompleted, fiber.StatusOK, "")
	case errors.Is(err, transcode.ErrDownstreamClosed):
		pw.Close()
		log.Info("client went away mid-stream", "tokens", res.Tokens)
		r.finish(t, storage.StatusClientGone, fiber.StatusOK, err.Error())
	default:
		pw.CloseWithError(err)
		log.Error("upstream stream failed", "error", err, "tokens", res.Tokens)
		r.finish(t, storage.StatusUpstreamError, fiber.StatusOK, err.Error())
	}
}
