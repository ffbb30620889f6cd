// Package relay provides the chat relay: it forwards a client's conversation
// to the chat backend and transcodes the backend's NDJSON stream into the
// token protocol the client consumes, recording every exchange as a
// transcript.
package relay

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/metrics"
	"github.com/papercomputeco/chatrelay/pkg/storage"
	"github.com/papercomputeco/chatrelay/pkg/transcode"
	"github.com/papercomputeco/chatrelay/relay/header"
	"github.com/papercomputeco/chatrelay/relay/worker"
)

const (
	routeChat    = "/api/chat"
	routeLogin   = "/api/login"
	routeHealth  = "/health"
	routeMetrics = "/metrics"
)

// Relay is a chat relay between clients and a chat backend.
// Finished exchanges are enqueued for async storage via its worker pool.
type Relay struct {
	config        Config
	workerPool    *worker.Pool
	logger        *slog.Logger
	httpClient    *http.Client
	server        *fiber.App
	headerHandler *header.Handler
	metrics       *metrics.Metrics

	// fallback resolves the reply of a single-payload backend answer.
	fallback *transcode.Extractor

	// chatErrors and loginErrors resolve the message of a backend error body.
	chatErrors  *transcode.Extractor
	loginErrors *transcode.Extractor

	now func() time.Time
}

// New creates a new Relay.
// The driver is injected to handle async persistence of transcripts.
func New(config Config, driver storage.Driver, logger *slog.Logger) (*Relay, error) {
	if config.UpstreamURL == "" {
		return nil, errors.New("upstream URL is required")
	}
	config.applyDefaults()

	if logger == nil {
		logger = slog.Default()
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	wp, err := worker.NewPool(&worker.Config{
		Driver:    driver,
		Publisher: config.Publisher,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	r := &Relay{
		config:        config,
		workerPool:    wp,
		logger:        logger,
		server:        app,
		headerHandler: header.NewHandler(),
		metrics:       config.Metrics,
		fallback:      transcode.NewExtractor(transcode.FallbackPaths...),
		chatErrors:    transcode.NewExtractor("message", "detail", "error"),
		loginErrors:   transcode.NewExtractor("message", "detail"),
		httpClient: &http.Client{
			// Chat replies can be slow; the timeout covers the whole stream.
			Timeout: config.Timeout,
		},
		now: time.Now,
	}

	app.Post(routeChat, r.handleChat)
	app.Get(routeChat, r.handlePassthrough)
	app.Post(routeLogin, r.handleLogin)
	app.Get(routeHealth, r.handleHealth)
	app.Get(routeMetrics, adaptor.HTTPHandler(r.metrics.Handler()))

	return r, nil
}

// Run starts the relay server on the given listening address
func (r *Relay) Run() error {
	r.logger.Info("starting relay server",
		"listen", r.config.ListenAddr,
		"upstream", r.config.UpstreamURL,
	)

	return r.server.Listen(r.config.ListenAddr)
}

// RunWithListener starts the relay server using the provided listener.
func (r *Relay) RunWithListener(listener net.Listener) error {
	r.logger.Info("starting relay server",
		"listen", listener.Addr().String(),
		"upstream", r.config.UpstreamURL,
	)

	return r.server.Listener(listener)
}

// Close stops accepting connections and waits for the worker pool to drain.
func (r *Relay) Close() error {
	err := r.server.Shutdown()
	r.workerPool.Close()
	return err
}

func (r *Relay) handleHealth(c *fiber.Ctx) error {
	r.metrics.RequestCompleted(routeHealth, fiber.StatusOK)
	return c.JSON(fiber.Map{"status": "ok"})
}

// newTranscript starts the record of one exchange on route.
func (r *Relay) newTranscript(route string) *storage.Transcript {
	return &storage.Transcript{
		ID:        uuid.NewString(),
		RequestID: uuid.NewString(),
		Route:     route,
		StartedAt: r.now(),
	}
}

// finish closes the transcript, counts the request and hands the transcript
// to the worker pool.
func (r *Relay) finish(t *storage.Transcript, status storage.Status, httpStatus int, errMsg string) {
	t.Status = status
	t.HTTPStatus = httpStatus
	t.Error = errMsg
	t.CompletedAt = r.now()

	r.metrics.RequestCompleted(t.Route, httpStatus)

	r.logger.Info("relay finished",
		"request_id", t.RequestID,
		"route", t.Route,
		"status", t.Status,
		"http_status", httpStatus,
		"streaming", t.Streaming,
		"records", t.Records,
		"tokens", t.Tokens,
		"skipped", t.Skipped,
		"duration", t.Duration(),
	)

	r.workerPool.Enqueue(worker.Job{Transcript: t})
}

// fail answers with an error payload and records the exchange.
func (r *Relay) fail(c *fiber.Ctx, t *storage.Transcript, status storage.Status, httpStatus int, msg string) error {
	r.finish(t, status, httpStatus, msg)
	return c.Status(httpStatus).JSON(llm.ErrorResponse{Error: msg})
}

// upstreamErrorMessage resolves a client-facing message from a backend error
// body, or returns fallback when the body carries none.
func (r *Relay) upstreamErrorMessage(body io.Reader, fields *transcode.Extractor, fallback string) string {
	data, err := readLimited(body, r.config.MaxBodyBytes)
	if err != nil || !gjson.ValidBytes(data) {
		return fallback
	}
	if msg := fields.Resolve(gjson.ParseBytes(data)); msg != "" {
		return msg
	}
	return fallback
}

// readLimited reads all of body, failing with ErrBodyTooLarge past limit bytes.
func readLimited(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
