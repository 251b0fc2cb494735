package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"ai-notetaking-client/internal/constant"
	"ai-notetaking-client/internal/dto"
	"ai-notetaking-client/internal/pkg/logger"
	"ai-notetaking-client/pkg/auth"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrStreamInFlight is returned by Start when a previous stream has not
// finished. There is no implicit queuing; the caller cancels first.
var ErrStreamInFlight = errors.New("a stream is already in flight")

// Controller opens the streaming request, feeds the response body through
// the frame decoder, and dispatches frames to the session. It exposes the
// three consumer-facing operations: Start, Cancel, Reset.
type Controller struct {
	baseURL    string
	httpClient *http.Client
	tokens     auth.TokenProvider
	session    *Session
	validate   *validator.Validate
	log        logger.ILogger
	tracer     trace.Tracer

	mu       sync.Mutex
	cancel   context.CancelFunc
	inFlight bool
	done     chan struct{}
}

func NewController(baseURL string, httpClient *http.Client, tokens auth.TokenProvider, session *Session, log logger.ILogger) *Controller {
	if httpClient == nil {
		// No client timeout: a stream stays open as long as the agent is
		// talking. Stalls are the caller's to cancel.
		httpClient = &http.Client{}
	}
	return &Controller{
		baseURL:    baseURL,
		httpClient: httpClient,
		tokens:     tokens,
		session:    session,
		validate:   validator.New(),
		log:        log,
		tracer:     otel.Tracer("ai-notetaking-client/stream"),
	}
}

// Session exposes the owned session for snapshot reads.
func (c *Controller) Session() *Session {
	return c.session
}

// Start validates the request, resets the session into streaming state, and
// launches the read loop. It returns once the stream is dispatched; use
// Wait or poll Snapshot for progress.
func (c *Controller) Start(ctx context.Context, conversationId uuid.UUID, request *dto.SendMessageRequest) error {
	if err := c.validate.Struct(request); err != nil {
		return fmt.Errorf("invalid stream request: %w", err)
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrStreamInFlight
	}
	streamCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.inFlight = true
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	c.session.Begin(request.Content)

	go c.run(streamCtx, conversationId, request, done)
	return nil
}

func (c *Controller) run(ctx context.Context, conversationId uuid.UUID, request *dto.SendMessageRequest, done chan struct{}) {
	defer close(done)
	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.cancel = nil
		c.mu.Unlock()
	}()

	ctx, span := c.tracer.Start(ctx, "stream.chat",
		trace.WithAttributes(attribute.String("conversation_id", conversationId.String())))
	defer span.End()

	startedAt := time.Now()
	if err := c.consume(ctx, conversationId, request); err != nil {
		c.session.Fail(err.Error())
		c.log.Error("StreamController", "stream terminated with transport error", map[string]interface{}{
			"conversation_id": conversationId.String(),
			"error":           err.Error(),
		})
	}

	span.SetAttributes(
		attribute.String("stream.status", string(c.session.Status())),
		attribute.Int64("stream.elapsed_ms", time.Since(startedAt).Milliseconds()),
	)
}

// consume issues the request and runs the read loop to termination. A nil
// return covers graceful closure and cancellation; any error is a transport
// failure the session should surface.
func (c *Controller) consume(ctx context.Context, conversationId uuid.UUID, request *dto.SendMessageRequest) error {
	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s%s/%s", c.baseURL, constant.StreamChatEndpoint, conversationId)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("resolve session token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		if isCancellation(ctx, err) {
			return nil
		}
		return fmt.Errorf("stream request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		resBody, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("stream error: status %d, body: %s", res.StatusCode, string(resBody))
	}

	decoder := NewFrameDecoder()
	buf := make([]byte, 4096)
	for {
		n, err := res.Body.Read(buf)
		if n > 0 {
			for _, frame := range decoder.Push(string(buf[:n])) {
				c.session.HandleFrame(frame)
			}
		}
		if err != nil {
			if err == io.EOF {
				for _, frame := range decoder.Flush() {
					c.session.HandleFrame(frame)
				}
				// Graceful closure without an explicit end frame still
				// counts as a completed stream.
				c.session.Complete()
				return nil
			}
			if isCancellation(ctx, err) {
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}
	}
}

// isCancellation tells a caller-initiated abort apart from a genuine
// transport failure. Cancellation is silent; it is not an error state.
func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}

// Cancel aborts the in-flight request and marks the session cancelled.
// Frames already applied stay visible; nothing is rewound.
func (c *Controller) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.session.MarkCancelled()
}

// Reset clears the session back to idle. Token estimates and duration
// survive until the next Start.
func (c *Controller) Reset() {
	c.session.Reset()
}

// Wait blocks until the current stream's read loop exits. Returns
// immediately if nothing is in flight.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Snapshot returns the current session state.
func (c *Controller) Snapshot() Snapshot {
	return c.session.Snapshot()
}
