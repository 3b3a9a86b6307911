package intent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"seafood-agent/internal/domain"
	"seafood-agent/internal/quote"
)

const (
	defaultTimeout  = 25 * time.Second
	fallbackMessage = "Disculpa, no pude procesar tu mensaje en este momento. ¿Puedes intentarlo de nuevo en un momento?"
)

// LLM is the text-completion collaborator. Errors carrying an HTTP status
// expose it through HTTPStatusCode.
type LLM interface {
	Chat(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type Router struct {
	llm     LLM
	log     *zap.Logger
	timeout time.Duration
	delays  []time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
}

type Option func(*Router)

// WithTimeout bounds a whole classification, retries included.
func WithTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRetryDelays sets the wait before each retry; its length is the
// number of retries.
func WithRetryDelays(delays ...time.Duration) Option {
	return func(r *Router) {
		r.delays = delays
	}
}

func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Router) {
		r.sleep = sleep
	}
}

func NewRouter(llm LLM, log *zap.Logger, opts ...Option) (*Router, error) {
	if llm == nil {
		return nil, errors.New("intent: llm must not be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &Router{
		llm:     llm,
		log:     log.With(zap.String("component", "intent_router")),
		timeout: defaultTimeout,
		delays:  []time.Duration{time.Second, 2 * time.Second},
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Classify never fails: when the collaborator cannot produce a valid result
// within the retry budget it returns a general chat intent with confidence 0
// and an apology.
func (r *Router) Classify(ctx context.Context, text string, history []domain.ChatTurn) Result {
	messages := buildMessages(classifyPrompt(), history, text)
	var out Result
	err := r.call(ctx, messages, func(raw string) error {
		res, err := DecodeResult(raw)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		r.log.Error("classification failed", zap.Error(err))
		return Result{Intent: Chat{}, Confidence: 0, Message: fallbackMessage}
	}
	return out
}

// Extract turns free text into line items matched against products.
func (r *Router) Extract(ctx context.Context, text string, products []string) (quote.Extraction, error) {
	messages := buildMessages(extractPrompt(products), nil, text)
	var out quote.Extraction
	err := r.call(ctx, messages, func(raw string) error {
		ex, err := DecodeExtraction(raw)
		if err != nil {
			return err
		}
		out = ex
		return nil
	})
	if err != nil {
		return quote.Extraction{}, fmt.Errorf("intent: extract items: %w", err)
	}
	return out, nil
}

// call runs one completion with linear-backoff retries on overload statuses
// and malformed responses.
func (r *Router) call(ctx context.Context, messages []domain.ChatMessage, decode func(string) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= len(r.delays); attempt++ {
		if attempt > 0 {
			if err := r.sleep(ctx, r.delays[attempt-1]); err != nil {
				return fmt.Errorf("intent: wait for retry: %w (last error: %v)", err, lastErr)
			}
		}
		raw, err := r.llm.Chat(ctx, messages)
		if err == nil {
			err = decode(raw)
		}
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) {
			return err
		}
		r.log.Warn("classifier call failed, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return lastErr
}

func retryable(err error) bool {
	if errors.Is(err, ErrMalformed) {
		return true
	}
	var sc httpStatusCoder
	if !errors.As(err, &sc) {
		return false
	}
	switch sc.HTTPStatusCode() {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, 529:
		return true
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
