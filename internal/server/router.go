// Package server exposes the webhook and the shared account view over plain
// HTTP for local runs.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"seafood-agent/internal/domain"
)

type Webhook interface {
	Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)
}

type Accounts interface {
	SharedAccount(ctx context.Context, token string) (domain.Customer, domain.Balance, error)
}

type RouterConfig struct {
	Webhook Webhook
	// Accounts may be nil when no relational store is configured.
	Accounts Accounts
	Log      *zap.Logger
}

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type accountView struct {
	Customer string         `json:"customer"`
	Balance  map[string]any `json:"balance"`
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthcheck", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if cfg.Webhook != nil {
		r.POST("/webhook", webhook(cfg.Webhook, log))
	}
	r.GET("/cuenta/:token", account(cfg.Accounts))
	return r
}

// webhook replays the HTTP request as an API Gateway proxy event.
func webhook(h Webhook, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_INPUT", err)
			return
		}
		headers := make(map[string]string, len(c.Request.Header))
		for k := range c.Request.Header {
			headers[k] = c.Request.Header.Get(k)
		}
		resp, err := h.Handle(c.Request.Context(), events.APIGatewayProxyRequest{
			HTTPMethod: c.Request.Method,
			Path:       c.Request.URL.Path,
			Headers:    headers,
			Body:       string(body),
		})
		if err != nil {
			log.Error("webhook handler failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err)
			return
		}
		for k, v := range resp.Headers {
			c.Header(k, v)
		}
		c.Data(resp.StatusCode, resp.Headers["Content-Type"], []byte(resp.Body))
	}
}

func account(accounts Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		if accounts == nil {
			respondError(c, http.StatusServiceUnavailable, "NOT_CONNECTED", errors.New("database not configured"))
			return
		}
		cust, bal, err := accounts.SharedAccount(c.Request.Context(), c.Param("token"))
		if errors.Is(err, domain.ErrNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", errors.New("link not found"))
			return
		}
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err)
			return
		}
		c.JSON(http.StatusOK, accountView{
			Customer: cust.Name,
			Balance: map[string]any{
				"bcv":         money(bal.BCV),
				"divisas":     money(bal.Divisas),
				"euroBcv":     money(bal.EuroBCV),
				"dualDivisas": money(bal.DualDivisas),
			},
		})
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, errorEnvelope{Error: apiError{Message: msg, Code: code}})
}
