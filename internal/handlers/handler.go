// Package handlers exposes the order, customer, menu and restaurant HTTP APIs.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/imrishuroy/nomnomnow-orders/internal/tablestore"
)

const (
	msgInvalidJSON      = "Invalid JSON body"
	msgMethodNotAllowed = "Method not allowed"

	requestIDHeader = "X-Request-Id"
	requestIDKey    = "requestId"
)

// InvalidOrderSink receives rejected order submissions. Publish never fails from
// the caller's point of view.
type InvalidOrderSink interface {
	Publish(ctx context.Context, payload interface{}, violations []string, info map[string]interface{})
}

// HandlerConfig groups dependencies for the HTTP handlers.
type HandlerConfig struct {
	Orders      tablestore.Gateway
	Customers   tablestore.Gateway
	Menu        tablestore.Gateway
	Restaurants tablestore.Gateway
	Sink        InvalidOrderSink
	Logger      *slog.Logger
}

// NewRouter builds a gin engine with every route registered. middleware runs
// before recovery, so tracing sees panicking requests too.
func NewRouter(cfg HandlerConfig, middleware ...gin.HandlerFunc) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware...)
	r.Use(Recovery(logger), requestID())

	r.NoMethod(func(c *gin.Context) {
		writeJSON(c, http.StatusMethodNotAllowed, gin.H{"error": msgMethodNotAllowed})
	})
	r.NoRoute(func(c *gin.Context) {
		writeJSON(c, http.StatusNotFound, gin.H{"error": "Not found"})
	})

	// health
	r.GET("/health", func(c *gin.Context) {
		writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
	})

	RegisterRoutes(r, cfg)
	return r
}

// RegisterRoutes registers the order routes and one route group per entity resource.
func RegisterRoutes(r gin.IRouter, cfg HandlerConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	RegisterOrdersRoutes(r, cfg.Orders, cfg.Sink, logger)
	RegisterResourceRoutes(r, Customers, cfg.Customers, logger)
	RegisterResourceRoutes(r, Menu, cfg.Menu, logger)
	RegisterResourceRoutes(r, Restaurants, cfg.Restaurants, logger)
}

// Recovery turns a panic into the generic 500 response.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		msg := fmt.Sprint(rec)
		logger.Error("panic recovered",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("panic", msg),
		)
		writeJSON(c, http.StatusInternalServerError, gin.H{"error": msg})
		c.Abort()
	})
}

// requestID takes the caller's X-Request-Id or assigns a new one, and echoes it back.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// writeJSON is the only response writer used by the handlers.
func writeJSON(c *gin.Context, status int, body interface{}) {
	payload, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		payload = []byte(`{"error":"failed to encode response"}`)
	}
	c.Header("Access-Control-Allow-Origin", "*")
	c.Data(status, "application/json", payload)
}

// handlerFunc is a route body that reports unexpected failures as an error.
type handlerFunc func(c *gin.Context) error

// wrap converts a returned error into a logged 500 with the error text.
func wrap(logger *slog.Logger, fn handlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := fn(c); err != nil {
			logger.Error("request failed",
				slog.String("method", c.Request.Method),
				slog.String("path", c.Request.URL.Path),
				slog.String("request_id", c.GetString(requestIDKey)),
				slog.String("error", err.Error()),
			)
			writeJSON(c, http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
	}
}

// readBody returns the raw request body.
func readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return raw, nil
}

// readObject decodes the body as a JSON object. ok is false when the body is
// not valid JSON or not an object.
func readObject(c *gin.Context) (body map[string]interface{}, ok bool, err error) {
	raw, err := readBody(c)
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		return nil, false, nil
	}
	return body, true, nil
}

// requestURL reconstructs the absolute URL of the request when the host is known.
func requestURL(r *http.Request) string {
	if r.Host == "" {
		return r.URL.String()
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
