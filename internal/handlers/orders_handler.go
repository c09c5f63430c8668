package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/nomnomnow-orders/internal/orders"
	"github.com/imrishuroy/nomnomnow-orders/internal/tablestore"
	"github.com/imrishuroy/nomnomnow-orders/internal/validation"
)

type ordersHandler struct {
	store  *orders.Store
	sink   InvalidOrderSink
	logger *slog.Logger
}

// RegisterOrdersRoutes registers GET, POST and PUT on /orders.
func RegisterOrdersRoutes(r gin.IRouter, table tablestore.Gateway, sink InvalidOrderSink, logger *slog.Logger) {
	h := &ordersHandler{
		store:  orders.NewStore(table),
		sink:   sink,
		logger: logger,
	}
	r.GET("/orders", wrap(logger, h.search))
	r.POST("/orders", wrap(logger, h.create))
	r.PUT("/orders", wrap(logger, h.update))
}

func (h *ordersHandler) search(c *gin.Context) error {
	found, err := h.store.Search(c.Request.Context(), c.Query("area"), c.Query("customerId"), c.Query("orderId"))
	if err != nil {
		return err
	}
	writeJSON(c, http.StatusOK, found)
	return nil
}

func (h *ordersHandler) create(c *gin.Context) error {
	ctx := c.Request.Context()
	reqID := c.GetString(requestIDKey)

	raw, err := readBody(c)
	if err != nil {
		return err
	}

	var payload interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.publish(c, nil, []string{msgInvalidJSON}, map[string]interface{}{
			"raw_body":  string(raw),
			"requestId": reqID,
		})
		writeJSON(c, http.StatusBadRequest, gin.H{
			"error":   msgInvalidJSON,
			"message": "Invalid request logged to queue",
		})
		return nil
	}

	if ok, violations := validation.ValidateOrder(payload); !ok {
		h.logger.Warn("order rejected",
			slog.String("request_id", reqID),
			slog.Int("violations", len(violations)),
		)
		h.publish(c, payload, violations, map[string]interface{}{
			"url":       requestURL(c.Request),
			"method":    c.Request.Method,
			"requestId": reqID,
		})
		writeJSON(c, http.StatusBadRequest, gin.H{
			"error":            "Order validation failed",
			"validationErrors": violations,
			"message":          "Invalid order has been logged for review",
		})
		return nil
	}

	body := payload.(map[string]interface{})
	e, err := h.store.Create(ctx, body)
	if err != nil {
		return err
	}

	orderID := e.RowKey()
	h.logger.Info("order created",
		slog.String("order_id", orderID),
		slog.String("area", e.PartitionKey()),
		slog.String("request_id", reqID),
	)
	writeJSON(c, http.StatusOK, gin.H{
		"message": fmt.Sprintf("Order %s created successfully for customer %v in area %s",
			orderID, body[orders.FieldCustomerID], e.PartitionKey()),
		"orderId": orderID,
	})
	return nil
}

func (h *ordersHandler) update(c *gin.Context) error {
	ctx := c.Request.Context()

	body, ok, err := readObject(c)
	if err != nil {
		return err
	}
	if !ok {
		writeJSON(c, http.StatusBadRequest, gin.H{"error": msgInvalidJSON})
		return nil
	}

	orderID, _ := body[orders.FieldOrderID].(string)
	if strings.TrimSpace(orderID) == "" {
		writeJSON(c, http.StatusBadRequest, gin.H{"error": "orderId is required"})
		return nil
	}

	existing, err := h.store.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if existing == nil {
		writeJSON(c, http.StatusNotFound, gin.H{"error": "Order not found"})
		return nil
	}

	switch err := h.store.Update(ctx, existing, body); {
	case errors.Is(err, orders.ErrInvalidArea):
		writeJSON(c, http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil
	case errors.Is(err, tablestore.ErrNotFound):
		writeJSON(c, http.StatusNotFound, gin.H{"error": "Order not found"})
		return nil
	case err != nil:
		return err
	}

	writeJSON(c, http.StatusOK, gin.H{"message": fmt.Sprintf("Order %s updated", orderID)})
	return nil
}

func (h *ordersHandler) publish(c *gin.Context, payload interface{}, violations []string, info map[string]interface{}) {
	if h.sink == nil {
		h.logger.Error("no invalid order sink configured", slog.Int("violations", len(violations)))
		return
	}
	h.sink.Publish(c.Request.Context(), payload, violations, info)
}
