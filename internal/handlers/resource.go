package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/imrishuroy/nomnomnow-orders/internal/tablestore"
	"github.com/imrishuroy/nomnomnow-orders/internal/validation"
)

// Column maps one JSON field of a resource to its table column.
type Column struct {
	Field   string
	Column  string
	Default interface{}
}

// Ceiling is an optional GET parameter that keeps rows whose Column is <= the
// numeric parameter value.
type Ceiling struct {
	Param  string
	Column string
}

// Resource describes a keyed entity served over the generic CRUD handlers.
// The partition key is always "area"; IDField is the row key.
type Resource struct {
	Name      string
	Path      string
	IDField   string
	IDColumn  string
	Columns   []Column
	Ceiling   *Ceiling
	Deletable bool
}

// Customers is the customer directory.
var Customers = Resource{
	Name:     "Customer",
	Path:     "/customers",
	IDField:  "customerId",
	IDColumn: "CustomerID",
	Columns: []Column{
		{Field: "address", Column: "Address", Default: ""},
		{Field: "name", Column: "Name", Default: ""},
		{Field: "lastName", Column: "LastName", Default: ""},
		{Field: "phone", Column: "Phone", Default: ""},
	},
}

// Menu lists dishes per area.
var Menu = Resource{
	Name:     "Dish",
	Path:     "/menu",
	IDField:  "dishId",
	IDColumn: "DishID",
	Columns: []Column{
		{Field: "name", Column: "Name", Default: ""},
		{Field: "description", Column: "Description", Default: ""},
		{Field: "price", Column: "Price", Default: 0},
		{Field: "restaurantId", Column: "RestaurantID", Default: ""},
		{Field: "imageURL", Column: "ImageURL", Default: ""},
		{Field: "isAvailable", Column: "IsAvailable", Default: true},
		{Field: "prepTime", Column: "PrepTime", Default: 0},
	},
	Ceiling:   &Ceiling{Param: "max_price", Column: "Price"},
	Deletable: true,
}

// Restaurants is the restaurant directory.
var Restaurants = Resource{
	Name:     "Restaurant",
	Path:     "/restaurants",
	IDField:  "restaurantId",
	IDColumn: "RestaurantID",
	Columns: []Column{
		{Field: "name", Column: "Name", Default: ""},
		{Field: "description", Column: "Description", Default: ""},
		{Field: "address", Column: "Address", Default: ""},
		{Field: "phone", Column: "Phone", Default: ""},
		{Field: "imageURL", Column: "ImageURL", Default: ""},
	},
}

type resourceHandler struct {
	res      Resource
	table    tablestore.Gateway
	validate *validatorv10.Validate
	logger   *slog.Logger
}

// RegisterResourceRoutes registers GET, POST, PUT (and DELETE when the
// resource allows it) on res.Path.
func RegisterResourceRoutes(r gin.IRouter, res Resource, table tablestore.Gateway, logger *slog.Logger) {
	h := &resourceHandler{
		res:      res,
		table:    table,
		validate: validation.New(),
		logger:   logger,
	}
	r.GET(res.Path, wrap(logger, h.search))
	r.POST(res.Path, wrap(logger, h.create))
	r.PUT(res.Path, wrap(logger, h.update))
	if res.Deletable {
		r.DELETE(res.Path, wrap(logger, h.delete))
	}
}

func (h *resourceHandler) search(c *gin.Context) error {
	var filters []tablestore.Filter
	if area := c.Query("area"); area != "" {
		filters = append(filters, tablestore.Eq(tablestore.PartitionKey, area))
	}
	if id := c.Query(h.res.IDField); id != "" {
		filters = append(filters, tablestore.Eq(tablestore.RowKey, id))
	}
	if ceil := h.res.Ceiling; ceil != nil {
		if raw := c.Query(ceil.Param); raw != "" {
			limit, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil || math.IsNaN(limit) {
				writeJSON(c, http.StatusBadRequest, gin.H{"error": ceil.Param + " must be a number"})
				return nil
			}
			filters = append(filters, tablestore.Le(ceil.Column, limit))
		}
	}

	rows, err := h.table.Query(c.Request.Context(), filters...)
	if err != nil {
		return fmt.Errorf("search %s: %w", strings.ToLower(h.res.Name), err)
	}

	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		out = append(out, h.project(row))
	}
	writeJSON(c, http.StatusOK, out)
	return nil
}

func (h *resourceHandler) project(row tablestore.Entity) map[string]interface{} {
	view := map[string]interface{}{
		"area":        row.PartitionKey(),
		h.res.IDField: row.RowKey(),
	}
	for _, col := range h.res.Columns {
		view[col.Field] = row[col.Column]
	}
	return view
}

func (h *resourceHandler) create(c *gin.Context) error {
	body, ok, err := readObject(c)
	if err != nil {
		return err
	}
	if !ok {
		writeJSON(c, http.StatusBadRequest, gin.H{"error": msgInvalidJSON})
		return nil
	}
	if err := validation.RequireKeys(h.validate, body, "area", h.res.IDField); err != nil {
		writeJSON(c, http.StatusBadRequest, gin.H{"error": fmt.Sprintf("area and %s are required", h.res.IDField)})
		return nil
	}

	area := body["area"].(string)
	id := body[h.res.IDField].(string)
	e := tablestore.Entity{
		tablestore.PartitionKey: area,
		tablestore.RowKey:       id,
		h.res.IDColumn:          id,
	}
	for _, col := range h.res.Columns {
		if v, present := body[col.Field]; present && v != nil {
			e[col.Column] = v
		} else {
			e[col.Column] = col.Default
		}
	}

	if err := h.table.Upsert(c.Request.Context(), e); err != nil {
		return fmt.Errorf("upsert %s: %w", strings.ToLower(h.res.Name), err)
	}
	writeJSON(c, http.StatusOK, gin.H{
		"message": fmt.Sprintf("%s %s created or updated in area %s", h.res.Name, id, area),
	})
	return nil
}

func (h *resourceHandler) update(c *gin.Context) error {
	ctx := c.Request.Context()

	body, id, existing, done, err := h.lookup(c)
	if done || err != nil {
		return err
	}

	fields := tablestore.Entity{}
	for _, col := range h.res.Columns {
		if v, present := body[col.Field]; present {
			fields[col.Column] = v
		}
	}

	if raw, present := body["area"]; present {
		area, isString := raw.(string)
		if !isString || strings.TrimSpace(area) == "" {
			writeJSON(c, http.StatusBadRequest, gin.H{"error": "area must be a non-empty string"})
			return nil
		}
		if area != existing.PartitionKey() {
			if err := tablestore.Move(ctx, h.table, existing, area, fields); err != nil {
				return err
			}
			writeJSON(c, http.StatusOK, gin.H{"message": fmt.Sprintf("%s %s updated", h.res.Name, id)})
			return nil
		}
	}

	fields[tablestore.PartitionKey] = existing.PartitionKey()
	fields[tablestore.RowKey] = existing.RowKey()
	if err := h.table.Merge(ctx, fields); err != nil {
		if errors.Is(err, tablestore.ErrNotFound) {
			h.notFound(c)
			return nil
		}
		return fmt.Errorf("update %s: %w", strings.ToLower(h.res.Name), err)
	}
	writeJSON(c, http.StatusOK, gin.H{"message": fmt.Sprintf("%s %s updated", h.res.Name, id)})
	return nil
}

func (h *resourceHandler) delete(c *gin.Context) error {
	_, id, existing, done, err := h.lookup(c)
	if done || err != nil {
		return err
	}
	if err := h.table.Delete(c.Request.Context(), existing.PartitionKey(), existing.RowKey()); err != nil {
		return fmt.Errorf("delete %s: %w", strings.ToLower(h.res.Name), err)
	}
	h.logger.Info("row deleted", slog.String("resource", h.res.Name), slog.String("id", id))
	writeJSON(c, http.StatusOK, gin.H{"message": fmt.Sprintf("%s %s deleted", h.res.Name, id)})
	return nil
}

// lookup decodes the body and finds the first row keyed by the resource id.
// done is true when a 4xx response has already been written.
func (h *resourceHandler) lookup(c *gin.Context) (body map[string]interface{}, id string, existing tablestore.Entity, done bool, err error) {
	body, ok, err := readObject(c)
	if err != nil {
		return nil, "", nil, false, err
	}
	if !ok {
		writeJSON(c, http.StatusBadRequest, gin.H{"error": msgInvalidJSON})
		return nil, "", nil, true, nil
	}

	id, _ = body[h.res.IDField].(string)
	if strings.TrimSpace(id) == "" {
		writeJSON(c, http.StatusBadRequest, gin.H{"error": h.res.IDField + " is required"})
		return nil, "", nil, true, nil
	}

	rows, err := h.table.Query(c.Request.Context(), tablestore.Eq(tablestore.RowKey, id))
	if err != nil {
		return nil, "", nil, false, fmt.Errorf("find %s: %w", strings.ToLower(h.res.Name), err)
	}
	if len(rows) == 0 {
		h.notFound(c)
		return nil, "", nil, true, nil
	}
	return body, id, rows[0], false, nil
}

func (h *resourceHandler) notFound(c *gin.Context) {
	writeJSON(c, http.StatusNotFound, gin.H{"error": h.res.Name + " not found"})
}
