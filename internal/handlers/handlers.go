// Package handlers exposes the business-object stores over HTTP.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pulsedigest/core/internal/bostore"
	"github.com/pulsedigest/core/internal/entity/selection"
	"github.com/pulsedigest/core/internal/realtime"
)

// Handler handles HTTP requests for the digest core
type Handler struct {
	resources []bostore.Resource
	selection *selection.Manager
	hub       *realtime.Hub
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler over the given entity stores.
func NewHandler(resources []bostore.Resource, sel *selection.Manager, hub *realtime.Hub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		resources: resources,
		selection: sel,
		hub:       hub,
		logger:    logger,
	}
}

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		for _, res := range h.resources {
			res := res
			group := api.Group("/" + res.Entity())
			{
				group.GET("", h.listEntities(res))
				group.POST("", h.createEntity(res))
				group.GET("/:id", h.getEntity(res))
				group.PUT("/:id", h.updateEntity(res))
				group.DELETE("/:id", h.deleteEntity(res))
			}
		}

		if h.selection != nil {
			sel := api.Group("/selection")
			{
				sel.GET("", h.GetSelection)
				sel.POST("/items", h.AddSelectionItem)
				sel.DELETE("/items", h.ClearSelection)
				sel.PUT("/items", h.ReplaceSelection)
				sel.DELETE("/items/:type/:id", h.RemoveSelectionItem)
				sel.POST("/toggle", h.ToggleSelectionItem)
				sel.POST("/reorder", h.ReorderSelection)
				sel.GET("/saved", h.ListSavedSelections)
				sel.POST("/saved", h.SaveSelection)
				sel.POST("/saved/:id/load", h.LoadSavedSelection)
				sel.DELETE("/saved/:id", h.DeleteSavedSelection)
			}
		}

		if h.hub != nil {
			rt := api.Group("/realtime")
			{
				rt.GET("/ws", h.hub.HandleWebSocket)
				rt.GET("/stats", h.GetRealtimeStats)
			}
		}
	}

	router.GET("/health", h.HealthCheck)
}

// Entity handlers

func (h *Handler) listEntities(res bostore.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := map[string]any{}
		for key, values := range c.Request.URL.Query() {
			if len(values) > 0 {
				filter[key] = parseQueryValue(values[0])
			}
		}
		items := res.Query(c.Request.Context(), filter)
		c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
	}
}

// parseQueryValue types a query-string value before it meets the schema
// filter. Numeric and boolean fields coerce a raw string to the field
// default, which would silently rewrite the filter, so "5" must arrive as
// the int 5.
func parseQueryValue(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func (h *Handler) createEntity(res bostore.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		var data map[string]any
		if err := c.ShouldBindJSON(&data); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		view, err := res.Create(c.Request.Context(), data)
		if err != nil {
			h.writeError(c, res.Entity(), "create", err)
			return
		}
		c.JSON(http.StatusCreated, view)
	}
}

func (h *Handler) getEntity(res bostore.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, ok := res.Get(c.Request.Context(), c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": res.Entity() + " not found"})
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func (h *Handler) updateEntity(res bostore.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		var partial map[string]any
		if err := c.ShouldBindJSON(&partial); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		view, err := res.Update(c.Request.Context(), c.Param("id"), partial)
		if err != nil {
			h.writeError(c, res.Entity(), "update", err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func (h *Handler) deleteEntity(res bostore.Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		removed, err := res.Delete(c.Request.Context(), c.Param("id"))
		if err != nil {
			h.writeError(c, res.Entity(), "delete", err)
			return
		}
		if !removed {
			c.JSON(http.StatusNotFound, gin.H{"error": res.Entity() + " not found"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *Handler) writeError(c *gin.Context, entity, operation string, err error) {
	switch {
	case errors.Is(err, bostore.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.Is(err, bostore.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": entity + " not found"})
	default:
		h.logger.Error("request failed",
			zap.String("entity", entity),
			zap.String("operation", operation),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "operation failed"})
	}
}

// Selection handlers

type selectionItemRequest struct {
	ID    string `json:"id" binding:"required"`
	Type  string `json:"type" binding:"required"`
	Title string `json:"title"`
}

func (r selectionItemRequest) item() selection.Item {
	return selection.Item{ID: r.ID, Type: r.Type, Title: r.Title}
}

// GetSelection returns the current selection and its summary.
func (h *Handler) GetSelection(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"items":   h.selection.Items(),
		"count":   h.selection.Count(),
		"by_type": h.selection.ByType(),
	})
}

// AddSelectionItem appends an item to the selection.
func (h *Handler) AddSelectionItem(c *gin.Context) {
	var req selectionItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id and type are required"})
		return
	}
	added := h.selection.Add(c.Request.Context(), req.item())
	c.JSON(http.StatusOK, gin.H{"added": added, "count": h.selection.Count()})
}

// RemoveSelectionItem drops one item from the selection.
func (h *Handler) RemoveSelectionItem(c *gin.Context) {
	removed := h.selection.Remove(c.Request.Context(), c.Param("id"), c.Param("type"))
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not selected"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": h.selection.Count()})
}

// ToggleSelectionItem flips an item's membership.
func (h *Handler) ToggleSelectionItem(c *gin.Context) {
	var req selectionItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id and type are required"})
		return
	}
	selected := h.selection.Toggle(c.Request.Context(), req.item())
	c.JSON(http.StatusOK, gin.H{"selected": selected, "count": h.selection.Count()})
}

// ReorderSelection moves an item between positions.
func (h *Handler) ReorderSelection(c *gin.Context) {
	var req struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	moved := h.selection.Reorder(c.Request.Context(), req.From, req.To)
	c.JSON(http.StatusOK, gin.H{"moved": moved, "items": h.selection.Items()})
}

// ClearSelection empties the selection.
func (h *Handler) ClearSelection(c *gin.Context) {
	h.selection.Clear(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// ReplaceSelection swaps the whole selection.
func (h *Handler) ReplaceSelection(c *gin.Context) {
	var req struct {
		Items []selectionItemRequest `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	items := make([]selection.Item, len(req.Items))
	for i, r := range req.Items {
		items[i] = r.item()
	}
	h.selection.Replace(c.Request.Context(), items)
	c.JSON(http.StatusOK, gin.H{"count": h.selection.Count()})
}

// SaveSelection snapshots the current selection under a name.
func (h *Handler) SaveSelection(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	snap, err := h.selection.Save(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save selection"})
		return
	}
	c.JSON(http.StatusCreated, snap)
}

// ListSavedSelections returns saved snapshots, newest first.
func (h *Handler) ListSavedSelections(c *gin.Context) {
	saved := h.selection.List(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"saved": saved, "count": len(saved)})
}

// LoadSavedSelection replaces the current selection with a snapshot.
func (h *Handler) LoadSavedSelection(c *gin.Context) {
	if !h.selection.Load(c.Request.Context(), c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "saved selection not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": h.selection.Items()})
}

// DeleteSavedSelection removes a snapshot.
func (h *Handler) DeleteSavedSelection(c *gin.Context) {
	if err := h.selection.DeleteSaved(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete saved selection"})
		return
	}
	c.Status(http.StatusNoContent)
}

// System handlers

// GetRealtimeStats reports hub connection counts.
func (h *Handler) GetRealtimeStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"connected_clients": h.hub.ConnectedClients()})
}

// HealthCheck reports liveness and per-entity collection sizes.
func (h *Handler) HealthCheck(c *gin.Context) {
	entities := make(map[string]int, len(h.resources))
	for _, res := range h.resources {
		entities[res.Entity()] = res.Local().Len()
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "entities": entities})
}
