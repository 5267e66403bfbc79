package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers. Authentication is an external
// collaborator; handlers trust the caller-supplied user id.
type Handler struct {
	purchases *service.PurchaseService
	relations *service.RelationService
	ratings   *service.RatingService
}

// NewHandler creates a new HTTP handler
func NewHandler(purchases *service.PurchaseService, relations *service.RelationService, ratings *service.RatingService) *Handler {
	return &Handler{
		purchases: purchases,
		relations: relations,
		ratings:   ratings,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/purchases", h.createPurchase)
		v1.GET("/inventory/:id", h.getAvailable)
		v1.GET("/users/:id/purchases", h.getPurchases)
		v1.GET("/users/:id/purchases/:item_id", h.hasPurchased)
		v1.POST("/relations/toggle", h.toggleRelation)
		v1.GET("/relations", h.listRelations)
		v1.POST("/songs/:id/ratings", h.submitRating)
		v1.GET("/songs/:id/ratings/summary", h.getRatingSummary)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// PurchaseRequest is the inbound purchase payload
type PurchaseRequest struct {
	UserID   int64           `json:"user_id" binding:"required"`
	ItemKind models.ItemKind `json:"item_kind" binding:"required"`
	ItemID   int64           `json:"item_id" binding:"required"`
	Quantity int             `json:"quantity" binding:"required"`
}

// createPurchase handles purchase requests
func (h *Handler) createPurchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if !req.ItemKind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown item kind"})
		return
	}

	result, err := h.purchases.Purchase(c.Request.Context(), req.UserID, req.ItemKind, req.ItemID, req.Quantity)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	if result.Status == service.PurchaseStatusInsufficient {
		c.JSON(http.StatusConflict, gin.H{
			"status":    result.Status,
			"available": result.Remaining,
		})
		return
	}

	c.JSON(http.StatusCreated, result)
}

// getAvailable handles available-count queries
func (h *Handler) getAvailable(c *gin.Context) {
	itemID, ok := parseID(c, "id")
	if !ok {
		return
	}

	available, err := h.purchases.GetAvailable(c.Request.Context(), itemID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"item_id":   itemID,
		"available": available,
	})
}

// getPurchases handles purchase history queries
func (h *Handler) getPurchases(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}

	purchases, err := h.purchases.GetPurchases(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"purchases": purchases})
}

// hasPurchased reports whether a user has a recorded purchase of an item
func (h *Handler) hasPurchased(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	itemID, ok := parseID(c, "item_id")
	if !ok {
		return
	}

	purchased, err := h.purchases.HasPurchased(c.Request.Context(), userID, itemID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"purchased": purchased})
}

// ToggleRequest is the inbound relation toggle payload
type ToggleRequest struct {
	UserID int64               `json:"user_id" binding:"required"`
	ItemID int64               `json:"item_id" binding:"required"`
	Kind   models.RelationKind `json:"kind" binding:"required"`
}

// toggleRelation handles relation toggles
func (h *Handler) toggleRelation(c *gin.Context) {
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	outcome, err := h.relations.Toggle(c.Request.Context(), req.UserID, req.ItemID, req.Kind)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"outcome": outcome})
}

// listRelations handles relation listing
func (h *Handler) listRelations(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}
	kind := models.RelationKind(c.Query("kind"))

	items, err := h.relations.List(c.Request.Context(), userID, kind)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if items == nil {
		items = []int64{}
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// RatingRequest is the inbound rating payload. A missing comment clears
// any previously stored comment.
type RatingRequest struct {
	UserID  int64   `json:"user_id" binding:"required"`
	Rating  int     `json:"rating" binding:"required"`
	Comment *string `json:"comment,omitempty"`
}

// submitRating handles rating submissions
func (h *Handler) submitRating(c *gin.Context) {
	songID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req RatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	replaced, err := h.ratings.Submit(c.Request.Context(), req.UserID, songID, req.Rating, req.Comment)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if replaced {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"replaced": replaced})
}

// getRatingSummary handles rating aggregate queries
func (h *Handler) getRatingSummary(c *gin.Context) {
	songID, ok := parseID(c, "id")
	if !ok {
		return
	}

	agg, err := h.ratings.Aggregate(c.Request.Context(), songID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, agg)
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + param})
		return 0, false
	}
	return id, true
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrInvalidRelationKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyPurchased):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
