package order

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"kainindo-be/internal/catalog"
	"kainindo-be/internal/logger"
	"kainindo-be/internal/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the order endpoints. Checkout and tracking are
// public, everything else sits behind the admin middleware.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup, admin ...gin.HandlerFunc) {
	orders := api.Group("/orders")

	orders.POST("", h.Create)
	orders.GET("/track/:phone", h.Track)

	guarded := orders.Group("", admin...)
	guarded.GET("", h.List)
	guarded.GET("/stats", h.Stats)
	guarded.GET("/export", h.Export)
	guarded.GET("/:id", h.Get)
	guarded.PUT("/:id", h.Update)
	guarded.PATCH("/:id/status", h.UpdateStatus)
	guarded.PATCH("/:id/notes", h.UpdateNotes)
	guarded.POST("/:id/items", h.AddItem)
	guarded.DELETE("/:id", h.Delete)
	guarded.POST("/bulk-delete", h.BulkDelete)
	guarded.POST("/bulk-update-status", h.BulkUpdateStatus)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	o, err := h.svc.CreateOrder(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	metrics.OrdersCreated.Inc()
	c.JSON(http.StatusCreated, o)
}

func (h *Handler) List(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	sort := SortKey(c.DefaultQuery("sort", string(SortNewest)))

	result, err := h.svc.ListOrders(c.Request.Context(), filter, sort, page, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) Stats(c *gin.Context) {
	from, err := parseDate(c.Query("startDate"), false)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid startDate"})
		return
	}
	to, err := parseDate(c.Query("endDate"), true)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid endDate"})
		return
	}

	stats, err := h.svc.GetStats(c.Request.Context(), from, to)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	o, err := h.svc.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, o)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	o, err := h.svc.UpdateOrder(c.Request.Context(), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, o)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	o, err := h.svc.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}

	metrics.StatusTransitions.WithLabelValues(req.Status).Inc()
	c.JSON(http.StatusOK, o)
}

func (h *Handler) UpdateNotes(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	var req UpdateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	o, err := h.svc.UpdateNotes(c.Request.Context(), id, req.Notes)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, o)
}

func (h *Handler) AddItem(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	o, err := h.svc.AddItem(c.Request.Context(), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, o)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteOrder(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "order deleted"})
}

func (h *Handler) BulkDelete(c *gin.Context) {
	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.svc.BulkDelete(c.Request.Context(), req.IDs)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) BulkUpdateStatus(c *gin.Context) {
	var req BulkUpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.svc.BulkUpdateStatus(c.Request.Context(), req.IDs, req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}

	metrics.StatusTransitions.WithLabelValues(req.Status).Add(float64(len(result.Applied)))
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Export(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := h.svc.Export(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (h *Handler) Track(c *gin.Context) {
	orders, err := h.svc.TrackByPhone(c.Request.Context(), c.Param("phone"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": orders})
}

func (h *Handler) orderID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return 0, false
	}
	return uint(id), true
}

// writeError maps domain errors onto the HTTP taxonomy. Anything
// unexpected is logged and surfaced as a generic failure.
func (h *Handler) writeError(c *gin.Context, err error) {
	var fieldErrs FieldErrors
	var stockErr *StockExceededError
	var statusErr *InvalidStatusError

	switch {
	case errors.As(err, &fieldErrs):
		c.JSON(http.StatusBadRequest, gin.H{"errors": fieldErrs})
	case errors.As(err, &statusErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": statusErr.Error()})
	case errors.Is(err, ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.Is(err, catalog.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":     stockErr.Error(),
			"remaining": stockErr.Remaining,
		})
	case errors.Is(err, ErrStatusLocked):
		c.JSON(http.StatusConflict, gin.H{"error": "order status is final"})
	default:
		logger.FromCtx(c.Request.Context()).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
	}
}

func parseFilter(c *gin.Context) (*Filter, error) {
	f := &Filter{}

	if v := c.Query("search"); v != "" {
		f.Search = &v
	}
	if v := c.Query("status"); v != "" {
		status := OrderStatus(v)
		f.Status = &status
	}

	var err error
	if f.StartDate, err = parseDate(c.Query("startDate"), false); err != nil {
		return nil, errors.New("invalid startDate")
	}
	if f.EndDate, err = parseDate(c.Query("endDate"), true); err != nil {
		return nil, errors.New("invalid endDate")
	}

	if v := c.Query("minAmount"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.New("invalid minAmount")
		}
		f.MinAmount = &n
	}
	if v := c.Query("maxAmount"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.New("invalid maxAmount")
		}
		f.MaxAmount = &n
	}

	return f, nil
}

// parseDate accepts either a calendar date or a full RFC3339 timestamp.
// A bare end date is promoted to 23:59:59.999 so the whole day stays
// inside the inclusive range.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}

	if t, err := time.Parse("2006-01-02", s); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Millisecond)
		}
		return &t, nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
