package handlers

import (
	"net/http"
	"strconv"

	"github.com/jeadland/liam-loot-storefront/app"
	"github.com/jeadland/liam-loot-storefront/dispatch"
	"github.com/jeadland/liam-loot-storefront/middleware"
	"github.com/jeadland/liam-loot-storefront/models"
	"github.com/jeadland/liam-loot-storefront/router"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type StorefrontHandler struct {
	machine *app.Machine
	logger  *zap.Logger
}

func NewStorefrontHandler(machine *app.Machine, logger *zap.Logger) *StorefrontHandler {
	return &StorefrontHandler{
		machine: machine,
		logger:  logger,
	}
}

// GetView resolves a location fragment and returns the payload for the view
// it names, or a redirect fragment for the soft-correction cases.
func (h *StorefrontHandler) GetView(c *gin.Context) {
	ctx, span := otel.Tracer("storefront").Start(c.Request.Context(), "GetView")
	defer span.End()

	fragment := c.Query("fragment")
	route := router.Resolve(fragment)
	span.SetAttributes(
		attribute.String("route.fragment", fragment),
		attribute.String("route.view", route.Name),
	)

	result := dispatch.Dispatch(ctx, route, h.machine)
	c.JSON(http.StatusOK, result)
}

// AddCartLine appends a new line to the cart. Unknown product ids are a
// no-op, reported as such rather than an error.
func (h *StorefrontHandler) AddCartLine(c *gin.Context) {
	ctx, span := otel.Tracer("storefront").Start(c.Request.Context(), "AddCartLine")
	defer span.End()

	var req models.AddLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(attribute.String("product.id", req.ProductID))

	count, added := h.machine.AddToCart(ctx, req.ProductID, req.Qty, req.Selections)
	if added {
		middleware.RecordLineAdded()
	}
	c.JSON(http.StatusOK, gin.H{"added": added, "cartCount": count})
}

// RemoveCartLine removes the line at the given position; out-of-range
// indices leave the cart unchanged.
func (h *StorefrontHandler) RemoveCartLine(c *gin.Context) {
	ctx, span := otel.Tracer("storefront").Start(c.Request.Context(), "RemoveCartLine")
	defer span.End()

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid line index"})
		return
	}

	span.SetAttributes(attribute.Int("line.index", index))
	count := h.machine.RemoveLine(ctx, index)
	c.JSON(http.StatusOK, gin.H{"cartCount": count})
}

func (h *StorefrontHandler) ClearCart(c *gin.Context) {
	ctx, span := otel.Tracer("storefront").Start(c.Request.Context(), "ClearCart")
	defer span.End()

	h.machine.ClearCart(ctx)
	c.JSON(http.StatusOK, gin.H{"cartCount": 0})
}

// SetFilter toggles a catalog filter and returns the resulting active set.
func (h *StorefrontHandler) SetFilter(c *gin.Context) {
	var req models.FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filters := h.machine.SetFilter(req.ID)
	c.JSON(http.StatusOK, gin.H{"filters": filters})
}

func (h *StorefrontHandler) SelectOption(c *gin.Context) {
	var req models.SelectOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.machine.SelectOption(req.OptionID, req.ValueID)
	c.JSON(http.StatusOK, gin.H{"detail": h.machine.Detail()})
}

func (h *StorefrontHandler) AdjustQty(c *gin.Context) {
	var req models.AdjustQtyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	qty := h.machine.AdjustQty(req.Delta)
	c.JSON(http.StatusOK, gin.H{"qty": qty})
}

func (h *StorefrontHandler) UpdateCheckoutField(c *gin.Context) {
	var req models.CheckoutFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.machine.UpdateCheckoutField(req.Field, req.Value); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"values": h.machine.Checkout()})
}

// SubmitOrder runs checkout validation and, on success, records the order
// and directs the client to the confirmation view.
func (h *StorefrontHandler) SubmitOrder(c *gin.Context) {
	ctx, span := otel.Tracer("storefront").Start(c.Request.Context(), "SubmitOrder")
	defer span.End()

	order, err := h.machine.SubmitOrder(ctx)
	if err != nil {
		if app.IsValidationError(err) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to submit order", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	span.SetAttributes(attribute.String("order.code", order.OrderCode))
	middleware.RecordOrderSubmitted(string(order.PaymentMethod))
	c.JSON(http.StatusCreated, gin.H{"order": order, "redirect": "#/confirm"})
}

// SubmitCraft records a custom-item request from the craft view.
func (h *StorefrontHandler) SubmitCraft(c *gin.Context) {
	ctx, span := otel.Tracer("storefront").Start(c.Request.Context(), "SubmitCraft")
	defer span.End()

	var req models.CraftSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cr, err := h.machine.SubmitCraft(ctx, req.Name, req.ClassTeacher, req.Request)
	if err != nil {
		if app.IsValidationError(err) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to submit craft request", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	middleware.RecordCraftRequest()
	c.JSON(http.StatusCreated, gin.H{"craft": cr})
}
