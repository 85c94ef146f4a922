// README: Bid endpoints.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"epsilon/internal/apperr"
	"epsilon/internal/http/middleware"
	"epsilon/internal/modules/order"
	"epsilon/internal/validate"
)

type BidHandler struct {
	orders    *order.Service
	validator *validate.Validator
}

func NewBidHandler(orders *order.Service, validator *validate.Validator) *BidHandler {
	return &BidHandler{orders: orders, validator: validator}
}

func (h *BidHandler) Place(c *gin.Context) {
	var input validate.BidPlacementInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeError(c, apperr.BadRequest("Malformed input"))
		return
	}
	if err := h.validator.Struct(input); err != nil {
		writeError(c, err)
		return
	}

	placed, err := h.orders.PlaceBid(c.Request.Context(), order.PlaceBidCommand{
		OrderID:       c.Param("orderId"),
		UserID:        middleware.UserID(c),
		DeliveryPrice: input.DeliveryPrice,
		DeliveryTime:  input.DeliveryTime,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, placed)
}

func (h *BidHandler) Get(c *gin.Context) {
	b, err := h.orders.GetBid(c.Request.Context(), c.Param("bidId"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, b)
}

func (h *BidHandler) ListForOrder(c *gin.Context) {
	bids, err := h.orders.ListBids(c.Request.Context(), c.Param("orderId"), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, bids)
}
