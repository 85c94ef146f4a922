// README: Order endpoints: creation, reads, lifecycle actions, location.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"epsilon/internal/apperr"
	"epsilon/internal/http/middleware"
	"epsilon/internal/modules/order"
	"epsilon/internal/types"
	"epsilon/internal/validate"
)

type OrderHandler struct {
	orders    *order.Service
	validator *validate.Validator
}

func NewOrderHandler(orders *order.Service, validator *validate.Validator) *OrderHandler {
	return &OrderHandler{orders: orders, validator: validator}
}

func (h *OrderHandler) Create(c *gin.Context) {
	var input validate.OrderCreationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeError(c, apperr.BadRequest("Malformed input"))
		return
	}
	if err := h.validator.Struct(input); err != nil {
		writeError(c, err)
		return
	}

	cmd := order.CreateCommand{
		ReceiverID:      middleware.UserID(c),
		Expensive:       input.Expensive,
		Description:     input.Description,
		PaymentType:     input.PaymentType,
		Cost:            input.Cost,
		DeliveryPrice:   input.DeliveryPrice,
		PickupAddress:   toAddress(input.PickupAddress),
		DeliveryAddress: toAddress(input.DeliveryAddress),
	}
	if input.DeliveryWindow != nil {
		cmd.DeliveryWindow = &order.Window{
			Earliest: time.UnixMilli(input.DeliveryWindow.Earliest),
			Latest:   time.UnixMilli(input.DeliveryWindow.Latest),
		}
	}

	o, err := h.orders.Create(c.Request.Context(), cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, o)
}

func (h *OrderHandler) List(c *gin.Context) {
	views, err := h.orders.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, views)
}

func (h *OrderHandler) Get(c *gin.Context) {
	view, err := h.orders.Get(c.Request.Context(), c.Param("orderId"), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, view)
}

type orderChangeInput struct {
	Action string   `json:"action"`
	BidID  string   `json:"bidId"`
	Rating *float64 `json:"rating"`
}

// Change dispatches the lifecycle actions the receiver and the winning
// deliverer drive by hand. PickUp and Deliver have no branch here; those
// transitions only happen through location reports.
func (h *OrderHandler) Change(c *gin.Context) {
	var input orderChangeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeError(c, apperr.BadRequest("Malformed input"))
		return
	}

	ctx := c.Request.Context()
	orderID := c.Param("orderId")
	userID := middleware.UserID(c)

	switch input.Action {
	case "Accept":
		if input.BidID == "" {
			writeError(c, apperr.BadRequest("'bidId' had no value"))
			return
		}
		o, err := h.orders.AcceptBid(ctx, order.AcceptCommand{OrderID: orderID, BidID: input.BidID, UserID: userID})
		if err != nil {
			writeError(c, err)
			return
		}
		writeJSON(c, http.StatusOK, o)

	case "Cancel":
		o, u, err := h.orders.Cancel(ctx, order.CancelCommand{OrderID: orderID, UserID: userID})
		if err != nil {
			writeError(c, err)
			return
		}
		writeJSON(c, http.StatusOK, gin.H{"order": o, "user": u})

	case "Start":
		o, err := h.orders.Start(ctx, order.StartCommand{OrderID: orderID, UserID: userID})
		if err != nil {
			writeError(c, err)
			return
		}
		writeJSON(c, http.StatusOK, o)

	case "Receive":
		if err := h.validator.Struct(validate.ReceiveInput{Rating: input.Rating}); err != nil {
			writeError(c, err)
			return
		}
		o, err := h.orders.Receive(ctx, order.ReceiveCommand{OrderID: orderID, UserID: userID, Rating: input.Rating})
		if err != nil {
			writeError(c, err)
			return
		}
		writeJSON(c, http.StatusOK, o)

	default:
		writeError(c, apperr.BadRequest("'action' was not recognised"))
	}
}

func (h *OrderHandler) GetLocation(c *gin.Context) {
	view, err := h.orders.Get(c.Request.Context(), c.Param("orderId"), middleware.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, view.Location)
}

func (h *OrderHandler) UpdateLocation(c *gin.Context) {
	var input validate.LocationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeError(c, apperr.BadRequest("Malformed input"))
		return
	}
	if err := h.validator.Struct(input); err != nil {
		writeError(c, err)
		return
	}

	o, err := h.orders.ReportLocation(c.Request.Context(), order.ReportLocationCommand{
		OrderID: c.Param("orderId"),
		UserID:  middleware.UserID(c),
		Position: types.Coordinate{
			Latitude:  input.Latitude,
			Longitude: input.Longitude,
		},
	})
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func toAddress(in validate.AddressInput) types.Address {
	a := types.Address{Name: in.Name}
	if in.Coordinate != nil {
		a.Coordinate = types.Coordinate{
			Latitude:  in.Coordinate.Latitude,
			Longitude: in.Coordinate.Longitude,
		}
	}
	return a
}
