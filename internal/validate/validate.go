// README: Request input types and their validation rules.
package validate

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"epsilon/internal/apperr"
)

// CoordinateInput is an optional pair of coordinates. Both must be present
// together; an address without them is geocoded on creation.
type CoordinateInput struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

type AddressInput struct {
	Name       string           `json:"name" validate:"required"`
	Coordinate *CoordinateInput `json:"coordinate"`
}

// WindowInput is the inclusive delivery window offered by the receiver.
type WindowInput struct {
	Earliest int64 `json:"earliest" validate:"required"`
	Latest   int64 `json:"latest" validate:"required"`
}

type OrderCreationInput struct {
	Expensive       bool         `json:"expensive"`
	Description     string       `json:"description" validate:"required,max=500"`
	PaymentType     string       `json:"paymentType" validate:"required,oneof=Cash MobilePay"`
	Cost            float64      `json:"cost" validate:"gte=0"`
	DeliveryPrice   float64      `json:"deliveryPrice" validate:"gte=0"`
	DeliveryWindow  *WindowInput `json:"deliveryTime"`
	DeliveryAddress AddressInput `json:"deliveryAddress" validate:"required"`
	PickupAddress   AddressInput `json:"pickupAddress" validate:"required"`
}

type BidPlacementInput struct {
	DeliveryPrice float64 `json:"deliveryPrice" validate:"gte=0"`
	DeliveryTime  int64   `json:"deliveryTime" validate:"required"`
}

type ReceiveInput struct {
	Rating *float64 `json:"rating" validate:"omitempty,rating"`
}

type LocationInput struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Validator wraps the validator instance with the coordinator's custom rules.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Ratings go from half a star to six stars in half-star steps.
	_ = v.RegisterValidation("rating", func(fl validator.FieldLevel) bool {
		r := fl.Field().Float()
		if r < 0.5 || r > 6.0 {
			return false
		}
		doubled := r * 2
		return doubled == math.Trunc(doubled)
	})

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		w := sl.Current().Interface().(WindowInput)
		if w.Earliest > w.Latest {
			sl.ReportError(w.Earliest, "Earliest", "earliest", "window", "")
			return
		}
		if w.Latest-w.Earliest < (15 * time.Minute).Milliseconds() {
			sl.ReportError(w.Latest, "Latest", "latest", "window15", "")
		}
	}, WindowInput{})

	return &Validator{v: v}
}

// Struct validates the input and converts failures to a bad-request error
// naming the first offending field.
func (val *Validator) Struct(input any) error {
	err := val.v.Struct(input)
	if err == nil {
		return nil
	}
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		return apperr.BadRequest("'%s' was invalid", errs[0].Field())
	}
	return apperr.BadRequest("invalid input")
}
