package apperr

import (
	"errors"
	"net/http"
	"testing"
)

func TestErrorKindAndMessage(t *testing.T) {
	err := PaymentFailure("Error authorising payment: Was not accepted")

	if !errors.Is(err, ErrPaymentFailure) {
		t.Fatalf("expected payment failure kind")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("unexpected not-found kind")
	}
	if got := err.Error(); got != "Error authorising payment: Was not accepted" {
		t.Fatalf("message was altered: %q", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{NotFound("Order could not be found"), http.StatusNotFound},
		{Unauthorized("Credential was past its deadline"), http.StatusUnauthorized},
		{AdmissionRejected("User had already bid on order"), http.StatusBadRequest},
		{BadRequest("'rating' was invalid"), http.StatusBadRequest},
		{InvalidTransition("Order was not in the pending state"), http.StatusConflict},
		{Conflict("order state changed concurrently"), http.StatusConflict},
		{PaymentFailure("declined"), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
