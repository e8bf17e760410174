package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avstrong/hotelbooking/internal/booking"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Fields  any    `json:"fields,omitempty"`
}

type bookingResponse struct {
	Success    bool             `json:"success"`
	Booking    *booking.Booking `json:"booking"`
	PromoError string           `json:"promo_error,omitempty"`
}

type quoteResponse struct {
	Success bool           `json:"success"`
	Quote   *booking.Quote `json:"quote"`
}

type availabilityResponse struct {
	Success   bool   `json:"success"`
	RoomID    uint   `json:"room_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Available bool   `json:"available"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.l.LogErrorf("Could not encode response: %v", err.Error())
	}
}

// writeError maps domain errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, err error, action string) {
	if inputErr := booking.IsInputError(err); inputErr != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Success: false, Error: inputErr.Error(), Fields: inputErr.Fields()})

		return
	}

	if availabilityErr := booking.IsAvailabilityError(err); availabilityErr != nil {
		s.writeJSON(w, http.StatusPreconditionFailed, errorResponse{
			Success: false,
			Error:   availabilityErr.Error(),
			Fields:  availabilityErr.Fields(),
		})

		return
	}

	switch {
	case errors.Is(err, booking.ErrRecordNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Success: false, Error: "not found"}) //nolint:exhaustruct
	case errors.Is(err, booking.ErrInvalidTransition):
		s.writeJSON(w, http.StatusConflict, errorResponse{Success: false, Error: err.Error()}) //nolint:exhaustruct
	default:
		s.l.LogErrorf("Could not %s: %v", action, err.Error())
		//nolint:exhaustruct
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{
			Success: false,
			Error:   http.StatusText(http.StatusInternalServerError),
		})
	}
}

func (s *Server) writeBadRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Success: false, Error: msg}) //nolint:exhaustruct
}
