package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/avstrong/hotelbooking/internal/booking"
)

const maxBodyBytes = 1 << 20

type cancelRequest struct {
	Reason string `json:"reason"`
}

// decodeBody fills dst from the request body. An empty body leaves dst as is
// when the body is optional.
func decodeBody(r *http.Request, dst any, optional bool) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if errors.Is(err, io.EOF) && optional {
		return nil
	}

	if err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}

	return nil
}

func roomIDFromPath(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("room id %q: %w", r.PathValue("id"), ErrInvalidPath)
	}

	return uint(id), nil
}

func (s *Server) createBookingHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var input booking.BookInput

	if err := decodeBody(r, &input, false); err != nil {
		s.writeBadRequest(w, "request body must be a JSON booking")

		return
	}

	if idempotencyKey := r.Header.Get("Idempotency-Key"); idempotencyKey != "" {
		ctx = booking.NewContextWithIdempotencyKey(ctx, idempotencyKey)
	}

	out, err := s.bManager.BookRoom(ctx, &input)
	if err != nil {
		s.writeError(w, err, "book room")

		return
	}

	//nolint:exhaustruct
	resp := bookingResponse{Success: true, Booking: out.Booking}
	if out.PromoError != nil {
		resp.PromoError = out.PromoError.Error()
	}

	s.writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) getBookingHandler(w http.ResponseWriter, r *http.Request) {
	b, err := s.bManager.GetBooking(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err, "get booking")

		return
	}

	s.writeJSON(w, http.StatusOK, bookingResponse{Success: true, Booking: b}) //nolint:exhaustruct
}

func (s *Server) confirmBookingHandler(w http.ResponseWriter, r *http.Request) {
	var payment booking.PaymentInfo

	if err := decodeBody(r, &payment, true); err != nil {
		s.writeBadRequest(w, "request body must be a JSON payment")

		return
	}

	b, err := s.bManager.ConfirmBookingPayment(r.Context(), r.PathValue("id"), &payment)
	if err != nil {
		s.writeError(w, err, "confirm booking payment")

		return
	}

	s.writeJSON(w, http.StatusOK, bookingResponse{Success: true, Booking: b}) //nolint:exhaustruct
}

func (s *Server) cancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest

	if err := decodeBody(r, &req, true); err != nil {
		s.writeBadRequest(w, "request body must be a JSON cancellation")

		return
	}

	b, err := s.bManager.CancelBooking(r.Context(), r.PathValue("id"), req.Reason)
	if err != nil {
		s.writeError(w, err, "cancel booking")

		return
	}

	s.writeJSON(w, http.StatusOK, bookingResponse{Success: true, Booking: b}) //nolint:exhaustruct
}

func (s *Server) modifyBookingDatesHandler(w http.ResponseWriter, r *http.Request) {
	var change booking.DateChange

	if err := decodeBody(r, &change, false); err != nil {
		s.writeBadRequest(w, "request body must be a JSON date change")

		return
	}

	b, err := s.bManager.ModifyBookingDates(r.Context(), r.PathValue("id"), &change)
	if err != nil {
		s.writeError(w, err, "modify booking dates")

		return
	}

	s.writeJSON(w, http.StatusOK, bookingResponse{Success: true, Booking: b}) //nolint:exhaustruct
}

func (s *Server) roomPricingHandler(w http.ResponseWriter, r *http.Request) {
	roomID, err := roomIDFromPath(r)
	if err != nil {
		s.writeBadRequest(w, err.Error())

		return
	}

	q := r.URL.Query()

	quote, err := s.bManager.PriceRoom(r.Context(), roomID, q.Get("check_in"), q.Get("check_out"))
	if err != nil {
		s.writeError(w, err, "price room")

		return
	}

	s.writeJSON(w, http.StatusOK, quoteResponse{Success: true, Quote: quote})
}

func (s *Server) roomAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	roomID, err := roomIDFromPath(r)
	if err != nil {
		s.writeBadRequest(w, err.Error())

		return
	}

	q := r.URL.Query()
	checkIn, checkOut := q.Get("check_in"), q.Get("check_out")

	available, err := s.bManager.IsRoomAvailable(r.Context(), roomID, checkIn, checkOut)
	if err != nil {
		s.writeError(w, err, "check room availability")

		return
	}

	s.writeJSON(w, http.StatusOK, availabilityResponse{
		Success:   true,
		RoomID:    roomID,
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Available: available,
	})
}

func (s *Server) reloadReferenceHandler(w http.ResponseWriter, r *http.Request) {
	for _, loader := range s.loaders {
		if err := loader.Load(r.Context()); err != nil {
			s.writeError(w, err, "reload reference data")

			return
		}
	}

	s.l.LogInfo("Reference data reloaded")

	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) livenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addRoutes(r *http.ServeMux) {
	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"POST /api/bookings/v1", s.createBookingHandler},
		{"GET /api/bookings/v1/{id}", s.getBookingHandler},
		{"POST /api/bookings/v1/{id}/confirm", s.confirmBookingHandler},
		{"POST /api/bookings/v1/{id}/cancel", s.cancelBookingHandler},
		{"PATCH /api/bookings/v1/{id}/dates", s.modifyBookingDatesHandler},
		{"GET /api/rooms/v1/{id}/pricing", s.roomPricingHandler},
		{"GET /api/rooms/v1/{id}/availability", s.roomAvailabilityHandler},
		{"POST /api/reference/v1/reload", s.reloadReferenceHandler},
		{fmt.Sprintf("GET %s", s.conf.LivenessEndpoint), s.livenessHandler},
	}

	for _, route := range routes {
		r.Handle(
			route.pattern,
			s.applyMiddlewares(route.handler, s.loggerMiddleware(), s.recoverMiddleware()),
		)
	}
}
