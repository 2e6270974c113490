package httpapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/evcharge/charging-stations-api/internal/app/bookings"
	"github.com/evcharge/charging-stations-api/internal/domain"
	"github.com/evcharge/charging-stations-api/internal/ports/out/idempotency"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	createBookingRoute   = "POST /bookings"
)

type bookingDTO struct {
	BookingID string    `json:"bookingId"`
	UserID    string    `json:"userId"`
	StationID string    `json:"stationId"`
	SlotFrom  string    `json:"slotFrom"`
	SlotTo    string    `json:"slotTo"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func bookingFromDomain(b domain.Booking) bookingDTO {
	return bookingDTO{
		BookingID: string(b.ID),
		UserID:    string(b.UserID),
		StationID: string(b.StationID),
		SlotFrom:  b.SlotFrom,
		SlotTo:    b.SlotTo,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt.UTC(),
	}
}

func bookingsFromDomain(bs []domain.Booking) []bookingDTO {
	out := make([]bookingDTO, 0, len(bs))
	for _, b := range bs {
		out = append(out, bookingFromDomain(b))
	}
	return out
}

type createBookingRequest struct {
	StationID string `json:"stationId"`
	SlotFrom  string `json:"slotFrom"`
	SlotTo    string `json:"slotTo"`
}

type cancelBookingDTO struct {
	BookingID string `json:"bookingId"`
	Status    string `json:"status"`
}

func (s *Server) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	bs, err := s.Bookings.ListForUser(r.Context(), id.Subject)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, bookingsFromDomain(bs))
}

// ListAllBookings is the operator view. The router gates it by group.
func (s *Server) ListAllBookings(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	bs, err := s.Bookings.ListAll(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, bookingsFromDomain(bs))
}

func (s *Server) CreateBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	body, ok := decodeCreateBooking(w, r)
	if !ok {
		return
	}

	// Idempotency handling:
	// - Replay if same subject+key+route+bodyHash
	// - Reject if same subject+key+route with different bodyHash (409)
	key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	useIdem := s.Idem != nil && key != ""
	var respFP idempotency.Fingerprint
	if useIdem {
		bodyHash, err := hashCreateBookingBody(body)
		if err != nil {
			writeUnexpected(w, r, err)
			return
		}
		metaFP := idempotency.Fingerprint{
			Key:      idempotency.Key(key),
			Subject:  id.Subject,
			Route:    createBookingRoute,
			BodyHash: "",
		}
		if meta, found, err := s.Idem.Get(r.Context(), metaFP); err != nil {
			writeUnexpected(w, r, err)
			return
		} else if found {
			if string(meta.Body) != bodyHash {
				writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
				return
			}
		} else if err := s.Idem.Put(r.Context(), metaFP, idempotency.Record{
			ContentType: "text/plain",
			Body:        []byte(bodyHash),
		}); err != nil {
			writeUnexpected(w, r, err)
			return
		}

		respFP = metaFP
		respFP.BodyHash = bodyHash
		if rec, found, err := s.Idem.Get(r.Context(), respFP); err != nil {
			writeUnexpected(w, r, err)
			return
		} else if found && rec.StatusCode == http.StatusCreated && strings.HasPrefix(rec.ContentType, "application/json") {
			w.Header().Set("Content-Type", rec.ContentType)
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.Body)
			return
		}
	}

	created, err := s.Bookings.Create(r.Context(), id.Subject, bookings.CreateInput{
		StationID: body.StationID,
		SlotFrom:  body.SlotFrom,
		SlotTo:    body.SlotTo,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	payload, err := json.Marshal(dataEnvelope{Code: http.StatusCreated, Data: bookingFromDomain(created)})
	if err != nil {
		writeUnexpected(w, r, err)
		return
	}
	payload = append(payload, '\n')
	if useIdem {
		// A failed write only costs the replay; the booking exists.
		_ = s.Idem.Put(r.Context(), respFP, idempotency.Record{
			StatusCode:  http.StatusCreated,
			ContentType: "application/json",
			Body:        payload,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(payload)
}

func (s *Server) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	bookingID, ok := bindPathParam(w, r, "bookingId")
	if !ok {
		return
	}
	cancelled, err := s.Bookings.Cancel(r.Context(), id.Subject, domain.BookingID(bookingID))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if !cancelled {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Booking not found", nil)
		return
	}
	writeData(w, http.StatusOK, cancelBookingDTO{
		BookingID: bookingID,
		Status:    string(domain.BookingStatusCancelled),
	})
}

// decodeCreateBooking reads the JSON body. Shape problems (bad JSON, wrong
// types, oversize body) are answered with 400 here; empty fields are left to
// the service.
func decodeCreateBooking(w http.ResponseWriter, r *http.Request) (createBookingRequest, bool) {
	var body createBookingRequest
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "request body too large", nil)
			return body, false
		}
		writeUnexpected(w, r, err)
		return body, false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "missing request body", nil)
		return body, false
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		var ute *json.UnmarshalTypeError
		if errors.As(err, &ute) && ute.Field != "" {
			writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid booking request", map[string]any{ute.Field: "must be a non-empty string"})
			return body, false
		}
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", nil)
		return body, false
	}
	return body, true
}

func hashCreateBookingBody(b createBookingRequest) (string, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
