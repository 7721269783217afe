package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/adapters/cloudinary"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/config"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/domain"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/idempotency"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/inventory"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/ledger"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/observability"
)

const maxImageBytes = 10 << 20

type Handlers struct {
	cfg       *config.Config
	inventory *inventory.Service
	ledger    *ledger.Service
	uploader  *cloudinary.Uploader
	idemp     *idempotency.Idempotency
	logger    observability.Logger
}

func NewHandlers(cfg *config.Config, inv *inventory.Service, led *ledger.Service, uploader *cloudinary.Uploader, idemp *idempotency.Idempotency, logger observability.Logger) *Handlers {
	return &Handlers{
		cfg:       cfg,
		inventory: inv,
		ledger:    led,
		uploader:  uploader,
		idemp:     idemp,
		logger:    logger,
	}
}

type roomPayload struct {
	HotelName string   `json:"hotel_name"`
	Location  string   `json:"location"`
	RoomType  string   `json:"room_type"`
	Price     int64    `json:"price"`
	Images    []string `json:"images"`
	Available *bool    `json:"available"`
}

type roomResponse struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	HotelName string    `json:"hotel_name"`
	Location  string    `json:"location"`
	RoomType  string    `json:"room_type"`
	Price     int64     `json:"price"`
	Images    []string  `json:"images"`
	Available bool      `json:"available"`
}

func toRoomResponse(room domain.Room) roomResponse {
	return roomResponse{
		ID:        room.ID,
		OwnerID:   room.OwnerID,
		HotelName: room.HotelName,
		Location:  room.Location,
		RoomType:  string(room.RoomType),
		Price:     room.Price,
		Images:    room.Images,
		Available: room.Available,
	}
}

type bookingPayload struct {
	RoomID      uuid.UUID `json:"room_id"`
	GuestName   string    `json:"guest_name"`
	GuestAge    int       `json:"guest_age"`
	GuestGender string    `json:"guest_gender"`
	BookingDate string    `json:"booking_date"`
	LeavingDate string    `json:"leaving_date"`
}

type bookingResponse struct {
	ID          uuid.UUID `json:"id"`
	RoomID      uuid.UUID `json:"room_id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	GuestName   string    `json:"guest_name"`
	GuestAge    int       `json:"guest_age"`
	GuestGender string    `json:"guest_gender"`
	BookingDate string    `json:"booking_date"`
	LeavingDate string    `json:"leaving_date"`
	Status      string    `json:"status"`
	Archived    bool      `json:"archived"`
}

func toBookingResponse(b domain.Booking) bookingResponse {
	return bookingResponse{
		ID:          b.ID,
		RoomID:      b.RoomID,
		CustomerID:  b.CustomerID,
		GuestName:   b.Guest.Name,
		GuestAge:    b.Guest.Age,
		GuestGender: b.Guest.Gender,
		BookingDate: b.BookingDate.Format(time.DateOnly),
		LeavingDate: b.LeavingDate.Format(time.DateOnly),
		Status:      string(b.Status),
		Archived:    b.Archived,
	}
}

type customerBookingRow struct {
	ID          uuid.UUID `json:"id"`
	RoomID      uuid.UUID `json:"room_id"`
	HotelName   string    `json:"hotel_name"`
	RoomType    string    `json:"room_type"`
	Location    string    `json:"location"`
	Price       int64     `json:"price"`
	ImageURL    string    `json:"image_url"`
	GuestName   string    `json:"guest_name"`
	GuestAge    int       `json:"guest_age"`
	GuestGender string    `json:"guest_gender"`
	BookingDate string    `json:"booking_date"`
	LeavingDate string    `json:"leaving_date"`
	Status      string    `json:"status"`
}

type sellerBookingRow struct {
	BookingID   uuid.UUID `json:"booking_id"`
	RoomID      uuid.UUID `json:"room_id"`
	HotelName   string    `json:"hotel_name"`
	RoomType    string    `json:"room_type"`
	Location    string    `json:"location"`
	Price       int64     `json:"price"`
	RoomImage   string    `json:"room_image"`
	GuestName   string    `json:"guest_name"`
	GuestAge    int       `json:"guest_age"`
	GuestGender string    `json:"guest_gender"`
	BookingDate string    `json:"booking_date"`
	LeavingDate string    `json:"leaving_date"`
	Status      string    `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidState):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

func (h *Handlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthenticated)
		return
	}

	var req roomPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	room, err := h.inventory.CreateRoom(r.Context(), identity, domain.RoomAttrs{
		HotelName: req.HotelName,
		Location:  req.Location,
		RoomType:  domain.RoomType(req.RoomType),
		Price:     req.Price,
		Images:    req.Images,
		Available: req.Available,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoomResponse(*room))
}

func (h *Handlers) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthenticated)
		return
	}
	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req roomPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	room, err := h.inventory.UpdateRoom(r.Context(), identity, roomID, domain.RoomAttrs{
		HotelName: req.HotelName,
		Location:  req.Location,
		RoomType:  domain.RoomType(req.RoomType),
		Price:     req.Price,
		Images:    req.Images,
		Available: req.Available,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRoomResponse(*room))
}

func (h *Handlers) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthenticated)
		return
	}
	roomID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.inventory.DeleteRoom(r.Context(), identity, roomID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ListAvailableRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.inventory.ListAllAvailable(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]roomResponse, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomResponse(room))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rooms": out})
}

func (h *Handlers) ListMyRooms(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthenticated)
		return
	}
	rooms, err := h.inventory.ListRoomsByOwner(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]roomResponse, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomResponse(room))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rooms": out})
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthenticated)
		return
	}

	var req bookingPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	bookingDate, err := time.Parse(time.DateOnly, req.BookingDate)
	if err != nil {
		http.Error(w, "invalid booking_date", http.StatusBadRequest)
		return
	}
	leavingDate, err := time.Parse(time.DateOnly, req.LeavingDate)
	if err != nil {
		http.Error(w, "invalid leaving_date", http.StatusBadRequest)
		return
	}

	guest := domain.Guest{Name: req.GuestName, Age: req.GuestAge, Gender: req.GuestGender}
	booking, err := h.ledger.CreateBooking(r.Context(), identity, req.RoomID, guest, bookingDate, leavingDate)
	if err != nil {
		writeError(w, err)
		return
	}

	data, _ := json.Marshal(toBookingResponse(*booking))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(data)

	if err := h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data}); err != nil {
		// A retry with this key will not replay and has to survive the
		// overlap check instead.
		h.logger.WithField("idempotency_key", key).Error("failed to cache idempotent response", err)
	}
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthenticated)
		return
	}
	bookingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	booking, err := h.ledger.CancelBooking(r.Context(), identity, bookingID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(*booking))
}

// ListBookings returns the live view for the caller's role: a customer sees
// their own active bookings, a seller sees active bookings on owned rooms.
func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	h.listBookings(w, r, false)
}

// ListBookingHistory is the archived counterpart of ListBookings.
func (h *Handlers) ListBookingHistory(w http.ResponseWriter, r *http.Request) {
	h.listBookings(w, r, true)
}

func (h *Handlers) listBookings(w http.ResponseWriter, r *http.Request, archived bool) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthenticated)
		return
	}

	switch identity.Role {
	case domain.RoleCustomer:
		var (
			rows []domain.CustomerBooking
			err  error
		)
		if archived {
			rows, err = h.ledger.ListArchivedForCustomer(r.Context(), identity)
		} else {
			rows, err = h.ledger.ListActiveForCustomer(r.Context(), identity)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]customerBookingRow, 0, len(rows))
		for _, cb := range rows {
			out = append(out, customerBookingRow{
				ID:          cb.ID,
				RoomID:      cb.RoomID,
				HotelName:   cb.HotelName,
				RoomType:    string(cb.RoomType),
				Location:    cb.Location,
				Price:       cb.Price,
				ImageURL:    cb.ImageURL,
				GuestName:   cb.Guest.Name,
				GuestAge:    cb.Guest.Age,
				GuestGender: cb.Guest.Gender,
				BookingDate: cb.BookingDate.Format(time.DateOnly),
				LeavingDate: cb.LeavingDate.Format(time.DateOnly),
				Status:      string(cb.Status),
			})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": out})
	case domain.RoleSeller:
		var (
			rows []domain.SellerBooking
			err  error
		)
		if archived {
			rows, err = h.ledger.ListArchivedForSellerRooms(r.Context(), identity)
		} else {
			rows, err = h.ledger.ListActiveForSellerRooms(r.Context(), identity)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]sellerBookingRow, 0, len(rows))
		for _, sb := range rows {
			out = append(out, sellerBookingRow{
				BookingID:   sb.ID,
				RoomID:      sb.RoomID,
				HotelName:   sb.HotelName,
				RoomType:    string(sb.RoomType),
				Location:    sb.Location,
				Price:       sb.Price,
				RoomImage:   sb.RoomImage,
				GuestName:   sb.Guest.Name,
				GuestAge:    sb.Guest.Age,
				GuestGender: sb.Guest.Gender,
				BookingDate: sb.BookingDate.Format(time.DateOnly),
				LeavingDate: sb.LeavingDate.Format(time.DateOnly),
				Status:      string(sb.Status),
			})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": out})
	default:
		writeError(w, domain.ErrUnauthorized)
	}
}

func (h *Handlers) UploadImage(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthenticated)
		return
	}
	if identity.Role != domain.RoleSeller {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	image, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageBytes))
	if err != nil {
		http.Error(w, "image too large", http.StatusBadRequest)
		return
	}
	if len(image) == 0 {
		http.Error(w, "empty image", http.StatusBadRequest)
		return
	}

	url, err := h.uploader.StoreImage(r.Context(), image)
	if err != nil {
		h.logger.Error("image upload failed", err)
		http.Error(w, "upload failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"url": url})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
