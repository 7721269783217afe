package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DateOnly truncates a timestamp to its UTC calendar date. Booking ranges are
// calendar dates, not instants.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Half-open: a checkout on day D does not collide with a check-in on day D.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func NewBooking(customerID, roomID uuid.UUID, guest Guest, bookingDate, leavingDate, now time.Time) (Booking, error) {
	bookingDate = DateOnly(bookingDate)
	leavingDate = DateOnly(leavingDate)
	if guest.Name == "" {
		return Booking{}, fmt.Errorf("guest name is required: %w", ErrInvalidInput)
	}
	if guest.Age <= 0 {
		return Booking{}, fmt.Errorf("guest age must be positive: %w", ErrInvalidInput)
	}
	if !leavingDate.After(bookingDate) {
		return Booking{}, fmt.Errorf("leaving date must be after booking date: %w", ErrInvalidInput)
	}
	if bookingDate.Before(DateOnly(now)) {
		return Booking{}, fmt.Errorf("booking date is in the past: %w", ErrInvalidInput)
	}
	return Booking{
		ID:          uuid.New(),
		RoomID:      roomID,
		CustomerID:  customerID,
		Guest:       guest,
		BookingDate: bookingDate,
		LeavingDate: leavingDate,
		Status:      BookingActive,
	}, nil
}
