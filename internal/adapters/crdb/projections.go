package crdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/domain"
)

// Projection queries join bookings to rooms. LEFT JOIN keeps archived history
// readable after a room with no remaining ACTIVE bookings is deleted.

func (r *Repository) ListCustomerBookings(ctx context.Context, customerID uuid.UUID, archived bool) ([]domain.CustomerBooking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.id, b.room_id,
		       COALESCE(r.hotel_name, ''), COALESCE(r.room_type, ''), COALESCE(r.location, ''),
		       COALESCE(r.price, 0), COALESCE(r.images[1], ''),
		       b.guest_name, b.guest_age, b.guest_gender,
		       b.booking_date, b.leaving_date, b.status
		FROM bookings b
		LEFT JOIN rooms r ON r.id = b.room_id
		WHERE b.customer_id = $1 AND b.archived = $2
		ORDER BY b.id
	`, customerID, archived)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CustomerBooking
	for rows.Next() {
		var cb domain.CustomerBooking
		if err := rows.Scan(&cb.ID, &cb.RoomID, &cb.HotelName, &cb.RoomType, &cb.Location, &cb.Price, &cb.ImageURL,
			&cb.Guest.Name, &cb.Guest.Age, &cb.Guest.Gender, &cb.BookingDate, &cb.LeavingDate, &cb.Status); err != nil {
			return nil, err
		}
		out = append(out, cb)
	}
	return out, rows.Err()
}

func (r *Repository) ListSellerBookings(ctx context.Context, sellerID uuid.UUID, archived bool) ([]domain.SellerBooking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.id, b.room_id,
		       r.hotel_name, r.room_type, r.location, r.price, COALESCE(r.images[1], ''),
		       b.guest_name, b.guest_age, b.guest_gender,
		       b.booking_date, b.leaving_date, b.status
		FROM bookings b
		JOIN rooms r ON r.id = b.room_id
		WHERE r.owner_id = $1 AND b.archived = $2
		ORDER BY b.id
	`, sellerID, archived)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SellerBooking
	for rows.Next() {
		var sb domain.SellerBooking
		if err := rows.Scan(&sb.ID, &sb.RoomID, &sb.HotelName, &sb.RoomType, &sb.Location, &sb.Price, &sb.RoomImage,
			&sb.Guest.Name, &sb.Guest.Age, &sb.Guest.Gender, &sb.BookingDate, &sb.LeavingDate, &sb.Status); err != nil {
			return nil, err
		}
		out = append(out, sb)
	}
	return out, rows.Err()
}
