package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/domain"
)

const (
	SerializationFailureCode = "40001"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		if isSerializationFailure(err) {
			return domain.ErrSerializationFailure
		}
		return err
	}

	// CockroachDB reports many retryable conflicts at COMMIT, not inside the
	// transaction body; the commit error needs the same mapping.
	if err := tx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return domain.ErrSerializationFailure
		}
		return err
	}
	return nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode
}

func (r *Repository) CreateRoom(ctx context.Context, room domain.Room) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO rooms (id, owner_id, hotel_name, location, room_type, price, images, available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, room.ID, room.OwnerID, room.HotelName, room.Location, room.RoomType, room.Price, room.Images, room.Available)
	return err
}

func (r *Repository) GetRoom(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	return scanRoom(r.pool.QueryRow(ctx, `
		SELECT id, owner_id, hotel_name, location, room_type, price, images, available
		FROM rooms WHERE id = $1
	`, roomID))
}

// GetRoomTx reads a room inside a transaction so the availability gate and
// the overlap check observe the same snapshot.
func (r *Repository) GetRoomTx(ctx context.Context, tx pgx.Tx, roomID uuid.UUID) (*domain.Room, error) {
	return scanRoom(tx.QueryRow(ctx, `
		SELECT id, owner_id, hotel_name, location, room_type, price, images, available
		FROM rooms WHERE id = $1
	`, roomID))
}

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var room domain.Room
	err := row.Scan(&room.ID, &room.OwnerID, &room.HotelName, &room.Location, &room.RoomType, &room.Price, &room.Images, &room.Available)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *Repository) UpdateRoom(ctx context.Context, room domain.Room) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE rooms SET hotel_name = $2, location = $3, room_type = $4, price = $5, images = $6, available = $7
		WHERE id = $1
	`, room.ID, room.HotelName, room.Location, room.RoomType, room.Price, room.Images, room.Available)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteRoom removes a room unless it still has an ACTIVE booking. Both the
// guard and the delete run on tx so a concurrent createBooking cannot slip
// between them.
func (r *Repository) DeleteRoom(ctx context.Context, tx pgx.Tx, roomID uuid.UUID) error {
	var active int
	err := tx.QueryRow(ctx, `
		SELECT count(*) FROM bookings WHERE room_id = $1 AND status = 'ACTIVE'
	`, roomID).Scan(&active)
	if err != nil {
		return err
	}
	if active > 0 {
		return domain.ErrConflict
	}

	result, err := tx.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, roomID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) ListRoomsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Room, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, hotel_name, location, room_type, price, images, available
		FROM rooms WHERE owner_id = $1 ORDER BY id
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRooms(rows)
}

func (r *Repository) ListAvailableRooms(ctx context.Context) ([]domain.Room, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, hotel_name, location, room_type, price, images, available
		FROM rooms WHERE available ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRooms(rows)
}

func collectRooms(rows pgx.Rows) ([]domain.Room, error) {
	var rooms []domain.Room
	for rows.Next() {
		var room domain.Room
		if err := rows.Scan(&room.ID, &room.OwnerID, &room.HotelName, &room.Location, &room.RoomType, &room.Price, &room.Images, &room.Available); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// CreateBooking checks the half-open range overlap and inserts in the same
// transaction. SERIALIZABLE isolation makes the pair atomic; concurrent
// attempts for the same room surface as serialization failures in WithTx.
func (r *Repository) CreateBooking(ctx context.Context, tx pgx.Tx, b domain.Booking) error {
	var overlaps bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE room_id = $1 AND status = 'ACTIVE'
			  AND booking_date < $3 AND $2 < leaving_date
		)
	`, b.RoomID, b.BookingDate, b.LeavingDate).Scan(&overlaps)
	if err != nil {
		return err
	}
	if overlaps {
		return domain.ErrConflict
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO bookings (id, room_id, customer_id, guest_name, guest_age, guest_gender, booking_date, leaving_date, status, archived)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'ACTIVE', false)
	`, b.ID, b.RoomID, b.CustomerID, b.Guest.Name, b.Guest.Age, b.Guest.Gender, b.BookingDate, b.LeavingDate)
	return err
}

func (r *Repository) GetBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	var b domain.Booking
	err := r.pool.QueryRow(ctx, `
		SELECT id, room_id, customer_id, guest_name, guest_age, guest_gender, booking_date, leaving_date, status, archived
		FROM bookings WHERE id = $1
	`, bookingID).Scan(&b.ID, &b.RoomID, &b.CustomerID, &b.Guest.Name, &b.Guest.Age, &b.Guest.Gender, &b.BookingDate, &b.LeavingDate, &b.Status, &b.Archived)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CancelBooking flips an ACTIVE booking to CANCELLED. The status predicate
// makes a lost double-cancel race show up as zero rows.
func (r *Repository) CancelBooking(ctx context.Context, bookingID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE bookings SET status = 'CANCELLED', archived = true
		WHERE id = $1 AND status = 'ACTIVE'
	`, bookingID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

// CompleteExpiredBookings finishes every ACTIVE booking whose leaving date is
// behind now and returns the affected rows. Running it again with the same
// now matches nothing.
func (r *Repository) CompleteExpiredBookings(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE bookings SET status = 'COMPLETED', archived = true
		WHERE status = 'ACTIVE' AND leaving_date < $1
		RETURNING id, room_id, customer_id, guest_name, guest_age, guest_gender, booking_date, leaving_date, status, archived
	`, domain.DateOnly(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var completed []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.RoomID, &b.CustomerID, &b.Guest.Name, &b.Guest.Age, &b.Guest.Gender, &b.BookingDate, &b.LeavingDate, &b.Status, &b.Archived); err != nil {
			return nil, err
		}
		completed = append(completed, b)
	}
	return completed, rows.Err()
}
