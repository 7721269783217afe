package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/domain"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/observability"
	"go.mongodb.org/mongo-driver/mongo"
)

// ArchiveRepository mirrors bookings that reached a terminal state into the
// booking_archive collection as denormalized documents. The relational store
// keeps the archived flag as the source of truth; this collection is the
// long-lived history/audit trail.
type ArchiveRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewArchiveRepository(db *mongo.Database, logger observability.Logger) *ArchiveRepository {
	return &ArchiveRepository{
		coll:   db.Collection("booking_archive"),
		logger: logger,
	}
}

type BookingArchiveDoc struct {
	ID          uuid.UUID `bson:"_id"`
	CustomerID  uuid.UUID `bson:"customer_id"`
	RoomID      uuid.UUID `bson:"room_id"`
	GuestName   string    `bson:"guest_name"`
	GuestAge    int       `bson:"guest_age"`
	GuestGender string    `bson:"guest_gender"`
	BookingDate time.Time `bson:"booking_date"`
	LeavingDate time.Time `bson:"leaving_date"`
	HotelName   string    `bson:"hotel_name"`
	RoomType    string    `bson:"room_type"`
	Location    string    `bson:"location"`
	Price       int64     `bson:"price"`
	Status      string    `bson:"status"`
	ImageURL    string    `bson:"image_url"`
	ArchivedAt  time.Time `bson:"archived_at"`
}

func (a *ArchiveRepository) ArchiveBooking(ctx context.Context, b domain.Booking, room domain.Room) error {
	doc := BookingArchiveDoc{
		ID:          b.ID,
		CustomerID:  b.CustomerID,
		RoomID:      b.RoomID,
		GuestName:   b.Guest.Name,
		GuestAge:    b.Guest.Age,
		GuestGender: b.Guest.Gender,
		BookingDate: b.BookingDate,
		LeavingDate: b.LeavingDate,
		HotelName:   room.HotelName,
		RoomType:    string(room.RoomType),
		Location:    room.Location,
		Price:       room.Price,
		Status:      string(b.Status),
		ImageURL:    room.FirstImage(),
		ArchivedAt:  time.Now(),
	}
	_, err := a.coll.InsertOne(ctx, doc)
	if err != nil {
		a.logger.Error("failed to archive booking", err)
		return err
	}
	return nil
}
