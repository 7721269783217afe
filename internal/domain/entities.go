package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleSeller   Role = "SELLER"
)

// Identity is the verified (user, role) pair supplied by the identity
// provider for each request.
type Identity struct {
	UserID uuid.UUID
	Role   Role
}

type RoomType string

const (
	RoomSingle RoomType = "Single"
	RoomDouble RoomType = "Double"
	RoomTriple RoomType = "Triple"
	RoomFamily RoomType = "Family"
)

func ValidRoomType(t RoomType) bool {
	switch t {
	case RoomSingle, RoomDouble, RoomTriple, RoomFamily:
		return true
	}
	return false
}

// MaxRoomImages is the platform-wide cap on images per room.
const MaxRoomImages = 5

type Room struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	HotelName string
	Location  string
	RoomType  RoomType
	Price     int64
	Images    []string
	Available bool
}

// FirstImage returns the cover image URL, or "" for rooms without images.
func (r Room) FirstImage() string {
	if len(r.Images) == 0 {
		return ""
	}
	return r.Images[0]
}

type BookingStatus string

const (
	BookingActive    BookingStatus = "ACTIVE"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingCompleted BookingStatus = "COMPLETED"
)

type Guest struct {
	Name   string
	Age    int
	Gender string
}

type Booking struct {
	ID          uuid.UUID
	RoomID      uuid.UUID
	CustomerID  uuid.UUID
	Guest       Guest
	BookingDate time.Time
	LeavingDate time.Time
	Status      BookingStatus
	Archived    bool
}

// CustomerBooking is a booking joined with the room fields a customer-facing
// listing shows.
type CustomerBooking struct {
	ID          uuid.UUID
	RoomID      uuid.UUID
	HotelName   string
	RoomType    RoomType
	Location    string
	Price       int64
	ImageURL    string
	Guest       Guest
	BookingDate time.Time
	LeavingDate time.Time
	Status      BookingStatus
}

// SellerBooking is a booking on one of a seller's rooms joined with the guest
// info the seller sees.
type SellerBooking struct {
	ID          uuid.UUID
	RoomID      uuid.UUID
	HotelName   string
	RoomType    RoomType
	Location    string
	Price       int64
	RoomImage   string
	Guest       Guest
	BookingDate time.Time
	LeavingDate time.Time
	Status      BookingStatus
}
