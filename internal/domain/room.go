package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// RoomAttrs carries the seller-supplied room fields. Images replace the whole
// list on update, never patch it. Available is a pointer so an update can
// leave the flag untouched.
type RoomAttrs struct {
	HotelName string
	Location  string
	RoomType  RoomType
	Price     int64
	Images    []string
	Available *bool
}

func (a RoomAttrs) Validate() error {
	if a.HotelName == "" {
		return fmt.Errorf("hotel name is required: %w", ErrInvalidInput)
	}
	if a.Location == "" {
		return fmt.Errorf("location is required: %w", ErrInvalidInput)
	}
	if !ValidRoomType(a.RoomType) {
		return fmt.Errorf("unknown room type %q: %w", a.RoomType, ErrInvalidInput)
	}
	if a.Price <= 0 {
		return fmt.Errorf("price must be positive: %w", ErrInvalidInput)
	}
	if len(a.Images) > MaxRoomImages {
		return fmt.Errorf("at most %d images per room: %w", MaxRoomImages, ErrInvalidInput)
	}
	return nil
}

func NewRoom(ownerID uuid.UUID, attrs RoomAttrs) (Room, error) {
	if err := attrs.Validate(); err != nil {
		return Room{}, err
	}
	available := true
	if attrs.Available != nil {
		available = *attrs.Available
	}
	return Room{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		HotelName: attrs.HotelName,
		Location:  attrs.Location,
		RoomType:  attrs.RoomType,
		Price:     attrs.Price,
		Images:    attrs.Images,
		Available: available,
	}, nil
}
