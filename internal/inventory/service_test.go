package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/domain"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/observability"
)

func TestCreateRoom_CustomerRejected(t *testing.T) {
	s := NewService(nil, nil, observability.NewLogger())
	customer := domain.Identity{UserID: uuid.New(), Role: domain.RoleCustomer}

	_, err := s.CreateRoom(context.Background(), customer, domain.RoomAttrs{
		HotelName: "Seaside",
		Location:  "Lisbon",
		RoomType:  domain.RoomSingle,
		Price:     9000,
	})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestCreateRoom_Validation(t *testing.T) {
	s := NewService(nil, nil, observability.NewLogger())
	seller := domain.Identity{UserID: uuid.New(), Role: domain.RoleSeller}

	_, err := s.CreateRoom(context.Background(), seller, domain.RoomAttrs{
		HotelName: "Seaside",
		Location:  "Lisbon",
		RoomType:  domain.RoomSingle,
		Price:     -5,
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListRoomsByOwner_CustomerRejected(t *testing.T) {
	s := NewService(nil, nil, observability.NewLogger())
	customer := domain.Identity{UserID: uuid.New(), Role: domain.RoleCustomer}

	if _, err := s.ListRoomsByOwner(context.Background(), customer); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}
