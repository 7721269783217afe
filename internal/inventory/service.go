package inventory

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/adapters/crdb"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/domain"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/observability"
)

// Publisher is the slice of the event bus the inventory service needs.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, payload map[string]interface{}) error
}

// Service owns room records. Only the owning seller may mutate a room, and a
// room with an ACTIVE booking cannot be deleted.
type Service struct {
	repo   *crdb.Repository
	events Publisher
	logger observability.Logger
}

func NewService(repo *crdb.Repository, events Publisher, logger observability.Logger) *Service {
	return &Service{repo: repo, events: events, logger: logger}
}

func (s *Service) CreateRoom(ctx context.Context, caller domain.Identity, attrs domain.RoomAttrs) (*domain.Room, error) {
	if caller.Role != domain.RoleSeller {
		return nil, fmt.Errorf("only sellers can list rooms: %w", domain.ErrUnauthorized)
	}
	room, err := domain.NewRoom(caller.UserID, attrs)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateRoom(ctx, room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *Service) UpdateRoom(ctx context.Context, caller domain.Identity, roomID uuid.UUID, attrs domain.RoomAttrs) (*domain.Room, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.OwnerID != caller.UserID {
		return nil, fmt.Errorf("room belongs to another seller: %w", domain.ErrUnauthorized)
	}
	if err := attrs.Validate(); err != nil {
		return nil, err
	}

	room.HotelName = attrs.HotelName
	room.Location = attrs.Location
	room.RoomType = attrs.RoomType
	room.Price = attrs.Price
	room.Images = attrs.Images // whole-list replacement
	if attrs.Available != nil {
		room.Available = *attrs.Available
	}

	if err := s.repo.UpdateRoom(ctx, *room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *Service) DeleteRoom(ctx context.Context, caller domain.Identity, roomID uuid.UUID) error {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.OwnerID != caller.UserID {
		return fmt.Errorf("room belongs to another seller: %w", domain.ErrUnauthorized)
	}

	err = s.repo.WithTx(ctx, func(tx pgx.Tx) error {
		return s.repo.DeleteRoom(ctx, tx, roomID)
	})
	if errors.Is(err, domain.ErrSerializationFailure) {
		return fmt.Errorf("concurrent booking activity, try again: %w", domain.ErrConflict)
	}
	if errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("room still has active bookings: %w", domain.ErrConflict)
	}
	if err != nil {
		return err
	}

	if err := s.events.PublishJSON(ctx, "room.deleted", map[string]interface{}{"room_id": roomID}); err != nil {
		s.logger.Error("failed to publish room.deleted", err)
	}
	return nil
}

func (s *Service) ListRoomsByOwner(ctx context.Context, caller domain.Identity) ([]domain.Room, error) {
	if caller.Role != domain.RoleSeller {
		return nil, fmt.Errorf("only sellers own rooms: %w", domain.ErrUnauthorized)
	}
	return s.repo.ListRoomsByOwner(ctx, caller.UserID)
}

// ListAllAvailable returns rooms whose seller-controlled flag is set. Date
// conflicts are resolved at booking time, not here.
func (s *Service) ListAllAvailable(ctx context.Context) ([]domain.Room, error) {
	return s.repo.ListAvailableRooms(ctx)
}
