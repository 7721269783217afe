package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/adapters/crdb"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/domain"
	"github.com/robertarktes/hotel-reservations-and-rooms/internal/observability"
	"golang.org/x/sync/errgroup"
)

// maxCreateAttempts bounds the retry of the atomic overlap-check-and-insert
// when concurrent bookings for the same room trip the serializable isolation.
const maxCreateAttempts = 3

// RoomLocker serializes same-room booking attempts ahead of the transaction.
type RoomLocker interface {
	AcquireRoomLock(ctx context.Context, roomID string, ttl time.Duration) (bool, error)
	ReleaseRoomLock(ctx context.Context, roomID string) error
}

// Archiver receives the denormalized history record of a terminal booking.
type Archiver interface {
	ArchiveBooking(ctx context.Context, b domain.Booking, room domain.Room) error
}

type Publisher interface {
	PublishJSON(ctx context.Context, key string, payload map[string]interface{}) error
}

// Service is the booking ledger: it owns booking records, the no-overlap
// invariant and the ACTIVE -> CANCELLED/COMPLETED lifecycle.
type Service struct {
	repo    *crdb.Repository
	locks   RoomLocker
	archive Archiver
	events  Publisher
	logger  observability.Logger
	lockTTL time.Duration
	now     func() time.Time
}

func NewService(repo *crdb.Repository, locks RoomLocker, archive Archiver, events Publisher, logger observability.Logger, lockTTL time.Duration) *Service {
	return &Service{
		repo:    repo,
		locks:   locks,
		archive: archive,
		events:  events,
		logger:  logger,
		lockTTL: lockTTL,
		now:     time.Now,
	}
}

// CreateBooking books a room for a half-open [bookingDate, leavingDate) range.
// The overlap check and the insert run in one SERIALIZABLE transaction, so at
// most one of several concurrent overlapping attempts wins.
func (s *Service) CreateBooking(ctx context.Context, caller domain.Identity, roomID uuid.UUID, guest domain.Guest, bookingDate, leavingDate time.Time) (*domain.Booking, error) {
	if caller.Role != domain.RoleCustomer {
		return nil, fmt.Errorf("sellers cannot book rooms: %w", domain.ErrUnauthorized)
	}

	booking, err := domain.NewBooking(caller.UserID, roomID, guest, bookingDate, leavingDate, s.now())
	if err != nil {
		return nil, err
	}

	ok, err := s.locks.AcquireRoomLock(ctx, roomID.String(), s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		observability.BookingConflicts.Inc()
		return nil, fmt.Errorf("room is being booked, try again: %w", domain.ErrConflict)
	}
	defer s.locks.ReleaseRoomLock(ctx, roomID.String())

	for attempt := 0; ; attempt++ {
		start := time.Now()
		err = s.repo.WithTx(ctx, func(tx pgx.Tx) error {
			room, err := s.repo.GetRoomTx(ctx, tx, roomID)
			if err != nil {
				return err
			}
			if !room.Available {
				return fmt.Errorf("room is not available: %w", domain.ErrConflict)
			}
			if err := s.repo.CreateBooking(ctx, tx, booking); err != nil {
				return err
			}
			payload, _ := json.Marshal(map[string]interface{}{
				"booking_id":   booking.ID,
				"room_id":      booking.RoomID,
				"customer_id":  booking.CustomerID,
				"booking_date": booking.BookingDate.Format(time.DateOnly),
				"leaving_date": booking.LeavingDate.Format(time.DateOnly),
			})
			return s.repo.InsertOutbox(ctx, tx, crdb.OutboxRecord{
				ID:            uuid.New(),
				AggregateType: "booking",
				AggregateID:   booking.ID,
				EventType:     "booking.created",
				Payload:       payload,
				DedupeKey:     uuid.New().String(),
			})
		})
		observability.DBTxDuration.Observe(time.Since(start).Seconds())

		if errors.Is(err, domain.ErrSerializationFailure) && attempt < maxCreateAttempts-1 {
			backoff := time.Duration(1<<attempt) * 10 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		break
	}
	if errors.Is(err, domain.ErrSerializationFailure) {
		observability.BookingConflicts.Inc()
		return nil, fmt.Errorf("concurrent booking for this room: %w", domain.ErrConflict)
	}
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			observability.BookingConflicts.Inc()
		}
		return nil, err
	}

	observability.BookingsCreated.Inc()
	return &booking, nil
}

// CancelBooking moves an ACTIVE booking to CANCELLED. Only the customer who
// created it may cancel; the status predicate on the update closes the
// double-cancel race.
func (s *Service) CancelBooking(ctx context.Context, caller domain.Identity, bookingID uuid.UUID) (*domain.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.CustomerID != caller.UserID {
		return nil, fmt.Errorf("booking belongs to another customer: %w", domain.ErrUnauthorized)
	}
	if booking.Status != domain.BookingActive {
		return nil, fmt.Errorf("booking is %s: %w", booking.Status, domain.ErrInvalidState)
	}

	if err := s.repo.CancelBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	booking.Status = domain.BookingCancelled
	booking.Archived = true

	s.mirrorArchive(ctx, *booking)
	if err := s.events.PublishJSON(ctx, "booking.cancelled", map[string]interface{}{"booking_id": booking.ID}); err != nil {
		s.logger.Error("failed to publish booking.cancelled", err)
	}
	return booking, nil
}

// CompleteExpiredBookings is the time-driven sweep: every ACTIVE booking whose
// leaving date is behind now becomes COMPLETED and archived. Idempotent.
func (s *Service) CompleteExpiredBookings(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	completed, err := s.repo.CompleteExpiredBookings(ctx, now)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, b := range completed {
		b := b
		g.Go(func() error {
			s.mirrorArchive(gctx, b)
			return s.events.PublishJSON(gctx, "booking.completed", map[string]interface{}{"booking_id": b.ID})
		})
	}
	if err := g.Wait(); err != nil {
		// Terminal state is already committed; the event stream catches up
		// on the next publisher pass.
		s.logger.Error("failed to publish booking.completed", err)
	}

	observability.BookingsCompleted.Add(float64(len(completed)))
	return completed, nil
}

// mirrorArchive writes the denormalized history record. Best effort: the
// archived flag in the ledger is the source of truth.
func (s *Service) mirrorArchive(ctx context.Context, b domain.Booking) {
	room, err := s.repo.GetRoom(ctx, b.RoomID)
	if err != nil {
		s.logger.WithField("booking_id", b.ID).Error("failed to load room for archive mirror", err)
		return
	}
	if err := s.archive.ArchiveBooking(ctx, b, *room); err != nil {
		s.logger.WithField("booking_id", b.ID).Error("failed to mirror booking archive", err)
	}
}

func (s *Service) ListActiveForCustomer(ctx context.Context, caller domain.Identity) ([]domain.CustomerBooking, error) {
	if caller.Role != domain.RoleCustomer {
		return nil, fmt.Errorf("customer view: %w", domain.ErrUnauthorized)
	}
	return s.repo.ListCustomerBookings(ctx, caller.UserID, false)
}

func (s *Service) ListArchivedForCustomer(ctx context.Context, caller domain.Identity) ([]domain.CustomerBooking, error) {
	if caller.Role != domain.RoleCustomer {
		return nil, fmt.Errorf("customer view: %w", domain.ErrUnauthorized)
	}
	return s.repo.ListCustomerBookings(ctx, caller.UserID, true)
}

func (s *Service) ListActiveForSellerRooms(ctx context.Context, caller domain.Identity) ([]domain.SellerBooking, error) {
	if caller.Role != domain.RoleSeller {
		return nil, fmt.Errorf("seller view: %w", domain.ErrUnauthorized)
	}
	return s.repo.ListSellerBookings(ctx, caller.UserID, false)
}

func (s *Service) ListArchivedForSellerRooms(ctx context.Context, caller domain.Identity) ([]domain.SellerBooking, error) {
	if caller.Role != domain.RoleSeller {
		return nil, fmt.Errorf("seller view: %w", domain.ErrUnauthorized)
	}
	return s.repo.ListSellerBookings(ctx, caller.UserID, true)
}
