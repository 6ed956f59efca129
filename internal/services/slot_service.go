package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/arman-d/MentorAppBack/internal/models"
	"github.com/arman-d/MentorAppBack/internal/repository"
)

// minSlotNotice is the shortest lead time for publishing or booking a slot.
const minSlotNotice = 24 * time.Hour

type slotUserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// SlotService is the slot ledger: it owns availability records and their
// atomic claim semantics. Claims themselves run inside the booking
// transaction in SessionService.
type SlotService struct {
	slotRepo *repository.SlotRepository
	userRepo slotUserReader
}

func NewSlotService(slotRepo *repository.SlotRepository, userRepo slotUserReader) *SlotService {
	return &SlotService{slotRepo: slotRepo, userRepo: userRepo}
}

func ValidSlotDuration(durationMin int) bool {
	return durationMin == 30 || durationMin == 60
}

func (s *SlotService) CreateSlot(ctx context.Context, mentorID uuid.UUID, start time.Time, durationMin int) (*models.TimeSlot, error) {
	if !ValidSlotDuration(durationMin) {
		return nil, ErrValidation
	}
	if start.Before(time.Now().UTC().Add(minSlotNotice)) {
		return nil, ErrTooSoon
	}

	mentor, err := s.userRepo.GetByID(ctx, mentorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if mentor.Role != models.RoleMentor {
		return nil, ErrForbidden
	}

	return s.slotRepo.Create(ctx, repository.CreateSlotInput{
		MentorID:    mentorID,
		StartTime:   start,
		DurationMin: durationMin,
	})
}

func (s *SlotService) ListOpenSlots(ctx context.Context, mentorID uuid.UUID) ([]models.TimeSlot, error) {
	return s.slotRepo.ListOpenByMentor(ctx, mentorID)
}

// DeleteSlot removes an unbooked slot. Deleting a booked slot is a conflict;
// the session must be cancelled first.
func (s *SlotService) DeleteSlot(ctx context.Context, slotID, mentorID uuid.UUID) error {
	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if slot.MentorID != mentorID {
		return ErrForbidden
	}

	deleted, err := s.slotRepo.Delete(ctx, slotID)
	if err != nil {
		return err
	}
	if !deleted {
		// Lost a race with a booking or a repeat delete.
		return ErrConflict
	}
	return nil
}
