// internal/service/leave.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"loa-bot/internal/models"
	"loa-bot/internal/repository"

	"github.com/sirupsen/logrus"
)

// LeaveService owns the leave lifecycle. It reads and writes the store and
// returns intents; it never talks to the chat platform.
type LeaveService struct {
	leaveRepo repository.LeaveRepository
	logger    *logrus.Logger
}

func NewLeaveService(leaveRepo repository.LeaveRepository, logger *logrus.Logger) *LeaveService {
	if logger == nil {
		logger = logrus.New()
	}
	return &LeaveService{
		leaveRepo: leaveRepo,
		logger:    logger,
	}
}

// StartLeave puts subjectID on leave from now until the instant described by
// durationToken, replacing any leave the subject already has.
func (s *LeaveService) StartLeave(ctx context.Context, subjectID, durationToken, reason string, now time.Time) (*StartResult, error) {
	if subjectID == "" {
		return nil, ErrInvalidSubject
	}

	// Stored timestamps have second precision.
	now = now.Truncate(time.Second)

	endDate, err := ParseDuration(durationToken, now)
	if err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = models.DefaultLeaveReason
	}

	replaced := false
	previous, err := s.leaveRepo.Get(ctx, subjectID)
	switch {
	case errors.Is(err, repository.ErrCorruptLeave):
		s.logger.WithError(err).WithField("subject_id", subjectID).Warn("Overwriting unreadable leave")
		replaced = true
	case err != nil:
		return nil, fmt.Errorf("%w: load leave of %s: %w", ErrStore, subjectID, err)
	case previous != nil:
		replaced = true
	}

	leave := models.Leave{
		SubjectID: subjectID,
		StartDate: now,
		EndDate:   endDate,
		Reason:    reason,
	}
	if err := s.leaveRepo.Upsert(ctx, &leave); err != nil {
		return nil, fmt.Errorf("%w: save leave of %s: %w", ErrStore, subjectID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"subject_id": subjectID,
		"end_date":   endDate.Format(models.LeaveTimeLayout),
		"replaced":   replaced,
	}).Info("Leave started")

	return &StartResult{
		Leave:    leave,
		Replaced: replaced,
		Intents: []Intent{
			{Kind: IntentGrantMarker, SubjectID: subjectID, Leave: &leave},
			{Kind: IntentNotifyStarted, SubjectID: subjectID, Leave: &leave},
		},
	}, nil
}

// EndLeave removes the leave of subjectID. Ending a leave that does not exist
// is not an error; the result reports whether one existed.
func (s *LeaveService) EndLeave(ctx context.Context, subjectID string, now time.Time) (*EndResult, error) {
	if subjectID == "" {
		return nil, ErrInvalidSubject
	}

	previous, err := s.leaveRepo.Get(ctx, subjectID)
	if errors.Is(err, repository.ErrCorruptLeave) {
		s.logger.WithError(err).WithField("subject_id", subjectID).Warn("Removing unreadable leave")
		previous, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load leave of %s: %w", ErrStore, subjectID, err)
	}

	existed, err := s.leaveRepo.Delete(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: delete leave of %s: %w", ErrStore, subjectID, err)
	}
	if !existed {
		previous = nil
	}

	s.logger.WithFields(logrus.Fields{
		"subject_id": subjectID,
		"existed":    existed,
		"at":         now.Format(models.LeaveTimeLayout),
	}).Info("Leave ended manually")

	return &EndResult{
		SubjectID: subjectID,
		Existed:   existed,
		Previous:  previous,
		Intents: []Intent{
			{Kind: IntentRevokeMarker, SubjectID: subjectID, Leave: previous},
			{Kind: IntentNotifyEnded, SubjectID: subjectID, Leave: previous},
		},
	}, nil
}

// SweepExpired deletes every leave whose end date is before now and returns
// one ClosedLeave per deleted record. A record that fails to delete, or that
// was renewed after it was listed, is skipped without stopping the sweep.
func (s *LeaveService) SweepExpired(ctx context.Context, now time.Time) ([]ClosedLeave, error) {
	expired, err := s.leaveRepo.ListExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("%w: list expired leaves: %w", ErrStore, err)
	}

	closed := make([]ClosedLeave, 0, len(expired))
	for _, leave := range expired {
		log := s.logger.WithField("subject_id", leave.SubjectID)

		deleted, err := s.leaveRepo.DeleteIfEndUnchanged(ctx, leave.SubjectID, leave.EndDate)
		if err != nil {
			log.WithError(err).Error("Failed to delete expired leave")
			continue
		}
		if !deleted {
			log.Info("Leave changed during sweep, skipping")
			continue
		}

		closed = append(closed, ClosedLeave{
			Leave: leave,
			Intents: []Intent{
				{Kind: IntentRevokeMarker, SubjectID: leave.SubjectID, Leave: &leave},
				{Kind: IntentNotifyExpired, SubjectID: leave.SubjectID, Leave: &leave},
			},
		})
		log.Info("Expired leave closed")
	}

	return closed, nil
}

// ListLeaves returns every current leave ordered by end date.
func (s *LeaveService) ListLeaves(ctx context.Context) ([]models.Leave, error) {
	leaves, err := s.leaveRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list leaves: %w", ErrStore, err)
	}
	return leaves, nil
}

// GetLeave returns the leave of subjectID, or nil when the subject is not on leave.
func (s *LeaveService) GetLeave(ctx context.Context, subjectID string) (*models.Leave, error) {
	leave, err := s.leaveRepo.Get(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: load leave of %s: %w", ErrStore, subjectID, err)
	}
	return leave, nil
}
