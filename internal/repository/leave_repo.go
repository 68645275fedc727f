// internal/repository/leave_repo.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"loa-bot/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrCorruptLeave is returned by Get when the stored row cannot be read back.
// The row can still be replaced or deleted.
var ErrCorruptLeave = errors.New("unreadable leave row")

type LeaveRepository interface {
	Upsert(ctx context.Context, leave *models.Leave) error
	Get(ctx context.Context, subjectID string) (*models.Leave, error)
	Delete(ctx context.Context, subjectID string) (bool, error)
	DeleteIfEndUnchanged(ctx context.Context, subjectID string, end time.Time) (bool, error)
	ListExpired(ctx context.Context, asOf time.Time) ([]models.Leave, error)
	ListAll(ctx context.Context) ([]models.Leave, error)
}

// GormLeaveRepository stores leaves in the leaves table. Timestamps are
// written as models.LeaveTimeLayout text in loc. All access goes through mu,
// so writes are serialized with respect to each other.
//
// List operations skip rows whose timestamps do not parse and log them, so a
// single bad row never hides the others.
type GormLeaveRepository struct {
	db     *gorm.DB
	loc    *time.Location
	logger *logrus.Logger
	mu     sync.RWMutex
}

func NewGormLeaveRepository(db *gorm.DB, loc *time.Location, logger *logrus.Logger) (*GormLeaveRepository, error) {
	if err := db.AutoMigrate(&models.LeaveRow{}); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &GormLeaveRepository{db: db, loc: loc, logger: logger}, nil
}

func (r *GormLeaveRepository) Upsert(ctx context.Context, leave *models.Leave) error {
	row := r.toRow(leave)

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subject_id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
}

func (r *GormLeaveRepository) Get(ctx context.Context, subjectID string) (*models.Leave, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var row models.LeaveRow
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	leave, err := r.fromRow(row)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptLeave, err)
	}
	return &leave, nil
}

func (r *GormLeaveRepository) Delete(ctx context.Context, subjectID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Delete(&models.LeaveRow{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteIfEndUnchanged removes the leave only while its end_date still equals
// end. A leave renewed after it was listed survives.
func (r *GormLeaveRepository) DeleteIfEndUnchanged(ctx context.Context, subjectID string, end time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := r.db.WithContext(ctx).
		Where("subject_id = ? AND end_date = ?", subjectID, r.format(end)).
		Delete(&models.LeaveRow{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListExpired returns leaves whose end date is strictly before asOf. Stored
// end dates are whole seconds, so inside a second the bound is inclusive.
func (r *GormLeaveRepository) ListExpired(ctx context.Context, asOf time.Time) ([]models.Leave, error) {
	cond := "end_date < ?"
	if !asOf.Truncate(time.Second).Equal(asOf) {
		cond = "end_date <= ?"
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var rows []models.LeaveRow
	err := r.db.WithContext(ctx).
		Where(cond, r.format(asOf)).
		Order("end_date, subject_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.fromRows(rows), nil
}

func (r *GormLeaveRepository) ListAll(ctx context.Context) ([]models.Leave, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rows []models.LeaveRow
	err := r.db.WithContext(ctx).
		Order("end_date, subject_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.fromRows(rows), nil
}

func (r *GormLeaveRepository) format(t time.Time) string {
	return t.In(r.loc).Format(models.LeaveTimeLayout)
}

func (r *GormLeaveRepository) toRow(leave *models.Leave) models.LeaveRow {
	return models.LeaveRow{
		SubjectID: leave.SubjectID,
		StartDate: r.format(leave.StartDate),
		EndDate:   r.format(leave.EndDate),
		Reason:    leave.Reason,
	}
}

func (r *GormLeaveRepository) fromRow(row models.LeaveRow) (models.Leave, error) {
	start, err := time.ParseInLocation(models.LeaveTimeLayout, row.StartDate, r.loc)
	if err != nil {
		return models.Leave{}, fmt.Errorf("leave %s: bad start_date %q: %w", row.SubjectID, row.StartDate, err)
	}
	end, err := time.ParseInLocation(models.LeaveTimeLayout, row.EndDate, r.loc)
	if err != nil {
		return models.Leave{}, fmt.Errorf("leave %s: bad end_date %q: %w", row.SubjectID, row.EndDate, err)
	}
	return models.Leave{
		SubjectID: row.SubjectID,
		StartDate: start,
		EndDate:   end,
		Reason:    row.Reason,
	}, nil
}

func (r *GormLeaveRepository) fromRows(rows []models.LeaveRow) []models.Leave {
	leaves := make([]models.Leave, 0, len(rows))
	for _, row := range rows {
		leave, err := r.fromRow(row)
		if err != nil {
			r.logger.WithError(err).WithField("subject_id", row.SubjectID).Error("Skipping unreadable leave row")
			continue
		}
		leaves = append(leaves, leave)
	}
	return leaves
}
