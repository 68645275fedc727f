// internal/models/leave.go
package models

import "time"

// LeaveTimeLayout is the text format of start_date/end_date in the leaves table.
// It sorts lexicographically, so end_date can be compared as a string.
const LeaveTimeLayout = "2006-01-02 15:04:05"

const DefaultLeaveReason = "No reason provided"

// Leave is the current leave of absence of one subject. At most one exists per subject.
type Leave struct {
	SubjectID string    `json:"subject_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Reason    string    `json:"reason"`
}

// Expired reports whether the leave ended strictly before now.
func (l Leave) Expired(now time.Time) bool {
	return l.EndDate.Before(now)
}

// LeaveRow is the stored shape of a Leave.
type LeaveRow struct {
	SubjectID string `gorm:"column:subject_id;primaryKey;type:text"`
	StartDate string `gorm:"column:start_date;type:text;not null"`
	EndDate   string `gorm:"column:end_date;type:text;not null;index"`
	Reason    string `gorm:"column:reason;type:text"`
}

func (LeaveRow) TableName() string {
	return "leaves"
}
