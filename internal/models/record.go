package models

import (
	"strings"
	"time"
)

// PointType classifies a point event.
type PointType string

const (
	PointTypeAward     PointType = "award"
	PointTypeDeduction PointType = "deduction"
	PointTypeOffset    PointType = "offset"
)

// DateLayout is the display/storage layout of Record.Date.
const DateLayout = "2006-01-02"

// Valid reports whether t is one of the known point types.
func (t PointType) Valid() bool {
	switch t {
	case PointTypeAward, PointTypeDeduction, PointTypeOffset:
		return true
	default:
		return false
	}
}

// Signed applies the storage sign convention: deductions are negative, everything else as given.
func (t PointType) Signed(points int) int {
	if t == PointTypeDeduction {
		if points > 0 {
			return -points
		}
		return points
	}
	return points
}

// Record is a single merit, demerit or offset event for a student.
type Record struct {
	ID        int64     `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Name      string    `db:"name" json:"name"`
	Reason    string    `db:"reason" json:"reason"`
	Points    int       `db:"points" json:"points"`
	PointType PointType `db:"point_type" json:"point_type"`
	Timestamp time.Time `db:"recorded_at" json:"timestamp"`
	Date      string    `db:"record_date" json:"date"`
}

// AbsPoints returns the unsigned magnitude shown in edit forms.
func (r Record) AbsPoints() int {
	if r.Points < 0 {
		return -r.Points
	}
	return r.Points
}

// Summary aggregates all point events of one student.
type Summary struct {
	StudentID    string    `db:"student_id" json:"student_id"`
	Name         string    `db:"name" json:"name"`
	Merit        int       `db:"merit" json:"merit"`
	Demerit      int       `db:"demerit" json:"demerit"`
	Offset       int       `db:"offset_points" json:"offset"`
	Total        int       `db:"total" json:"total"`
	LastActivity time.Time `db:"last_activity" json:"last_activity"`
}

// RecordFilter narrows record and summary listings.
type RecordFilter struct {
	Term      string
	StudentID string
}

// Normalized returns the search term trimmed and lower-cased.
func (f RecordFilter) Normalized() string {
	return strings.ToLower(strings.TrimSpace(f.Term))
}

// CreateRecordRequest is the payload for adding a record.
type CreateRecordRequest struct {
	StudentID string    `json:"student_id" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	Reason    string    `json:"reason" validate:"required"`
	Points    int       `json:"points" validate:"gt=0"`
	PointType PointType `json:"point_type" validate:"required,point_type"`
	Date      *string   `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateRecordRequest replaces every editable field of a record.
type UpdateRecordRequest struct {
	StudentID string    `json:"student_id" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	Reason    string    `json:"reason" validate:"required"`
	Points    int       `json:"points" validate:"gt=0"`
	PointType PointType `json:"point_type" validate:"required,point_type"`
	Date      string    `json:"date" validate:"required,datetime=2006-01-02"`
}
