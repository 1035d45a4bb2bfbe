package controller

import "github.com/noah-isme/sma-merit/internal/models"

// Screen is the top-level view.
type Screen string

const (
	ScreenLogin Screen = "login"
	ScreenMain  Screen = "main"
)

// ModalKind names the overlay currently open.
type ModalKind string

const (
	ModalStudentDetail  ModalKind = "student_detail"
	ModalEdit           ModalKind = "edit"
	ModalDeleteConfirm  ModalKind = "delete_confirm"
	ModalResetConfirm   ModalKind = "reset_confirm"
	ModalChangePassword ModalKind = "change_password"
	ModalBackups        ModalKind = "backups"
)

// Field identifies an input of the add-record form.
type Field string

const (
	FieldStudentID Field = "student_id"
	FieldName      Field = "name"
	FieldPoints    Field = "points"
	FieldReason    Field = "reason"
	FieldDate      Field = "date"
)

// Form holds raw add-record input exactly as typed.
type Form struct {
	StudentID string
	Name      string
	Points    string
	Reason    string
	Date      string
}

// EditDraft is the edit modal pre-filled from a cached record.
type EditDraft struct {
	StudentID string
	Name      string
	Points    string
	Reason    string
	PointType models.PointType
	Date      string
}

// Stats are the counters shown next to the main table.
type Stats struct {
	Students int
	Records  int
}

// Modal is the open overlay and the data it shows.
type Modal struct {
	Kind        ModalKind
	StudentID   string
	StudentName string
	Records     []models.Record
	Target      *models.Record
	Edit        EditDraft
	Backups     []models.BackupInfo
	Message     string
}

// State is everything the controller owns.
type State struct {
	Screen     Screen
	LoginError string
	Password   string
	ViewMode   models.ViewMode
	SearchTerm string
	Form       Form
	// Records is the last record list fetched in detail mode. Edit and delete resolve ids against it.
	Records   []models.Record
	Summaries []models.Summary
	Stats     Stats
	Modal     *Modal
}

func (s State) clone() State {
	out := s
	out.Records = append([]models.Record(nil), s.Records...)
	out.Summaries = append([]models.Summary(nil), s.Summaries...)
	if s.Modal != nil {
		m := *s.Modal
		m.Records = append([]models.Record(nil), s.Modal.Records...)
		m.Backups = append([]models.BackupInfo(nil), s.Modal.Backups...)
		if s.Modal.Target != nil {
			t := *s.Modal.Target
			m.Target = &t
		}
		out.Modal = &m
	}
	return out
}
