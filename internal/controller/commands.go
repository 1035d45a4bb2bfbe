package controller

import "github.com/noah-isme/sma-merit/internal/models"

// Command is one operator action consumed by Controller.Dispatch.
type Command interface {
	command()
}

// Login submits the password.
type Login struct{ Password string }

// Logout returns to the login screen.
type Logout struct{}

// OpenChangePassword opens the password modal.
type OpenChangePassword struct{}

// ChangePassword submits the password modal.
type ChangePassword struct {
	Old string
	New string
}

// EditForm sets one add-record input.
type EditForm struct {
	Field Field
	Value string
}

// ClearForm empties the add-record form.
type ClearForm struct{}

// AddRecord submits the add-record form with the chosen point type.
type AddRecord struct{ Type models.PointType }

// SetViewMode switches between summary and detail listings.
type SetViewMode struct{ Mode models.ViewMode }

// Search sets the search term and reloads the listing.
type Search struct{ Term string }

// Refresh reloads the listing and the stats.
type Refresh struct{}

// ShowStudentDetail opens every record of one student.
type ShowStudentDetail struct {
	StudentID string
	Name      string
}

// BeginEdit opens the edit modal for a cached record.
type BeginEdit struct{ ID int64 }

// SubmitEdit sends the edit modal.
type SubmitEdit struct {
	StudentID string
	Name      string
	Points    string
	Reason    string
	PointType models.PointType
	Date      string
}

// BeginDelete asks for confirmation before deleting a cached record.
type BeginDelete struct{ ID int64 }

// ConfirmDelete deletes the record shown in the confirmation modal.
type ConfirmDelete struct{}

// BeginReset asks for confirmation before resetting all data.
type BeginReset struct{}

// ConfirmReset resets all data. The backend writes a backup first.
type ConfirmReset struct{}

// OpenBackups lists stored backups.
type OpenBackups struct{}

// RestoreBackup restores the named backup.
type RestoreBackup struct{ Name string }

// CloseModal dismisses the open overlay.
type CloseModal struct{}

// Export saves the active view as CSV.
type Export struct{}

func (Login) command()              {}
func (Logout) command()             {}
func (OpenChangePassword) command() {}
func (ChangePassword) command()     {}
func (EditForm) command()           {}
func (ClearForm) command()          {}
func (AddRecord) command()          {}
func (SetViewMode) command()        {}
func (Search) command()             {}
func (Refresh) command()            {}
func (ShowStudentDetail) command()  {}
func (BeginEdit) command()          {}
func (SubmitEdit) command()         {}
func (BeginDelete) command()        {}
func (ConfirmDelete) command()      {}
func (BeginReset) command()         {}
func (ConfirmReset) command()       {}
func (OpenBackups) command()        {}
func (RestoreBackup) command()      {}
func (CloseModal) command()         {}
func (Export) command()             {}
