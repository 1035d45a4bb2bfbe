// Package controller owns the operator-facing state of the points ledger and
// turns typed commands into backend calls.
package controller

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-merit/internal/models"
	appErrors "github.com/noah-isme/sma-merit/pkg/errors"
)

// Options configures a Controller. Every field is optional.
type Options struct {
	Sink     FileSink
	Notifier Notifier
	Logger   *zap.Logger
	Clock    func() time.Time
}

// Controller owns State and runs commands against a Backend.
// Commands are not serialised: two overlapping mutations both reach the backend.
type Controller struct {
	backend  Backend
	sink     FileSink
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time

	mu    sync.Mutex
	state State
	notes []Notification
}

// New builds a controller showing the login screen in summary mode.
func New(backend Backend, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Controller{
		backend:  backend,
		sink:     opts.Sink,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		now:      opts.Clock,
		state:    State{Screen: ScreenLogin, ViewMode: models.ViewSummary},
	}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Notifications returns the notifications that have not expired yet, oldest first.
func (c *Controller) Notifications() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	active := c.notes[:0]
	for _, n := range c.notes {
		if n.Active(now) {
			active = append(active, n)
		}
	}
	c.notes = active
	return append([]Notification(nil), active...)
}

// Dispatch runs one command. Failures are raised as error notifications and returned,
// except a rejected password, which only sets State.LoginError.
func (c *Controller) Dispatch(ctx context.Context, cmd Command) error {
	if needsSession(cmd) && c.screen() != ScreenMain {
		return c.fail(appErrors.Clone(appErrors.ErrUnauthorized, "please log in first"), "")
	}

	switch cmd := cmd.(type) {
	case Login:
		return c.login(ctx, cmd)
	case Logout:
		c.logout()
		return nil
	case OpenChangePassword:
		c.setModal(&Modal{Kind: ModalChangePassword})
		return nil
	case ChangePassword:
		return c.changePassword(ctx, cmd)
	case EditForm:
		return c.editForm(cmd)
	case ClearForm:
		c.mu.Lock()
		c.state.Form = Form{}
		c.mu.Unlock()
		return nil
	case AddRecord:
		return c.addRecord(ctx, cmd)
	case SetViewMode:
		return c.setViewMode(ctx, cmd)
	case Search:
		c.mu.Lock()
		c.state.SearchTerm = cmd.Term
		c.mu.Unlock()
		return c.loadData(ctx)
	case Refresh:
		err := c.loadData(ctx)
		c.refreshStats(ctx)
		c.notify(LevelSuccess, "refresh complete", refreshNotificationTTL)
		return err
	case ShowStudentDetail:
		return c.showStudentDetail(ctx, cmd)
	case BeginEdit:
		return c.beginEdit(cmd)
	case SubmitEdit:
		return c.submitEdit(ctx, cmd)
	case BeginDelete:
		return c.beginDelete(cmd)
	case ConfirmDelete:
		return c.confirmDelete(ctx)
	case BeginReset:
		c.setModal(&Modal{Kind: ModalResetConfirm, Message: "Reset all data? A backup will be created first."})
		return nil
	case ConfirmReset:
		return c.confirmReset(ctx)
	case OpenBackups:
		return c.openBackups(ctx)
	case RestoreBackup:
		return c.restoreBackup(ctx, cmd)
	case CloseModal:
		c.setModal(nil)
		return nil
	case Export:
		return c.export(ctx)
	default:
		return fmt.Errorf("unknown command %T", cmd)
	}
}

func needsSession(cmd Command) bool {
	switch cmd.(type) {
	case Login, OpenChangePassword, ChangePassword, CloseModal:
		return false
	default:
		return true
	}
}

func (c *Controller) login(ctx context.Context, cmd Login) error {
	c.mu.Lock()
	c.state.Password = cmd.Password
	c.mu.Unlock()

	ok, err := c.backend.Authenticate(ctx, cmd.Password)
	if err != nil {
		c.mu.Lock()
		c.state.LoginError = "login error"
		c.mu.Unlock()
		return c.fail(err, "login error")
	}
	if !ok {
		c.mu.Lock()
		c.state.LoginError = "invalid password"
		c.state.Password = ""
		c.mu.Unlock()
		// shown inline on the login screen only
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid password")
	}

	c.mu.Lock()
	c.state.Screen = ScreenMain
	c.state.LoginError = ""
	c.state.Password = ""
	c.state.Modal = nil
	c.mu.Unlock()

	_ = c.loadData(ctx)
	c.refreshStats(ctx)
	return nil
}

func (c *Controller) logout() {
	if closer, ok := c.backend.(sessionCloser); ok {
		closer.CloseSession()
	}
	c.mu.Lock()
	c.state.Screen = ScreenLogin
	c.state.Password = ""
	c.state.LoginError = ""
	c.state.Modal = nil
	c.mu.Unlock()
}

func (c *Controller) changePassword(ctx context.Context, cmd ChangePassword) error {
	if cmd.Old == "" || len(cmd.New) < models.MinPasswordLength {
		return c.fail(appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("new password must be at least %d characters", models.MinPasswordLength)), "")
	}
	changed, err := c.backend.ChangePassword(ctx, cmd.Old, cmd.New)
	if err != nil {
		return c.fail(err, "error")
	}
	if !changed {
		return c.fail(appErrors.Clone(appErrors.ErrForbidden, "current password is incorrect"), "")
	}
	c.setModal(nil)
	c.notify(LevelSuccess, "password changed", defaultNotificationTTL)
	return nil
}

func (c *Controller) editForm(cmd EditForm) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch cmd.Field {
	case FieldStudentID:
		c.state.Form.StudentID = cmd.Value
	case FieldName:
		c.state.Form.Name = cmd.Value
	case FieldPoints:
		c.state.Form.Points = cmd.Value
	case FieldReason:
		c.state.Form.Reason = cmd.Value
	case FieldDate:
		c.state.Form.Date = cmd.Value
	default:
		return fmt.Errorf("unknown form field %q", cmd.Field)
	}
	return nil
}

func (c *Controller) addRecord(ctx context.Context, cmd AddRecord) error {
	c.mu.Lock()
	form := c.state.Form
	c.mu.Unlock()

	studentID := strings.TrimSpace(form.StudentID)
	name := strings.TrimSpace(form.Name)
	reason := strings.TrimSpace(form.Reason)
	points, ok := parsePoints(form.Points)
	if studentID == "" || name == "" || reason == "" || !ok || !cmd.Type.Valid() {
		return c.fail(appErrors.Clone(appErrors.ErrValidation, "please fill in all fields"), "")
	}

	req := models.CreateRecordRequest{
		StudentID: studentID,
		Name:      name,
		Reason:    reason,
		Points:    points,
		PointType: cmd.Type,
	}
	if date := strings.TrimSpace(form.Date); date != "" {
		req.Date = &date
	}
	if err := c.backend.CreateRecord(ctx, req); err != nil {
		return c.fail(err, "error")
	}

	c.notify(LevelSuccess, fmt.Sprintf("%s %d points added", cmd.Type, points), defaultNotificationTTL)
	c.mu.Lock()
	c.state.Form = Form{}
	c.mu.Unlock()
	c.afterMutation(ctx)
	return nil
}

func (c *Controller) setViewMode(ctx context.Context, cmd SetViewMode) error {
	if !cmd.Mode.Valid() {
		return c.fail(appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown view mode %q", cmd.Mode)), "")
	}
	c.mu.Lock()
	c.state.ViewMode = cmd.Mode
	c.mu.Unlock()
	return c.loadData(ctx)
}

// loadData fetches the listing for the active mode and search term.
func (c *Controller) loadData(ctx context.Context) error {
	c.mu.Lock()
	mode, term := c.state.ViewMode, c.state.SearchTerm
	c.mu.Unlock()

	if mode == models.ViewSummary {
		var (
			summaries []models.Summary
			err       error
		)
		if term != "" {
			summaries, err = c.backend.SearchSummaries(ctx, term)
		} else {
			summaries, err = c.backend.ListSummaries(ctx)
		}
		if err != nil {
			c.logger.Error("load summaries failed", zap.Error(err))
			return c.fail(err, "failed to load data")
		}
		c.mu.Lock()
		c.state.Summaries = summaries
		c.mu.Unlock()
		return nil
	}

	var (
		records []models.Record
		err     error
	)
	if term != "" {
		records, err = c.backend.SearchRecords(ctx, term)
	} else {
		records, err = c.backend.ListRecords(ctx)
	}
	if err != nil {
		c.logger.Error("load records failed", zap.Error(err))
		return c.fail(err, "failed to load data")
	}
	c.mu.Lock()
	c.state.Records = records
	c.mu.Unlock()
	return nil
}

// refreshStats fetches both unfiltered lists concurrently. Failures are logged only.
func (c *Controller) refreshStats(ctx context.Context) {
	var (
		summaries []models.Summary
		records   []models.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summaries, err = c.backend.ListSummaries(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = c.backend.ListRecords(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		c.logger.Warn("stats refresh failed", zap.Error(err))
		return
	}
	c.mu.Lock()
	c.state.Stats = Stats{Students: len(summaries), Records: len(records)}
	c.mu.Unlock()
}

func (c *Controller) afterMutation(ctx context.Context) {
	_ = c.loadData(ctx)
	c.refreshStats(ctx)
}

func (c *Controller) showStudentDetail(ctx context.Context, cmd ShowStudentDetail) error {
	records, err := c.backend.StudentRecords(ctx, cmd.StudentID)
	if err != nil {
		return c.fail(err, "failed to load details")
	}
	c.setModal(&Modal{Kind: ModalStudentDetail, StudentID: cmd.StudentID, StudentName: cmd.Name, Records: records})
	return nil
}

func (c *Controller) cached(id int64) (models.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.state.Records {
		if r.ID == id {
			return r, true
		}
	}
	return models.Record{}, false
}

func (c *Controller) beginEdit(cmd BeginEdit) error {
	record, ok := c.cached(cmd.ID)
	if !ok {
		return c.fail(appErrors.Clone(appErrors.ErrNotFound, "record not found"), "")
	}
	c.setModal(&Modal{
		Kind:   ModalEdit,
		Target: &record,
		Edit: EditDraft{
			StudentID: record.StudentID,
			Name:      record.Name,
			Points:    strconv.Itoa(record.AbsPoints()),
			Reason:    record.Reason,
			PointType: record.PointType,
			Date:      record.Date,
		},
	})
	return nil
}

func (c *Controller) submitEdit(ctx context.Context, cmd SubmitEdit) error {
	target := c.modalTarget(ModalEdit)
	if target == nil {
		return c.fail(appErrors.Clone(appErrors.ErrNotFound, "record not found"), "")
	}

	studentID := strings.TrimSpace(cmd.StudentID)
	name := strings.TrimSpace(cmd.Name)
	reason := strings.TrimSpace(cmd.Reason)
	date := strings.TrimSpace(cmd.Date)
	points, ok := parsePoints(cmd.Points)
	if studentID == "" || name == "" || reason == "" || date == "" || !ok || !cmd.PointType.Valid() {
		return c.fail(appErrors.Clone(appErrors.ErrValidation, "please fill in all fields"), "")
	}

	err := c.backend.UpdateRecord(ctx, target.ID, models.UpdateRecordRequest{
		StudentID: studentID,
		Name:      name,
		Reason:    reason,
		Points:    points,
		PointType: cmd.PointType,
		Date:      date,
	})
	if err != nil {
		return c.fail(err, "update failed")
	}
	c.notify(LevelSuccess, "record updated", defaultNotificationTTL)
	c.setModal(nil)
	c.afterMutation(ctx)
	return nil
}

func (c *Controller) beginDelete(cmd BeginDelete) error {
	record, ok := c.cached(cmd.ID)
	if !ok {
		return c.fail(appErrors.Clone(appErrors.ErrNotFound, "record not found"), "")
	}
	c.setModal(&Modal{
		Kind:    ModalDeleteConfirm,
		Target:  &record,
		Message: fmt.Sprintf("Delete %s %d points for %s (%s): %s (%s)? This cannot be undone.", record.PointType, record.AbsPoints(), record.Name, record.StudentID, record.Reason, record.Date),
	})
	return nil
}

func (c *Controller) confirmDelete(ctx context.Context) error {
	target := c.modalTarget(ModalDeleteConfirm)
	if target == nil {
		return c.fail(appErrors.Clone(appErrors.ErrNotFound, "record not found"), "")
	}
	if err := c.backend.DeleteRecord(ctx, target.ID); err != nil {
		return c.fail(err, "delete failed")
	}
	c.notify(LevelSuccess, "record deleted", defaultNotificationTTL)
	c.setModal(nil)
	c.afterMutation(ctx)
	return nil
}

func (c *Controller) confirmReset(ctx context.Context) error {
	if err := c.backend.Reset(ctx); err != nil {
		return c.fail(err, "reset failed")
	}
	c.notify(LevelSuccess, "all data reset", defaultNotificationTTL)
	c.setModal(nil)
	c.afterMutation(ctx)
	return nil
}

func (c *Controller) openBackups(ctx context.Context) error {
	backups, err := c.backend.ListBackups(ctx)
	if err != nil {
		return c.fail(err, "failed to list backups")
	}
	c.setModal(&Modal{Kind: ModalBackups, Backups: backups})
	return nil
}

func (c *Controller) restoreBackup(ctx context.Context, cmd RestoreBackup) error {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return c.fail(appErrors.Clone(appErrors.ErrValidation, "choose a backup to restore"), "")
	}
	if err := c.backend.RestoreBackup(ctx, name); err != nil {
		return c.fail(err, "restore failed")
	}
	c.notify(LevelSuccess, "backup restored: "+name, defaultNotificationTTL)
	c.setModal(nil)
	c.afterMutation(ctx)
	return nil
}

func (c *Controller) modalTarget(kind ModalKind) *models.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Modal == nil || c.state.Modal.Kind != kind || c.state.Modal.Target == nil {
		return nil
	}
	target := *c.state.Modal.Target
	return &target
}

func (c *Controller) screen() Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Screen
}

func (c *Controller) setModal(m *Modal) {
	c.mu.Lock()
	c.state.Modal = m
	c.mu.Unlock()
}

// fail raises an error notification. With a prefix the message reads "<prefix>: <err>".
func (c *Controller) fail(err error, prefix string) error {
	msg := err.Error()
	if prefix != "" {
		msg = prefix + ": " + msg
	}
	c.notify(LevelError, msg, defaultNotificationTTL)
	return err
}

func (c *Controller) notify(level Level, msg string, ttl time.Duration) {
	n := Notification{Level: level, Message: msg, Duration: ttl, RaisedAt: c.now()}
	c.mu.Lock()
	c.notes = append(c.notes, n)
	c.mu.Unlock()
	if c.notifier != nil {
		c.notifier.Notify(n)
	}
}

// parsePoints accepts positive base-10 integers only.
func parsePoints(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
