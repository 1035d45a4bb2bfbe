package controller

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-merit/internal/models"
	"github.com/noah-isme/sma-merit/pkg/export"
	appErrors "github.com/noah-isme/sma-merit/pkg/errors"
)

type fakeBackend struct {
	mu sync.Mutex

	validPassword string
	records       []models.Record
	summaries     []models.Summary
	backups       []models.BackupInfo
	createErr     error
	listErr       error

	calls    map[string]int
	terms    []string
	created  []models.CreateRecordRequest
	updated  map[int64]models.UpdateRecordRequest
	deleted  []int64
	restored []string
	closed   bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		validPassword: "admin123",
		calls:         map[string]int{},
		updated:       map[int64]models.UpdateRecordRequest{},
	}
}

func (f *fakeBackend) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) Authenticate(ctx context.Context, password string) (bool, error) {
	f.hit("Authenticate")
	return password == f.validPassword, nil
}

func (f *fakeBackend) ChangePassword(ctx context.Context, oldPassword, newPassword string) (bool, error) {
	f.hit("ChangePassword")
	if oldPassword != f.validPassword {
		return false, nil
	}
	f.validPassword = newPassword
	return true, nil
}

func (f *fakeBackend) CreateRecord(ctx context.Context, req models.CreateRecordRequest) error {
	f.hit("CreateRecord")
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	f.created = append(f.created, req)
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) ListRecords(ctx context.Context) ([]models.Record, error) {
	f.hit("ListRecords")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.records, nil
}

func (f *fakeBackend) SearchRecords(ctx context.Context, term string) ([]models.Record, error) {
	f.hit("SearchRecords")
	f.mu.Lock()
	f.terms = append(f.terms, term)
	f.mu.Unlock()
	return f.records[:1], nil
}

func (f *fakeBackend) ListSummaries(ctx context.Context) ([]models.Summary, error) {
	f.hit("ListSummaries")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.summaries, nil
}

func (f *fakeBackend) SearchSummaries(ctx context.Context, term string) ([]models.Summary, error) {
	f.hit("SearchSummaries")
	f.mu.Lock()
	f.terms = append(f.terms, term)
	f.mu.Unlock()
	return f.summaries[:1], nil
}

func (f *fakeBackend) StudentRecords(ctx context.Context, studentID string) ([]models.Record, error) {
	f.hit("StudentRecords")
	var out []models.Record
	for _, r := range f.records {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeBackend) UpdateRecord(ctx context.Context, id int64, req models.UpdateRecordRequest) error {
	f.hit("UpdateRecord")
	f.updated[id] = req
	return nil
}

func (f *fakeBackend) DeleteRecord(ctx context.Context, id int64) error {
	f.hit("DeleteRecord")
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeBackend) Reset(ctx context.Context) error {
	f.hit("Reset")
	return nil
}

func (f *fakeBackend) ListBackups(ctx context.Context) ([]models.BackupInfo, error) {
	f.hit("ListBackups")
	return f.backups, nil
}

func (f *fakeBackend) RestoreBackup(ctx context.Context, name string) error {
	f.hit("RestoreBackup")
	f.restored = append(f.restored, name)
	return nil
}

func (f *fakeBackend) CloseSession() { f.closed = true }

type memorySink struct {
	files map[string][]byte
	err   error
}

func (s *memorySink) Save(name string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.files == nil {
		s.files = map[string][]byte{}
	}
	s.files[name] = data
	return "/exports/" + name, nil
}

type recordingNotifier struct {
	seen []Notification
}

func (n *recordingNotifier) Notify(note Notification) { n.seen = append(n.seen, note) }

func (n *recordingNotifier) last() Notification {
	if len(n.seen) == 0 {
		return Notification{}
	}
	return n.seen[len(n.seen)-1]
}

var fixedNow = time.Date(2024, 3, 9, 10, 30, 0, 0, time.UTC)

func sampleData(b *fakeBackend) {
	b.records = []models.Record{
		{ID: 1, StudentID: "1234", Name: "Kim", Reason: "helped", Points: 5, PointType: models.PointTypeAward, Date: "2024-03-01"},
		{ID: 2, StudentID: "1234", Name: "Kim", Reason: "late, again", Points: -3, PointType: models.PointTypeDeduction, Date: "2024-03-02"},
		{ID: 3, StudentID: "5678", Name: "Lee", Reason: "cleanup", Points: 2, PointType: models.PointTypeOffset, Date: "2024-03-03"},
	}
	b.summaries = []models.Summary{
		{StudentID: "1234", Name: "Kim", Merit: 5, Demerit: 3, Total: 2, LastActivity: fixedNow},
		{StudentID: "5678", Name: "Lee", Demerit: 6, Offset: 2, Total: -4, LastActivity: fixedNow},
	}
}

func newTestController(t *testing.T) (*Controller, *fakeBackend, *recordingNotifier, *memorySink) {
	t.Helper()
	backend := newFakeBackend()
	sampleData(backend)
	notes := &recordingNotifier{}
	sink := &memorySink{}
	c := New(backend, Options{Sink: sink, Notifier: notes, Clock: func() time.Time { return fixedNow }})
	return c, backend, notes, sink
}

func loggedIn(t *testing.T) (*Controller, *fakeBackend, *recordingNotifier, *memorySink) {
	t.Helper()
	c, backend, notes, sink := newTestController(t)
	require.NoError(t, c.Dispatch(context.Background(), Login{Password: "admin123"}))
	return c, backend, notes, sink
}

func fillForm(t *testing.T, c *Controller, id, name, points, reason, date string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, c.Dispatch(ctx, EditForm{Field: FieldStudentID, Value: id}))
	require.NoError(t, c.Dispatch(ctx, EditForm{Field: FieldName, Value: name}))
	require.NoError(t, c.Dispatch(ctx, EditForm{Field: FieldPoints, Value: points}))
	require.NoError(t, c.Dispatch(ctx, EditForm{Field: FieldReason, Value: reason}))
	require.NoError(t, c.Dispatch(ctx, EditForm{Field: FieldDate, Value: date}))
}

func TestLoginLoadsDataAndStats(t *testing.T) {
	c, backend, _, _ := loggedIn(t)

	state := c.State()
	assert.Equal(t, ScreenMain, state.Screen)
	assert.Empty(t, state.Password)
	assert.Len(t, state.Summaries, 2)
	assert.Equal(t, Stats{Students: 2, Records: 3}, state.Stats)
	assert.Equal(t, 1, backend.count("Authenticate"))
}

func TestLoginWrongPassword(t *testing.T) {
	c, _, notes, _ := newTestController(t)

	err := c.Dispatch(context.Background(), Login{Password: "nope"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	state := c.State()
	assert.Equal(t, ScreenLogin, state.Screen)
	assert.Equal(t, "invalid password", state.LoginError)
	assert.Empty(t, state.Password)
	assert.Empty(t, notes.seen)
	assert.Empty(t, c.Notifications())
}

func TestLoginEmptyPasswordIsInlineRejection(t *testing.T) {
	c, _, notes, _ := newTestController(t)

	err := c.Dispatch(context.Background(), Login{Password: ""})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	state := c.State()
	assert.Equal(t, ScreenLogin, state.Screen)
	assert.Equal(t, "invalid password", state.LoginError)
	assert.Empty(t, notes.seen)
}

func TestCommandsRequireLogin(t *testing.T) {
	c, backend, _, _ := newTestController(t)

	err := c.Dispatch(context.Background(), Refresh{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
	assert.Zero(t, backend.count("ListSummaries"))
}

func TestAddRecordScenario(t *testing.T) {
	c, backend, notes, _ := loggedIn(t)
	fillForm(t, c, "1234", "Kim", "5", "helped a classmate", "")

	require.NoError(t, c.Dispatch(context.Background(), AddRecord{Type: models.PointTypeAward}))

	require.Len(t, backend.created, 1)
	got := backend.created[0]
	assert.Equal(t, "1234", got.StudentID)
	assert.Equal(t, "Kim", got.Name)
	assert.Equal(t, 5, got.Points)
	assert.Equal(t, models.PointTypeAward, got.PointType)
	assert.Nil(t, got.Date)

	assert.Equal(t, "award 5 points added", notes.last().Message)
	assert.Equal(t, Form{}, c.State().Form)
}

func TestAddRecordPassesTypedValues(t *testing.T) {
	c, backend, _, _ := loggedIn(t)
	fillForm(t, c, "  77 ", " Park ", "12", " fought ", "2024-02-29")

	require.NoError(t, c.Dispatch(context.Background(), AddRecord{Type: models.PointTypeDeduction}))

	require.Len(t, backend.created, 1)
	got := backend.created[0]
	assert.Equal(t, "77", got.StudentID)
	assert.Equal(t, "Park", got.Name)
	assert.Equal(t, "fought", got.Reason)
	assert.Equal(t, 12, got.Points)
	assert.Equal(t, models.PointTypeDeduction, got.PointType)
	require.NotNil(t, got.Date)
	assert.Equal(t, "2024-02-29", *got.Date)
}

func TestAddRecordValidation(t *testing.T) {
	cases := []struct {
		name   string
		id     string
		sName  string
		points string
		reason string
	}{
		{name: "missing id", sName: "Kim", points: "5", reason: "r"},
		{name: "blank name", id: "1", sName: "   ", points: "5", reason: "r"},
		{name: "missing reason", id: "1", sName: "Kim", points: "5"},
		{name: "zero points", id: "1", sName: "Kim", points: "0", reason: "r"},
		{name: "negative points", id: "1", sName: "Kim", points: "-2", reason: "r"},
		{name: "non numeric points", id: "1", sName: "Kim", points: "5x", reason: "r"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, backend, notes, _ := loggedIn(t)
			fillForm(t, c, tc.id, tc.sName, tc.points, tc.reason, "")

			err := c.Dispatch(context.Background(), AddRecord{Type: models.PointTypeAward})
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrValidation))
			assert.Zero(t, backend.count("CreateRecord"))
			assert.Equal(t, "please fill in all fields", notes.last().Message)
			assert.Equal(t, tc.points, c.State().Form.Points)
		})
	}
}

func TestAddRecordBackendFailureKeepsForm(t *testing.T) {
	c, backend, notes, _ := loggedIn(t)
	backend.createErr = errors.New("connection refused")
	fillForm(t, c, "1", "Kim", "5", "r", "")

	require.Error(t, c.Dispatch(context.Background(), AddRecord{Type: models.PointTypeOffset}))
	assert.Equal(t, "error: connection refused", notes.last().Message)
	assert.Equal(t, "Kim", c.State().Form.Name)
}

func TestViewModeSwitchRelistsWithTerm(t *testing.T) {
	c, backend, _, _ := loggedIn(t)
	ctx := context.Background()
	require.NoError(t, c.Dispatch(ctx, Search{Term: "kim"}))

	require.NoError(t, c.Dispatch(ctx, SetViewMode{Mode: models.ViewDetail}))

	assert.Equal(t, 1, backend.count("SearchRecords"))
	assert.Equal(t, []string{"kim", "kim"}, backend.terms)
	state := c.State()
	assert.Equal(t, models.ViewDetail, state.ViewMode)
	assert.Len(t, state.Records, 1)
}

func TestSearchRouting(t *testing.T) {
	c, backend, _, _ := loggedIn(t)
	ctx := context.Background()
	listed := backend.count("ListSummaries")

	require.NoError(t, c.Dispatch(ctx, Search{Term: " Kim"}))
	assert.Equal(t, 1, backend.count("SearchSummaries"))
	assert.Equal(t, []string{" Kim"}, backend.terms)
	assert.Equal(t, listed, backend.count("ListSummaries"))

	require.NoError(t, c.Dispatch(ctx, Search{Term: ""}))
	assert.Equal(t, 1, backend.count("SearchSummaries"))
	assert.Equal(t, listed+1, backend.count("ListSummaries"))
	assert.Len(t, c.State().Summaries, 2)
}

func TestRefreshNotifiesBriefly(t *testing.T) {
	c, _, notes, _ := loggedIn(t)

	require.NoError(t, c.Dispatch(context.Background(), Refresh{}))
	assert.Equal(t, "refresh complete", notes.last().Message)
	assert.Equal(t, 2*time.Second, notes.last().Duration)
}

func TestLoadFailureNotifies(t *testing.T) {
	c, backend, notes, _ := loggedIn(t)
	backend.listErr = errors.New("boom")

	require.Error(t, c.Dispatch(context.Background(), SetViewMode{Mode: models.ViewDetail}))
	assert.Equal(t, "failed to load data: boom", notes.last().Message)
	assert.Equal(t, Stats{Students: 2, Records: 3}, c.State().Stats)
}

func TestSummaryExport(t *testing.T) {
	c, backend, notes, sink := loggedIn(t)

	require.NoError(t, c.Dispatch(context.Background(), Export{}))

	data, ok := sink.files["points_summary_2024-03-09.csv"]
	require.True(t, ok)
	require.True(t, bytes.HasPrefix(data, []byte(export.ByteOrderMark)))
	rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte(export.ByteOrderMark)))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, len(backend.summaries)+1)
	assert.Equal(t, "+2", rows[1][5])
	assert.Equal(t, "-4", rows[2][5])
	assert.Equal(t, "export saved: /exports/points_summary_2024-03-09.csv", notes.last().Message)
}

func TestDetailExportIgnoresSearchTerm(t *testing.T) {
	c, backend, _, sink := loggedIn(t)
	ctx := context.Background()
	require.NoError(t, c.Dispatch(ctx, SetViewMode{Mode: models.ViewDetail}))
	require.NoError(t, c.Dispatch(ctx, Search{Term: "kim"}))

	require.NoError(t, c.Dispatch(ctx, Export{}))

	data := sink.files["points_detail_2024-03-09.csv"]
	rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte(export.ByteOrderMark)))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, len(backend.records)+1)
	assert.Equal(t, "late, again", rows[2][3])
	assert.Contains(t, string(data), `"helped"`)
}

func TestExportSinkFailure(t *testing.T) {
	c, _, notes, sink := loggedIn(t)
	sink.err = errors.New("disk full")

	require.Error(t, c.Dispatch(context.Background(), Export{}))
	assert.Equal(t, "export failed: disk full", notes.last().Message)
}

func TestDeleteUncachedRecord(t *testing.T) {
	c, backend, notes, _ := loggedIn(t)

	err := c.Dispatch(context.Background(), BeginDelete{ID: 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	assert.Equal(t, "record not found", notes.last().Message)

	require.Error(t, c.Dispatch(context.Background(), ConfirmDelete{}))
	assert.Zero(t, backend.count("DeleteRecord"))
}

func TestDeleteCachedRecord(t *testing.T) {
	c, backend, notes, _ := loggedIn(t)
	ctx := context.Background()
	require.NoError(t, c.Dispatch(ctx, SetViewMode{Mode: models.ViewDetail}))

	require.NoError(t, c.Dispatch(ctx, BeginDelete{ID: 2}))
	modal := c.State().Modal
	require.NotNil(t, modal)
	assert.Equal(t, ModalDeleteConfirm, modal.Kind)
	assert.Contains(t, modal.Message, "late, again")

	require.NoError(t, c.Dispatch(ctx, ConfirmDelete{}))
	assert.Equal(t, []int64{2}, backend.deleted)
	assert.Nil(t, c.State().Modal)
	assert.Equal(t, "record deleted", notes.last().Message)
}

func TestEditPrefillsAbsolutePoints(t *testing.T) {
	c, backend, _, _ := loggedIn(t)
	ctx := context.Background()
	require.NoError(t, c.Dispatch(ctx, SetViewMode{Mode: models.ViewDetail}))

	require.NoError(t, c.Dispatch(ctx, BeginEdit{ID: 2}))
	draft := c.State().Modal.Edit
	assert.Equal(t, "3", draft.Points)
	assert.Equal(t, models.PointTypeDeduction, draft.PointType)

	err := c.Dispatch(ctx, SubmitEdit{StudentID: "1234", Name: "Kim", Points: "4", Reason: "late", PointType: models.PointTypeDeduction})
	require.Error(t, err)
	assert.Zero(t, backend.count("UpdateRecord"))

	require.NoError(t, c.Dispatch(ctx, SubmitEdit{StudentID: "1234", Name: "Kim", Points: "4", Reason: "late", PointType: models.PointTypeDeduction, Date: "2024-03-02"}))
	assert.Equal(t, 4, backend.updated[2].Points)
	assert.Nil(t, c.State().Modal)
}

func TestResetRefreshesListAndStats(t *testing.T) {
	c, backend, notes, _ := loggedIn(t)
	ctx := context.Background()
	summariesBefore := backend.count("ListSummaries")
	recordsBefore := backend.count("ListRecords")

	require.NoError(t, c.Dispatch(ctx, BeginReset{}))
	assert.Equal(t, ModalResetConfirm, c.State().Modal.Kind)
	require.NoError(t, c.Dispatch(ctx, ConfirmReset{}))

	assert.Equal(t, 1, backend.count("Reset"))
	assert.Equal(t, summariesBefore+2, backend.count("ListSummaries"))
	assert.Equal(t, recordsBefore+1, backend.count("ListRecords"))
	assert.Equal(t, "all data reset", notes.last().Message)
}

func TestChangePassword(t *testing.T) {
	c, backend, notes, _ := loggedIn(t)
	ctx := context.Background()
	require.NoError(t, c.Dispatch(ctx, OpenChangePassword{}))

	require.Error(t, c.Dispatch(ctx, ChangePassword{Old: "wrong", New: "secret"}))
	assert.Equal(t, "current password is incorrect", notes.last().Message)
	assert.Equal(t, ModalChangePassword, c.State().Modal.Kind)

	require.Error(t, c.Dispatch(ctx, ChangePassword{Old: "admin123", New: "ab"}))
	assert.Equal(t, 1, backend.count("ChangePassword"))

	require.NoError(t, c.Dispatch(ctx, ChangePassword{Old: "admin123", New: "secret"}))
	assert.Equal(t, "secret", backend.validPassword)
	assert.Nil(t, c.State().Modal)
}

func TestStudentDetailAndBackups(t *testing.T) {
	c, backend, _, _ := loggedIn(t)
	ctx := context.Background()
	backend.backups = []models.BackupInfo{{Name: "backup_20240301_120000.json", Records: 3}}

	require.NoError(t, c.Dispatch(ctx, ShowStudentDetail{StudentID: "1234", Name: "Kim"}))
	modal := c.State().Modal
	assert.Equal(t, ModalStudentDetail, modal.Kind)
	assert.Len(t, modal.Records, 2)

	require.NoError(t, c.Dispatch(ctx, OpenBackups{}))
	assert.Len(t, c.State().Modal.Backups, 1)

	require.NoError(t, c.Dispatch(ctx, RestoreBackup{Name: "backup_20240301_120000.json"}))
	assert.Equal(t, []string{"backup_20240301_120000.json"}, backend.restored)
	assert.Nil(t, c.State().Modal)
}

func TestLogoutKeepsViewPreferences(t *testing.T) {
	c, backend, _, _ := loggedIn(t)
	ctx := context.Background()
	require.NoError(t, c.Dispatch(ctx, SetViewMode{Mode: models.ViewDetail}))
	require.NoError(t, c.Dispatch(ctx, Search{Term: "lee"}))

	require.NoError(t, c.Dispatch(ctx, Logout{}))

	state := c.State()
	assert.Equal(t, ScreenLogin, state.Screen)
	assert.Equal(t, models.ViewDetail, state.ViewMode)
	assert.Equal(t, "lee", state.SearchTerm)
	assert.True(t, backend.closed)
}

func TestNotificationsExpire(t *testing.T) {
	now := fixedNow
	backend := newFakeBackend()
	sampleData(backend)
	c := New(backend, Options{Clock: func() time.Time { return now }})
	require.NoError(t, c.Dispatch(context.Background(), Login{Password: "admin123"}))
	require.NoError(t, c.Dispatch(context.Background(), Refresh{}))
	require.Len(t, c.Notifications(), 1)

	now = now.Add(2 * time.Second)
	assert.Empty(t, c.Notifications())
}
