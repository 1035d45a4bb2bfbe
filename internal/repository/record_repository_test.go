package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-merit/internal/models"
)

var recordCols = []string{"id", "student_id", "name", "reason", "points", "point_type", "recorded_at", "record_date"}

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

type observerStub struct {
	labels []string
}

func (o *observerStub) ObserveDBQuery(label string, _ time.Duration) {
	o.labels = append(o.labels, label)
}

func TestRecordRepositoryListUnfiltered(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	obs := &observerStub{}
	repo := NewRecordRepository(db, obs)
	now := time.Now()
	rows := sqlmock.NewRows(recordCols).
		AddRow(2, "1234", "Kim", "helped", 5, "award", now, "2024-03-02").
		AddRow(1, "1234", "Kim", "late", -3, "deduction", now, "2024-03-01")
	mock.ExpectQuery(regexp.QuoteMeta("FROM records ORDER BY record_date DESC, recorded_at DESC")).
		WithoutArgs().
		WillReturnRows(rows)

	records, err := repo.List(context.Background(), models.RecordFilter{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(2), records[0].ID)
	assert.Equal(t, -3, records[1].Points)
	assert.Equal(t, models.PointTypeDeduction, records[1].PointType)
	assert.Equal(t, []string{"records.list"}, obs.labels)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryListSearchEscapesWildcards(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	repo := NewRecordRepository(db, nil)
	mock.ExpectQuery(regexp.QuoteMeta(`LOWER(reason) LIKE $1 ESCAPE '\'`)).
		WithArgs(`%50\% ki\_m%`).
		WillReturnRows(sqlmock.NewRows(recordCols))

	records, err := repo.List(context.Background(), models.RecordFilter{Term: "  50% KI_M "})
	require.NoError(t, err)
	assert.Empty(t, records)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryStudentFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	repo := NewRecordRepository(db, nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE student_id = $1")).
		WithArgs("1234").
		WillReturnRows(sqlmock.NewRows(recordCols).AddRow(1, "1234", "Kim", "helped", 5, "award", time.Now(), "2024-03-01"))

	records, err := repo.List(context.Background(), models.RecordFilter{StudentID: "1234"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	repo := NewRecordRepository(db, nil)
	record := &models.Record{StudentID: "1234", Name: "Kim", Reason: "helped", Points: 5, PointType: models.PointTypeAward, Timestamp: time.Now(), Date: "2024-03-01"}
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO records")).
		WithArgs("1234", "Kim", "helped", 5, models.PointTypeAward, sqlmock.AnyArg(), "2024-03-01").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	require.NoError(t, repo.Create(context.Background(), record))
	assert.Equal(t, int64(42), record.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	repo := NewRecordRepository(db, nil)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE records SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Record{ID: 9, StudentID: "1", Name: "A", Reason: "r", Points: 1, PointType: models.PointTypeAward, Date: "2024-01-01"})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	repo := NewRecordRepository(db, nil)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM records WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM records WHERE id = $1")).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), 3))
	assert.ErrorIs(t, repo.Delete(context.Background(), 4), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryDrainAllKeepsRowsBeforeCommit(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	obs := &observerStub{}
	repo := NewRecordRepository(db, obs)
	ts := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(recordCols).
		AddRow(1, "1234", "Kim", "helped", 5, "award", ts, "2024-03-01").
		AddRow(3, "5678", "Lee", "late", -2, "deduction", ts, "2024-03-02").
		AddRow(2, "1234", "Kim", "tidy", 1, "award", ts, "2024-03-01")
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM records RETURNING id, student_id")).WillReturnRows(rows)
	mock.ExpectCommit()

	var kept []int64
	n, err := repo.DrainAll(context.Background(), func(records []models.Record) error {
		for _, r := range records {
			kept = append(kept, r.ID)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, []int64{3, 2, 1}, kept)
	assert.Equal(t, []string{"records.drain_all"}, obs.labels)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryDrainAllRollsBackWhenKeepFails(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	repo := NewRecordRepository(db, nil)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM records RETURNING")).
		WillReturnRows(sqlmock.NewRows(recordCols).AddRow(1, "1", "A", "r", 1, "award", time.Now(), "2024-01-01"))
	mock.ExpectRollback()

	keepErr := errors.New("disk full")
	n, err := repo.DrainAll(context.Background(), func([]models.Record) error { return keepErr })
	assert.ErrorIs(t, err, keepErr)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryReplaceAllRunsInTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	repo := NewRecordRepository(db, nil)
	records := []models.Record{
		{ID: 1, StudentID: "1", Name: "A", Reason: "r", Points: 2, PointType: models.PointTypeAward, Timestamp: time.Now(), Date: "2024-01-01"},
		{ID: 5, StudentID: "2", Name: "B", Reason: "s", Points: -1, PointType: models.PointTypeDeduction, Timestamp: time.Now(), Date: "2024-01-02"},
	}
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM records")).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO records (id,")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO records (id,")).WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec(regexp.QuoteMeta("SELECT setval(pg_get_serial_sequence('records', 'id')")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceAll(context.Background(), records))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryReplaceAllRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	repo := NewRecordRepository(db, nil)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM records")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO records (id,")).WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := repo.ReplaceAll(context.Background(), []models.Record{{ID: 1, StudentID: "1", Name: "A", Reason: "r", Points: 1, PointType: models.PointTypeAward, Date: "2024-01-01"}})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositorySummaries(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	repo := NewRecordRepository(db, nil)
	last := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"student_id", "name", "merit", "demerit", "offset_points", "total", "last_activity"}).
		AddRow("1234", "Kim", 10, 3, 1, 8, last)
	mock.ExpectQuery(`GROUP BY student_id, name\s+ORDER BY last_activity DESC`).
		WithArgs("%kim%").
		WillReturnRows(rows)

	summaries, err := repo.Summaries(context.Background(), models.RecordFilter{Term: "Kim"})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, models.Summary{StudentID: "1234", Name: "Kim", Merit: 10, Demerit: 3, Offset: 1, Total: 8, LastActivity: last}, summaries[0])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordWhereSummariesSkipReason(t *testing.T) {
	where, args := recordWhere(models.RecordFilter{Term: "x"}, false)
	assert.NotContains(t, where, "reason")
	assert.Equal(t, []interface{}{"%x%"}, args)

	where, args = recordWhere(models.RecordFilter{}, false)
	assert.Empty(t, where)
	assert.Empty(t, args)
}
