package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-merit/internal/models"
)

const recordColumns = "id, student_id, name, reason, points, point_type, recorded_at, record_date"

// QueryObserver receives timings for repository queries.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// RecordRepository manages persistence for point records and computes summaries.
type RecordRepository struct {
	db       *sqlx.DB
	observer QueryObserver
}

// NewRecordRepository constructs a new repository. observer may be nil.
func NewRecordRepository(db *sqlx.DB, observer QueryObserver) *RecordRepository {
	return &RecordRepository{db: db, observer: observer}
}

// List returns records matching the filter, newest date first.
func (r *RecordRepository) List(ctx context.Context, filter models.RecordFilter) ([]models.Record, error) {
	defer r.observe("records.list", time.Now())
	where, args := recordWhere(filter, true)
	query := fmt.Sprintf("SELECT %s FROM records%s ORDER BY record_date DESC, recorded_at DESC, id DESC", recordColumns, where)
	records := make([]models.Record, 0)
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// FindByID loads a single record.
func (r *RecordRepository) FindByID(ctx context.Context, id int64) (*models.Record, error) {
	defer r.observe("records.find", time.Now())
	var record models.Record
	query := fmt.Sprintf("SELECT %s FROM records WHERE id = $1", recordColumns)
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts a record and stores the generated id on it.
func (r *RecordRepository) Create(ctx context.Context, record *models.Record) error {
	defer r.observe("records.create", time.Now())
	query := `INSERT INTO records (student_id, name, reason, points, point_type, recorded_at, record_date)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		record.StudentID, record.Name, record.Reason, record.Points, record.PointType, record.Timestamp, record.Date,
	).Scan(&record.ID); err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

// Update replaces all editable fields. Returns sql.ErrNoRows when the id does not exist.
func (r *RecordRepository) Update(ctx context.Context, record *models.Record) error {
	defer r.observe("records.update", time.Now())
	query := `UPDATE records SET student_id = :student_id, name = :name, reason = :reason, points = :points,
point_type = :point_type, record_date = :record_date, recorded_at = :recorded_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a record. Returns sql.ErrNoRows when the id does not exist.
func (r *RecordRepository) Delete(ctx context.Context, id int64) error {
	defer r.observe("records.delete", time.Now())
	res, err := r.db.ExecContext(ctx, "DELETE FROM records WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return requireAffected(res)
}

// DrainAll deletes every record in one transaction and passes the removed rows,
// newest first, to keep before committing. An error from keep rolls the delete back.
func (r *RecordRepository) DrainAll(ctx context.Context, keep func([]models.Record) error) (int64, error) {
	defer r.observe("records.drain_all", time.Now())
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	removed := make([]models.Record, 0)
	query := fmt.Sprintf("DELETE FROM records RETURNING %s", recordColumns)
	if err := tx.SelectContext(ctx, &removed, query); err != nil {
		return 0, fmt.Errorf("clear records: %w", err)
	}
	sort.SliceStable(removed, func(i, j int) bool {
		a, b := removed[i], removed[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID > b.ID
	})
	if err := keep(removed); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit reset: %w", err)
	}
	return int64(len(removed)), nil
}

// ReplaceAll swaps the table contents for records inside one transaction, keeping their ids.
func (r *RecordRepository) ReplaceAll(ctx context.Context, records []models.Record) error {
	defer r.observe("records.replace_all", time.Now())
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin restore: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM records"); err != nil {
		return fmt.Errorf("clear records before restore: %w", err)
	}
	insert := `INSERT INTO records (id, student_id, name, reason, points, point_type, recorded_at, record_date)
VALUES (:id, :student_id, :name, :reason, :points, :point_type, :recorded_at, :record_date)`
	for i := range records {
		if _, err := tx.NamedExecContext(ctx, insert, &records[i]); err != nil {
			return fmt.Errorf("restore record %d: %w", records[i].ID, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `SELECT setval(pg_get_serial_sequence('records', 'id'), COALESCE(MAX(id), 1), MAX(id) IS NOT NULL) FROM records`); err != nil {
		return fmt.Errorf("reset record sequence: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit restore: %w", err)
	}
	return nil
}

// Summaries aggregates records per (student_id, name), most recently active first.
func (r *RecordRepository) Summaries(ctx context.Context, filter models.RecordFilter) ([]models.Summary, error) {
	defer r.observe("records.summaries", time.Now())
	where, args := recordWhere(filter, false)
	query := fmt.Sprintf(`SELECT student_id, name,
    COALESCE(SUM(CASE WHEN point_type = 'award' THEN points ELSE 0 END), 0) AS merit,
    COALESCE(SUM(CASE WHEN point_type = 'deduction' THEN ABS(points) ELSE 0 END), 0) AS demerit,
    COALESCE(SUM(CASE WHEN point_type = 'offset' THEN points ELSE 0 END), 0) AS offset_points,
    COALESCE(SUM(points), 0) AS total,
    MAX(recorded_at) AS last_activity
FROM records%s
GROUP BY student_id, name
ORDER BY last_activity DESC`, where)
	summaries := make([]models.Summary, 0)
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		return nil, fmt.Errorf("summarise records: %w", err)
	}
	return summaries, nil
}

func (r *RecordRepository) observe(label string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveDBQuery(label, time.Since(start))
	}
}

// recordWhere builds the WHERE clause. Summaries do not search the reason column.
func recordWhere(filter models.RecordFilter, includeReason bool) (string, []interface{}) {
	where := []string{}
	args := []interface{}{}
	if term := filter.Normalized(); term != "" {
		args = append(args, likePattern(term))
		p := fmt.Sprintf("$%d", len(args))
		cols := []string{"student_id", "name"}
		if includeReason {
			cols = append(cols, "reason")
		}
		parts := make([]string, len(cols))
		for i, col := range cols {
			parts[i] = fmt.Sprintf(`LOWER(%s) LIKE %s ESCAPE '\'`, col, p)
		}
		where = append(where, "("+strings.Join(parts, " OR ")+")")
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func likePattern(term string) string {
	escaper := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + escaper.Replace(term) + "%"
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
