package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/attendance-tracker/internal/apperror"
	"github.com/sakif/attendance-tracker/internal/model"
	"github.com/sakif/attendance-tracker/internal/repository"
)

var _ repository.RecordRepository = (*DB)(nil)

// Dates are stored as UTC unix milliseconds so range filters compare
// integers instead of formatted strings.
func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// CreateRecord inserts a record owned by record.UserID and sets record.ID.
// The date is truncated to millisecond precision, the storage resolution.
//
// An owner that does not exist yields apperror.ErrNotFound.
func (db *DB) CreateRecord(ctx context.Context, record *model.Record) error {
	record.ID = xid.New().String()
	record.Date = fromMillis(toMillis(record.Date))

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO records (id, user_id, class_name, role, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		record.ID,
		record.UserID,
		record.ClassName,
		record.Role,
		toMillis(record.Date),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", record.UserID)
		}
		return fmt.Errorf("sqlite: creating record: %w", err)
	}

	return nil
}

// GetRecordByID retrieves a single record, including its owner.
func (db *DB) GetRecordByID(ctx context.Context, id string) (*model.Record, error) {
	var (
		rec model.Record
		ms  int64
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, class_name, role, recorded_at
		 FROM records
		 WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.UserID, &rec.ClassName, &rec.Role, &ms)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("record", id)
		}
		return nil, fmt.Errorf("sqlite: getting record %s: %w", id, err)
	}
	rec.Date = fromMillis(ms)

	return &rec, nil
}

// ListRecords returns every record owned by userID, oldest first.
//
// filter.ClassName is a case-insensitive substring match. LIKE wildcards in
// the filter are escaped, so "50%" matches a literal percent sign.
func (db *DB) ListRecords(ctx context.Context, userID string, filter repository.RecordFilter) ([]model.Record, error) {
	query := `SELECT id, user_id, class_name, role, recorded_at
		 FROM records
		 WHERE user_id = ?`
	args := []any{userID}

	if filter.ClassName != "" {
		query += ` AND lower(class_name) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(filter.ClassName))+"%")
	}
	query += ` ORDER BY recorded_at ASC, id ASC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing records: %w", err)
	}
	defer rows.Close()

	records := make([]model.Record, 0)
	for rows.Next() {
		var (
			rec model.Record
			ms  int64
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ClassName, &rec.Role, &ms); err != nil {
			return nil, fmt.Errorf("sqlite: scanning record row: %w", err)
		}
		rec.Date = fromMillis(ms)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating records: %w", err)
	}

	return records, nil
}

// DeleteRecord removes a record by ID. A missing record yields
// apperror.ErrNotFound, so deleting twice is safe.
func (db *DB) DeleteRecord(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting record %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("record", id)
	}

	return nil
}

// CountByClass tallies the owner's records in [from, to) by class name.
// Classes without records in the window are absent.
func (db *DB) CountByClass(ctx context.Context, userID string, from, to time.Time) ([]model.ClassCount, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT class_name, COUNT(*)
		 FROM records
		 WHERE user_id = ? AND recorded_at >= ? AND recorded_at < ?
		 GROUP BY class_name
		 ORDER BY class_name ASC`,
		userID,
		toMillis(from),
		toMillis(to),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting records by class: %w", err)
	}
	defer rows.Close()

	counts := make([]model.ClassCount, 0)
	for rows.Next() {
		var c model.ClassCount
		if err := rows.Scan(&c.ClassName, &c.Count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning class count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating class counts: %w", err)
	}

	return counts, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
