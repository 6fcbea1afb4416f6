package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/attendance-tracker/internal/apperror"
	"github.com/sakif/attendance-tracker/internal/model"
	"github.com/sakif/attendance-tracker/internal/repository"
)

func createTestRecord(t *testing.T, db *DB, userID, className string, at time.Time) *model.Record {
	t.Helper()
	rec := &model.Record{UserID: userID, ClassName: className, Role: "student", Date: at}
	require.NoError(t, db.CreateRecord(context.Background(), rec))
	return rec
}

func day(hour, minute int) time.Time {
	return time.Date(2026, 5, 12, hour, minute, 0, 0, time.UTC)
}

func TestCreateRecord_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "alice")

	at := time.Date(2026, 5, 12, 9, 30, 15, 123456789, time.UTC)
	rec := createTestRecord(t, db, user.ID, "math", at)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, at.Truncate(time.Millisecond), rec.Date, "date is truncated to storage precision")

	found, err := db.GetRecordByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, *rec, *found)
}

func TestCreateRecord_UnknownOwner(t *testing.T) {
	db := newTestDB(t)

	err := db.CreateRecord(context.Background(), &model.Record{
		UserID: "nobody", ClassName: "math", Role: "student", Date: day(9, 0),
	})
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}

func TestListRecords_ScopedToOwnerAndOrdered(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	createTestRecord(t, db, alice.ID, "physics", day(14, 0))
	createTestRecord(t, db, alice.ID, "math", day(9, 0))
	createTestRecord(t, db, bob.ID, "math", day(10, 0))

	got, err := db.ListRecords(context.Background(), alice.ID, repository.RecordFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "math", got[0].ClassName)
	assert.Equal(t, "physics", got[1].ClassName)
	for _, r := range got {
		assert.Equal(t, alice.ID, r.UserID)
	}
}

func TestListRecords_EmptyIsNotNil(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")

	got, err := db.ListRecords(context.Background(), alice.ID, repository.RecordFilter{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListRecords_FilterIsCaseInsensitiveSubstring(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")

	for _, class := range []string{"chapter", "apple", "banana", "map reading"} {
		createTestRecord(t, db, alice.ID, class, day(9, 0))
	}

	got, err := db.ListRecords(context.Background(), alice.ID, repository.RecordFilter{ClassName: "AP"})
	require.NoError(t, err)

	var classes []string
	for _, r := range got {
		classes = append(classes, r.ClassName)
	}
	assert.ElementsMatch(t, []string{"chapter", "apple", "map reading"}, classes)
}

func TestListRecords_FilterEscapesWildcards(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")

	createTestRecord(t, db, alice.ID, "100% effort", day(9, 0))
	createTestRecord(t, db, alice.ID, "1000 words", day(9, 0))
	createTestRecord(t, db, alice.ID, "snake_case", day(9, 0))
	createTestRecord(t, db, alice.ID, "snakeXcase", day(9, 0))

	got, err := db.ListRecords(context.Background(), alice.ID, repository.RecordFilter{ClassName: "0%"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "100% effort", got[0].ClassName)

	got, err = db.ListRecords(context.Background(), alice.ID, repository.RecordFilter{ClassName: "e_c"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "snake_case", got[0].ClassName)
}

func TestDeleteRecord(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	rec := createTestRecord(t, db, alice.ID, "math", day(9, 0))

	require.NoError(t, db.DeleteRecord(context.Background(), rec.ID))

	_, err := db.GetRecordByID(context.Background(), rec.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	// Second delete reports NotFound rather than failing in some other way.
	err = db.DeleteRecord(context.Background(), rec.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}

func TestDeleteRecord_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.DeleteRecord(context.Background(), "does-not-exist")
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}

func TestCountByClass_WindowIsHalfOpen(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	from := day(0, 0)
	to := from.AddDate(0, 0, 1)

	createTestRecord(t, db, alice.ID, "a", day(10, 0))
	createTestRecord(t, db, alice.ID, "a", day(14, 0))
	createTestRecord(t, db, alice.ID, "b", day(23, 59))
	createTestRecord(t, db, alice.ID, "b", from)                        // start is inclusive
	createTestRecord(t, db, alice.ID, "a", from.Add(-time.Millisecond)) // previous day
	createTestRecord(t, db, alice.ID, "c", to)                          // next day start is exclusive
	createTestRecord(t, db, bob.ID, "a", day(11, 0))                    // someone else's

	got, err := db.CountByClass(context.Background(), alice.ID, from, to)
	require.NoError(t, err)
	assert.Equal(t, []model.ClassCount{
		{ClassName: "a", Count: 2},
		{ClassName: "b", Count: 2},
	}, got)
}

func TestCountByClass_NoRecords(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")

	got, err := db.CountByClass(context.Background(), alice.ID, day(0, 0), day(0, 0).AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, got)
}
