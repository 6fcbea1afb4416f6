// Package repository declares the storage contracts the service layer
// depends on. internal/repository/sqlite implements them.
package repository

import (
	"context"
	"time"

	"github.com/sakif/attendance-tracker/internal/model"
)

// UserRepository is the user directory.
type UserRepository interface {
	// CreateUser inserts a new user and fills in ID and CreatedAt.
	// A name that is already taken yields apperror.ErrConflict.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByName(ctx context.Context, name string) (*model.User, error)
}

// RecordFilter narrows ListRecords. An empty ClassName matches everything.
type RecordFilter struct {
	ClassName string
}

// RecordRepository stores attendance records.
type RecordRepository interface {
	// CreateRecord inserts a record and fills in its ID.
	CreateRecord(ctx context.Context, record *model.Record) error
	GetRecordByID(ctx context.Context, id string) (*model.Record, error)
	// ListRecords returns the owner's records, oldest first.
	ListRecords(ctx context.Context, userID string, filter RecordFilter) ([]model.Record, error)
	DeleteRecord(ctx context.Context, id string) error
	// CountByClass tallies the owner's records with from <= date < to,
	// grouped by class name and ordered by it.
	CountByClass(ctx context.Context, userID string, from, to time.Time) ([]model.ClassCount, error)
}
