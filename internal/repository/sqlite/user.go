package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/attendance-tracker/internal/apperror"
	"github.com/sakif/attendance-tracker/internal/model"
	"github.com/sakif/attendance-tracker/internal/repository"
)

// MsgUserExists is the caller-facing message for a taken user name.
const MsgUserExists = "User already registered"

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, name, password_hash, is_admin, avatar_url, display_name, created_at`

// CreateUser inserts a new user. ID and CreatedAt are generated here.
//
// The UNIQUE constraint on name is the real duplicate guard: when two
// registrations race past the service's existence check, the second INSERT
// fails here and is reported as apperror.ErrConflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.PasswordHash,
		user.IsAdmin,
		user.AvatarURL,
		user.DisplayName,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(MsgUserExists)
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Name, err)
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByName retrieves a user by their unique name.
// Returns apperror.ErrNotFound if no user has that name.
func (db *DB) GetUserByName(ctx context.Context, name string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE name = ?`, name)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.New(apperror.ErrNotFound, "User not found")
		}
		return nil, fmt.Errorf("sqlite: getting user by name %q: %w", name, err)
	}
	return u, nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(
		&u.ID,
		&u.Name,
		&u.PasswordHash,
		&u.IsAdmin,
		&u.AvatarURL,
		&u.DisplayName,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}
