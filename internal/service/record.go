package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/attendance-tracker/internal/apperror"
	"github.com/sakif/attendance-tracker/internal/auth"
	"github.com/sakif/attendance-tracker/internal/model"
	"github.com/sakif/attendance-tracker/internal/repository"
)

// Caller-facing record failures.
const (
	MsgClassNameEmpty  = "className is empty"
	MsgRoleEmpty       = "role is empty"
	MsgRecordIDMissing = "Record id not provided"
	MsgRecordNotYours  = "Record belongs to another user"
	MsgDateOutOfRange  = "date must fall between years 0000 and 9999"
)

// MaxRecordFieldLength bounds className and role, in bytes.
const MaxRecordFieldLength = 200

// RecordService creates, lists and deletes attendance records and
// aggregates them per day.
type RecordService struct {
	repo   repository.RecordRepository
	policy auth.OwnershipPolicy
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

// NewRecordService creates a RecordService.
//
// loc is the location whose midnight starts a stats day; nil means UTC.
func NewRecordService(
	repo repository.RecordRepository,
	policy auth.OwnershipPolicy,
	loc *time.Location,
	logger *slog.Logger,
) *RecordService {
	if loc == nil {
		loc = time.UTC
	}
	return &RecordService{
		repo:   repo,
		policy: policy,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
}

// Create validates and stores a new record owned by the caller.
//
// className and role are trimmed and lowercased so grouping is consistent.
// A zero date means now.
func (s *RecordService) Create(ctx context.Context, owner model.Identity, className, role string, date time.Time) (*model.Record, error) {
	className = strings.ToLower(strings.TrimSpace(className))
	role = strings.ToLower(strings.TrimSpace(role))

	if className == "" {
		return nil, apperror.ValidationFailed("className", MsgClassNameEmpty)
	}
	if role == "" {
		return nil, apperror.ValidationFailed("role", MsgRoleEmpty)
	}
	if len(className) > MaxRecordFieldLength {
		return nil, apperror.ValidationFailed("className",
			fmt.Sprintf("className must be %d characters or less", MaxRecordFieldLength))
	}
	if len(role) > MaxRecordFieldLength {
		return nil, apperror.ValidationFailed("role",
			fmt.Sprintf("role must be %d characters or less", MaxRecordFieldLength))
	}

	if date.IsZero() {
		date = s.now()
	}
	// JSON timestamps cover years 0000-9999 only.
	if y := date.UTC().Year(); y < 0 || y > 9999 {
		return nil, apperror.ValidationFailed("date", MsgDateOutOfRange)
	}

	record := &model.Record{
		UserID:    owner.UserID,
		ClassName: className,
		Role:      role,
		Date:      date.UTC(),
	}
	if err := s.repo.CreateRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("service/record: creating record: %w", err)
	}

	s.logger.Debug("record created",
		slog.String("recordID", record.ID),
		slog.String("userID", owner.UserID),
		slog.String("className", className),
	)
	return record, nil
}

// List returns the caller's records, oldest first. A non-empty
// classNameFilter keeps records whose class contains it, ignoring case.
func (s *RecordService) List(ctx context.Context, owner model.Identity, classNameFilter string) ([]model.Record, error) {
	filter := repository.RecordFilter{ClassName: strings.TrimSpace(classNameFilter)}

	records, err := s.repo.ListRecords(ctx, owner.UserID, filter)
	if err != nil {
		return nil, fmt.Errorf("service/record: listing records: %w", err)
	}
	return records, nil
}

// Delete removes a record by id.
//
// Under OwnershipEnforced a record owned by someone else yields
// apperror.ErrForbidden and is left in place.
func (s *RecordService) Delete(ctx context.Context, caller model.Identity, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", MsgRecordIDMissing)
	}

	if s.policy == auth.OwnershipEnforced {
		record, err := s.repo.GetRecordByID(ctx, id)
		if err != nil {
			return fmt.Errorf("service/record: fetching record %s: %w", id, err)
		}
		if !s.policy.MayMutate(record, caller) {
			s.logger.Warn("record delete refused",
				slog.String("recordID", id),
				slog.String("userID", caller.UserID),
			)
			return apperror.Forbidden(MsgRecordNotYours)
		}
	}

	if err := s.repo.DeleteRecord(ctx, id); err != nil {
		return fmt.Errorf("service/record: deleting record %s: %w", id, err)
	}

	s.logger.Debug("record deleted",
		slog.String("recordID", id),
		slog.String("userID", caller.UserID),
		slog.String("policy", s.policy.String()),
	)
	return nil
}

// Location is where stats days start at midnight.
func (s *RecordService) Location() *time.Location {
	return s.loc
}

// DayBounds returns [start, end) of the calendar day containing t in the
// service's location.
func (s *RecordService) DayBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1)
}

// ParseDay parses a YYYY-MM-DD day in the service's location.
func (s *RecordService) ParseDay(day string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(day), s.loc)
	if err != nil {
		return time.Time{}, apperror.ValidationFailed("day", "day must be formatted as YYYY-MM-DD")
	}
	return t, nil
}

// DailyStats counts the caller's records per class for the day containing
// day, sorted by class name. Classes with no records that day are absent.
func (s *RecordService) DailyStats(ctx context.Context, owner model.Identity, day time.Time) ([]model.ClassCount, error) {
	from, to := s.DayBounds(day)

	counts, err := s.repo.CountByClass(ctx, owner.UserID, from, to)
	if err != nil {
		return nil, fmt.Errorf("service/record: counting records: %w", err)
	}
	return counts, nil
}

// TodayStats is DailyStats for the current day.
func (s *RecordService) TodayStats(ctx context.Context, owner model.Identity) ([]model.ClassCount, error) {
	return s.DailyStats(ctx, owner, s.now())
}

// CountByClassForDay is DailyStats keyed by class name.
func (s *RecordService) CountByClassForDay(ctx context.Context, owner model.Identity, day time.Time) (map[string]int, error) {
	counts, err := s.DailyStats(ctx, owner, day)
	if err != nil {
		return nil, err
	}

	byClass := make(map[string]int, len(counts))
	for _, c := range counts {
		byClass[c.ClassName] = c.Count
	}
	return byClass, nil
}
