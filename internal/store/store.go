package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"mechinsight-backend/internal/model"
)

// Sentinel errors surfaced by the store; handlers map them to HTTP status.
var (
	// ErrNoMachines means a user has zero ownership rows. Callers surface
	// this as a 404, never as an empty success.
	ErrNoMachines = errors.New("no machines registered for user")
	// ErrNoTelemetry means no telemetry rows exist for a machine.
	ErrNoTelemetry = errors.New("no telemetry for machine")
	// ErrUserNotFound means the username has no account.
	ErrUserNotFound = errors.New("user not found")
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	// Users.
	CreateUser(ctx context.Context, u *model.User) error
	UserByUsername(ctx context.Context, username string) (*model.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)

	// Authorization resolver.
	ResolveOwnedMachines(ctx context.Context, username string) ([]int64, error)
	AuthorizeMachineAccess(ctx context.Context, username string, machineID int64) (bool, error)

	// Telemetry query engine.
	LatestPerMachine(ctx context.Context, machineIDs []int64, cap int) ([]model.TelemetrySample, error)
	History(ctx context.Context, machineID int64, limit int) ([]model.TelemetrySample, error)

	// Ingest. Returns the distinct machine ids that received new rows.
	InsertSamples(ctx context.Context, samples []model.TelemetrySample) ([]int64, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying handle for callers that manage their own
// transactions (subscription handlers, alert worker).
func (s *gormStore) DB() *gorm.DB { return s.db }

// CreateUser inserts a new user record.
func (s *gormStore) CreateUser(ctx context.Context, u *model.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("failed to create user %q: %w", u.Username, err)
	}
	return nil
}

// UserByUsername looks up a user by username.
func (s *gormStore) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %q: %w", username, err)
	}
	return &u, nil
}

// EmailExists reports whether an account already uses the given email.
func (s *gormStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", email).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return count > 0, nil
}

// ResolveOwnedMachines returns every machine id the username owns.
// Zero rows is ErrNoMachines, not an empty success.
func (s *gormStore) ResolveOwnedMachines(ctx context.Context, username string) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).
		Model(&model.Ownership{}).
		Where("username = ?", username).
		Pluck("machine_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve machines for %q: %w", username, err)
	}
	if len(ids) == 0 {
		return nil, ErrNoMachines
	}
	return ids, nil
}

// AuthorizeMachineAccess reports whether the exact (username, machineID)
// pairing exists. It deliberately does not distinguish a machine that does
// not exist from one owned by someone else.
func (s *gormStore) AuthorizeMachineAccess(ctx context.Context, username string, machineID int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.Ownership{}).
		Where("username = ? AND machine_id = ?", username, machineID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check access for %q to machine %d: %w", username, machineID, err)
	}
	return count > 0, nil
}

// LatestPerMachine returns the newest sample for each requested machine,
// sorted newest-first and truncated to cap. Rows sharing a machine's newest
// timestamp are broken by highest row id. An empty input set yields an empty
// result, not an error.
func (s *gormStore) LatestPerMachine(ctx context.Context, machineIDs []int64, cap int) ([]model.TelemetrySample, error) {
	samples := make([]model.TelemetrySample, 0, len(machineIDs))
	if len(machineIDs) == 0 {
		return samples, nil
	}

	latestTimes := s.db.Model(&model.TelemetrySample{}).
		Select("machine_id, MAX(timestamp)").
		Where("machine_id IN ?", machineIDs).
		Group("machine_id")
	latestRows := s.db.Model(&model.TelemetrySample{}).
		Select("MAX(row_id)").
		Where("(machine_id, timestamp) IN (?)", latestTimes).
		Group("machine_id")

	err := s.db.WithContext(ctx).
		Where("row_id IN (?)", latestRows).
		Order("timestamp DESC, machine_id").
		Limit(cap).
		Find(&samples).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest samples: %w", err)
	}
	return samples, nil
}

// History returns up to limit samples for one machine, newest-first.
// Zero rows is ErrNoTelemetry.
func (s *gormStore) History(ctx context.Context, machineID int64, limit int) ([]model.TelemetrySample, error) {
	var samples []model.TelemetrySample
	err := s.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("timestamp DESC, row_id DESC").
		Limit(limit).
		Find(&samples).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for machine %d: %w", machineID, err)
	}
	if len(samples) == 0 {
		return nil, ErrNoTelemetry
	}
	return samples, nil
}

// InsertSamples appends samples that are not already present, keyed by
// (machine id, timestamp). Existing rows are never updated.
func (s *gormStore) InsertSamples(ctx context.Context, samples []model.TelemetrySample) ([]int64, error) {
	if len(samples) == 0 {
		return nil, nil
	}

	machineIDs := make([]int64, 0, len(samples))
	seen := make(map[int64]bool, len(samples))
	minTS := samples[0].Timestamp
	for _, sample := range samples {
		if !seen[sample.MachineID] {
			seen[sample.MachineID] = true
			machineIDs = append(machineIDs, sample.MachineID)
		}
		if sample.Timestamp.Before(minTS) {
			minTS = sample.Timestamp
		}
	}

	var existing []model.TelemetrySample
	err := s.db.WithContext(ctx).
		Select("machine_id, timestamp").
		Where("machine_id IN ? AND timestamp >= ?", machineIDs, minTS).
		Find(&existing).Error
	if err != nil {
		return nil, fmt.Errorf("failed to pre-fetch existing samples: %w", err)
	}
	existingKeys := make(map[string]bool, len(existing))
	for _, e := range existing {
		existingKeys[sampleKey(e.MachineID, e.Timestamp)] = true
	}

	var toInsert []model.TelemetrySample
	insertedIDs := make(map[int64]bool)
	for _, sample := range samples {
		key := sampleKey(sample.MachineID, sample.Timestamp)
		if existingKeys[key] {
			continue
		}
		existingKeys[key] = true
		toInsert = append(toInsert, sample)
		insertedIDs[sample.MachineID] = true
	}
	if len(toInsert) == 0 {
		return nil, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&toInsert).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert %d samples: %w", len(toInsert), err)
	}

	ids := make([]int64, 0, len(insertedIDs))
	for _, id := range machineIDs {
		if insertedIDs[id] {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func sampleKey(machineID int64, ts time.Time) string {
	return fmt.Sprintf("%d@%d", machineID, ts.UTC().UnixNano())
}
