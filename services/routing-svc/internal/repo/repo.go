// Package repo persists solved CVRP runs to Postgres for audit and
// replay, mirroring the teacher's history-svc repository shape but
// keyed by request fingerprint instead of user id.
package repo

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"logistics/pkg/database"
	"logistics/pkg/telemetry"
	"logistics/services/routing-svc/internal/model"
)

//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory passed to database.NewMigrator.
const MigrationsDir = "migrations"

// ErrRecordNotFound is returned when a lookup by ID matches nothing.
var ErrRecordNotFound = errors.New("solve record not found")

// SolveRecordRepository persists and retrieves past solve runs.
type SolveRecordRepository interface {
	// Save persists record, assigning record.ID when it is empty so the
	// caller can read back the generated id after the call returns.
	Save(ctx context.Context, record *model.SolveRecord) error
	Get(ctx context.Context, id string) (model.SolveRecord, error)
	List(ctx context.Context, filter model.ListFilter) ([]model.SolveRecord, error)
}

// PostgresSolveRecordRepository is the Postgres-backed implementation
// built on pkg/database, following the history-svc repository's
// query shape adapted to the solve_records table.
type PostgresSolveRecordRepository struct {
	db database.DB
}

// NewPostgresSolveRecordRepository wraps an already-connected
// database.DB (typically *database.PostgresDB).
func NewPostgresSolveRecordRepository(db database.DB) *PostgresSolveRecordRepository {
	return &PostgresSolveRecordRepository{db: db}
}

func (r *PostgresSolveRecordRepository) Save(ctx context.Context, record *model.SolveRecord) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresSolveRecordRepository.Save")
	defer span.End()

	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	payload, err := json.Marshal(record.Solution)
	if err != nil {
		return fmt.Errorf("failed to marshal solution payload: %w", err)
	}

	query := `
		INSERT INTO solve_records (
			id, fingerprint, requested_at, solved_at, winning_strategy,
			total_distance_m, total_duration_s, vehicles_used, unserved_count, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.Exec(ctx, query,
		record.ID,
		record.Fingerprint,
		record.RequestedAt,
		record.SolvedAt,
		record.WinningStrategy,
		record.TotalDistanceM,
		record.TotalDurationS,
		record.VehiclesUsed,
		record.UnservedCount,
		payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save solve record: %w", err)
	}

	return nil
}

func (r *PostgresSolveRecordRepository) Get(ctx context.Context, id string) (model.SolveRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresSolveRecordRepository.Get")
	defer span.End()

	query := `
		SELECT id, fingerprint, requested_at, solved_at, winning_strategy,
		       total_distance_m, total_duration_s, vehicles_used, unserved_count, payload
		FROM solve_records
		WHERE id = $1
	`

	var rec model.SolveRecord
	var payload []byte

	err := r.db.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.Fingerprint, &rec.RequestedAt, &rec.SolvedAt, &rec.WinningStrategy,
		&rec.TotalDistanceM, &rec.TotalDurationS, &rec.VehiclesUsed, &rec.UnservedCount, &payload,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SolveRecord{}, ErrRecordNotFound
		}
		return model.SolveRecord{}, fmt.Errorf("failed to get solve record: %w", err)
	}

	if err := json.Unmarshal(payload, &rec.Solution); err != nil {
		return model.SolveRecord{}, fmt.Errorf("failed to unmarshal solution payload: %w", err)
	}

	return rec, nil
}

func (r *PostgresSolveRecordRepository) List(ctx context.Context, filter model.ListFilter) ([]model.SolveRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresSolveRecordRepository.List")
	defer span.End()

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, fingerprint, requested_at, solved_at, winning_strategy,
		       total_distance_m, total_duration_s, vehicles_used, unserved_count, payload
		FROM solve_records
		ORDER BY requested_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list solve records: %w", err)
	}
	defer rows.Close()

	var out []model.SolveRecord
	for rows.Next() {
		var rec model.SolveRecord
		var payload []byte
		if err := rows.Scan(
			&rec.ID, &rec.Fingerprint, &rec.RequestedAt, &rec.SolvedAt, &rec.WinningStrategy,
			&rec.TotalDistanceM, &rec.TotalDurationS, &rec.VehiclesUsed, &rec.UnservedCount, &payload,
		); err != nil {
			return nil, fmt.Errorf("failed to scan solve record row: %w", err)
		}
		if err := json.Unmarshal(payload, &rec.Solution); err != nil {
			return nil, fmt.Errorf("failed to unmarshal solution payload: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("solve record rows error: %w", err)
	}

	return out, nil
}
