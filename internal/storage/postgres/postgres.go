// Package postgres implements the reading repository on pgx. Every statement
// conjoins user_id so a foreign owner's reading can neither be read nor
// mutated; zero rows matched is reported as matched=false, never as an error.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"vitalog/internal/metric"
)

// Repo is the pgx-backed reading repository.
type Repo struct {
	pool *pgxpool.Pool
}

var _ metric.Repository = (*Repo)(nil)

// New creates a repository on the given pool.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// valueColumns is the fixed column order for the per-family numeric fields.
var valueColumns = []metric.Field{
	metric.FieldSystolic,
	metric.FieldDiastolic,
	metric.FieldPulse,
	metric.FieldWalkMinutes,
	metric.FieldPeakPulse,
	metric.FieldGlucose,
	metric.FieldWeight,
}

func nullable(r *metric.Reading, f metric.Field) pgtype.Float8 {
	if !r.Has(f) {
		return pgtype.Float8{}
	}
	return pgtype.Float8{Float64: r.Value(f), Valid: true}
}

// Create inserts the reading and back-fills the repository-assigned id and
// timestamps.
func (p *Repo) Create(ctx context.Context, r *metric.Reading) (string, error) {
	args := []any{r.OwnerID, string(r.Family), string(r.Subtype)}
	for _, f := range valueColumns {
		args = append(args, nullable(r, f))
	}
	args = append(args, r.CapturedAt, r.Notes)

	row := p.pool.QueryRow(ctx, `
		INSERT INTO readings (
			user_id, family, subtype,
			systolic, diastolic, pulse, walk_minutes, peak_pulse, glucose, weight_kg,
			captured_at, notes, recorded_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
		RETURNING reading_id, recorded_at, updated_at`,
		args...)

	var id pgtype.UUID
	if err := row.Scan(&id, &r.RecordedAt, &r.UpdatedAt); err != nil {
		return "", fmt.Errorf("create reading: %w", err)
	}
	r.ID = uuid.UUID(id.Bytes).String()
	return r.ID, nil
}

// ListByOwner returns the owner's readings for one family, CapturedAt
// descending unless ascending is requested. From is an inclusive lower
// bound.
func (p *Repo) ListByOwner(ctx context.Context, ownerID string, family metric.Family, f metric.ListFilter) ([]metric.Reading, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT reading_id, user_id, family, subtype,
		       systolic, diastolic, pulse, walk_minutes, peak_pulse, glucose, weight_kg,
		       captured_at, recorded_at, updated_at, notes
		FROM readings
		WHERE user_id = $1 AND family = $2`)
	args := []any{ownerID, string(family)}

	if f.Subtype != metric.SubtypeNone {
		args = append(args, string(f.Subtype))
		fmt.Fprintf(&sb, " AND subtype = $%d", len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		fmt.Fprintf(&sb, " AND captured_at >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		fmt.Fprintf(&sb, " AND captured_at <= $%d", len(args))
	}

	if f.Ascending {
		sb.WriteString(" ORDER BY captured_at ASC")
	} else {
		sb.WriteString(" ORDER BY captured_at DESC")
	}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	rows, err := p.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	defer rows.Close()

	var out []metric.Reading
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	return out, nil
}

// UpdateOne replaces all mutable fields of the reading owned by ownerID in
// r's family and refreshes updated_at. A malformed id, like a cross-family
// id, is a no-match rather than a distinct error, so storage key formats
// never leak.
func (p *Repo) UpdateOne(ctx context.Context, id, ownerID string, r *metric.Reading) (bool, error) {
	readingID, err := uuid.Parse(id)
	if err != nil {
		return false, nil
	}

	args := []any{readingID, ownerID, string(r.Family), string(r.Subtype)}
	for _, f := range valueColumns {
		args = append(args, nullable(r, f))
	}
	args = append(args, r.CapturedAt, r.Notes)

	row := p.pool.QueryRow(ctx, `
		UPDATE readings SET
			subtype = $4,
			systolic = $5, diastolic = $6, pulse = $7,
			walk_minutes = $8, peak_pulse = $9, glucose = $10, weight_kg = $11,
			captured_at = $12, notes = $13, updated_at = now()
		WHERE reading_id = $1 AND user_id = $2 AND family = $3
		RETURNING recorded_at, updated_at`,
		args...)

	if err := row.Scan(&r.RecordedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("update reading: %w", err)
	}
	r.ID = id
	r.OwnerID = ownerID
	return true, nil
}

// DeleteOne removes the reading owned by ownerID in the given family.
func (p *Repo) DeleteOne(ctx context.Context, id, ownerID string, family metric.Family) (bool, error) {
	readingID, err := uuid.Parse(id)
	if err != nil {
		return false, nil
	}

	tag, err := p.pool.Exec(ctx,
		`DELETE FROM readings WHERE reading_id = $1 AND user_id = $2 AND family = $3`,
		readingID, ownerID, string(family))
	if err != nil {
		return false, fmt.Errorf("delete reading: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanReading(rows pgx.Rows) (metric.Reading, error) {
	var (
		r       metric.Reading
		id      pgtype.UUID
		family  string
		subtype string
		nums    [7]pgtype.Float8
	)
	if err := rows.Scan(
		&id, &r.OwnerID, &family, &subtype,
		&nums[0], &nums[1], &nums[2], &nums[3], &nums[4], &nums[5], &nums[6],
		&r.CapturedAt, &r.RecordedAt, &r.UpdatedAt, &r.Notes,
	); err != nil {
		return metric.Reading{}, err
	}

	r.ID = uuid.UUID(id.Bytes).String()
	r.Family = metric.Family(family)
	r.Subtype = metric.Subtype(subtype)
	r.Values = make(map[metric.Field]float64)
	for i, f := range valueColumns {
		if nums[i].Valid {
			r.Values[f] = nums[i].Float64
		}
	}
	return r, nil
}
