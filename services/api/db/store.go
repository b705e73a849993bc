package db

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/02loveslollipop/perftest-dashboard/services/api/timeslot"
)

// Store wraps database access helpers.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// PerformanceRecord is one performance test run of a plant unit.
type PerformanceRecord struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Unit        *string    `json:"unit,omitempty"`
	TestDate    *time.Time `json:"test_date,omitempty"`
	Status      string     `json:"status"`
	Description *string    `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PerformanceRecordsPage is a page of performance records with the total count.
type PerformanceRecordsPage struct {
	Records    []PerformanceRecord `json:"records"`
	TotalCount int                 `json:"total_count"`
}

// ListPerformanceRecords returns records newest first, optionally filtered by
// a case-insensitive name/unit search.
func (s *Store) ListPerformanceRecords(ctx context.Context, limit, offset int, search string) (*PerformanceRecordsPage, error) {
	conditions := []string{}
	args := []any{}

	if search = strings.TrimSpace(search); search != "" {
		pos := "$" + strconv.Itoa(len(args)+1)
		conditions = append(conditions, "(p.name ILIKE "+pos+" OR p.unit ILIKE "+pos+")")
		args = append(args, "%"+search+"%")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var totalCount int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM perf.performance_records p "+whereClause, args...).Scan(&totalCount); err != nil {
		return nil, err
	}

	limitPos := len(args) + 1
	offsetPos := len(args) + 2
	args = append(args, limit, offset)

	query := strings.Builder{}
	query.WriteString("SELECT p.id, p.name, p.unit, p.test_date, p.status, p.description, p.created_at, p.updated_at ")
	query.WriteString("FROM perf.performance_records p ")
	query.WriteString(whereClause + " ")
	query.WriteString("ORDER BY p.test_date DESC NULLS LAST, p.id DESC ")
	query.WriteString("LIMIT $" + strconv.Itoa(limitPos) + " OFFSET $" + strconv.Itoa(offsetPos))

	rows, err := s.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PerformanceRecord, 0, limit)
	for rows.Next() {
		var r PerformanceRecord
		if err := rows.Scan(
			&r.ID,
			&r.Name,
			&r.Unit,
			&r.TestDate,
			&r.Status,
			&r.Description,
			&r.CreatedAt,
			&r.UpdatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &PerformanceRecordsPage{Records: records, TotalCount: totalCount}, nil
}

const performanceRecordSQL = `
    SELECT id, name, unit, test_date, status, description, created_at, updated_at
    FROM perf.performance_records
    WHERE id = $1
`

// GetPerformanceRecord returns nil when the record does not exist.
func (s *Store) GetPerformanceRecord(ctx context.Context, id int64) (*PerformanceRecord, error) {
	var r PerformanceRecord
	err := s.pool.QueryRow(ctx, performanceRecordSQL, id).Scan(
		&r.ID,
		&r.Name,
		&r.Unit,
		&r.TestDate,
		&r.Status,
		&r.Description,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Tags bound to a performance record take part alongside the global ones
// (perf_id IS NULL).
const inputTagsSQL = `
    SELECT tag_no, COALESCE(description, ''), COALESCE(unit_name, ''), jm_input
    FROM perf.input_tags
    WHERE m_input = $1 AND (perf_id IS NULL OR perf_id = $2)
    ORDER BY tag_no
`

// ListInputTags returns the manual-entry tags of one input tab.
func (s *Store) ListInputTags(ctx context.Context, perfID int64, mInput int) ([]timeslot.InputTag, error) {
	rows, err := s.pool.Query(ctx, inputTagsSQL, mInput, perfID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := make([]timeslot.InputTag, 0)
	for rows.Next() {
		var tag timeslot.InputTag
		if err := rows.Scan(&tag.TagNo, &tag.Description, &tag.UnitName, &tag.JmInput); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// CatalogTag is an input tag as maintained by the catalogue sync.
type CatalogTag struct {
	TagNo       string
	Description string
	UnitName    string
	JmInput     int
	MInput      int
	PerfID      *int64
}

// UpsertInputTags inserts or updates catalogue tags.
func (s *Store) UpsertInputTags(ctx context.Context, tags []CatalogTag) error {
	if len(tags) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `INSERT INTO perf.input_tags (tag_no, description, unit_name, jm_input, m_input, perf_id, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
ON CONFLICT (tag_no) DO UPDATE
SET description = EXCLUDED.description,
    unit_name = EXCLUDED.unit_name,
    jm_input = EXCLUDED.jm_input,
    m_input = EXCLUDED.m_input,
    perf_id = EXCLUDED.perf_id,
    updated_at = NOW()`

	for _, t := range tags {
		batch.Queue(query, t.TagNo, t.Description, t.UnitName, t.JmInput, t.MInput, t.PerfID)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range tags {
		if _, err := res.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ManualInput is one stored manual reading. A nil Value is an explicit null.
type ManualInput struct {
	PerfID  int64     `json:"perf_id"`
	TagNo   string    `json:"tag_no"`
	DateRec time.Time `json:"date_rec"`
	Value   *float64  `json:"value"`
}

const manualInputsSQL = `
    SELECT perf_id, tag_no, date_rec, value
    FROM perf.manual_inputs
    WHERE perf_id = $1 AND tag_no = ANY($2) AND date_rec >= $3 AND date_rec <= $4
    ORDER BY tag_no, date_rec
`

// ListManualInputs returns stored readings of the given tags inside [from, to].
func (s *Store) ListManualInputs(ctx context.Context, perfID int64, tagNos []string, from, to time.Time) ([]ManualInput, error) {
	out := make([]ManualInput, 0)
	if len(tagNos) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, manualInputsSQL, perfID, tagNos, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m ManualInput
		if err := rows.Scan(&m.PerfID, &m.TagNo, &m.DateRec, &m.Value); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SaveManualInputs upserts readings in a single transaction and returns the
// number of rows written.
func (s *Store) SaveManualInputs(ctx context.Context, inputs []ManualInput) (int, error) {
	if len(inputs) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	query := `INSERT INTO perf.manual_inputs (perf_id, tag_no, date_rec, value, created_at, updated_at)
VALUES ($1,$2,$3,$4,NOW(),NOW())
ON CONFLICT (perf_id, tag_no, date_rec) DO UPDATE
SET value = EXCLUDED.value,
    updated_at = NOW()`

	for _, m := range inputs {
		batch.Queue(query, m.PerfID, m.TagNo, m.DateRec, m.Value)
	}

	res := tx.SendBatch(ctx, batch)
	for range inputs {
		if _, err := res.Exec(); err != nil {
			res.Close()
			return 0, err
		}
	}
	if err := res.Close(); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(inputs), nil
}
