package db

import (
	"context"
	"fmt"
)

// Migration is a named schema change applied at most once.
type Migration struct {
	Name string
	SQL  string
}

// Migrations lists the schema changes in application order.
func Migrations() []Migration {
	return []Migration{
		{
			Name: "001_create_perf_schema",
			SQL:  `CREATE SCHEMA IF NOT EXISTS perf`,
		},
		{
			Name: "002_create_performance_records",
			SQL: `
			CREATE TABLE IF NOT EXISTS perf.performance_records (
				id BIGSERIAL PRIMARY KEY,
				name TEXT NOT NULL,
				unit TEXT,
				test_date TIMESTAMPTZ,
				status TEXT NOT NULL DEFAULT 'draft',
				description TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Name: "003_create_input_tags",
			SQL: `
			CREATE TABLE IF NOT EXISTS perf.input_tags (
				tag_no TEXT PRIMARY KEY,
				description TEXT,
				unit_name TEXT,
				jm_input INTEGER NOT NULL DEFAULT 6,
				m_input INTEGER NOT NULL DEFAULT 1,
				perf_id BIGINT REFERENCES perf.performance_records(id) ON DELETE SET NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Name: "004_create_manual_inputs",
			SQL: `
			CREATE TABLE IF NOT EXISTS perf.manual_inputs (
				perf_id BIGINT NOT NULL REFERENCES perf.performance_records(id) ON DELETE CASCADE,
				tag_no TEXT NOT NULL,
				date_rec TIMESTAMPTZ NOT NULL,
				value DOUBLE PRECISION,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (perf_id, tag_no, date_rec)
			)`,
		},
		{
			Name: "005_index_input_tags_m_input",
			SQL:  `CREATE INDEX IF NOT EXISTS idx_input_tags_m_input ON perf.input_tags (m_input)`,
		},
	}
}

// Migrate applies pending migrations and returns the names it ran.
func (s *Store) Migrate(ctx context.Context) ([]string, error) {
	if _, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS public.schema_migrations (
		name TEXT PRIMARY KEY,
		executed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`); err != nil {
		return nil, fmt.Errorf("create migrations table: %w", err)
	}

	applied := make([]string, 0)
	for _, m := range Migrations() {
		ran, err := s.runMigration(ctx, m)
		if err != nil {
			return applied, fmt.Errorf("run migration %s: %w", m.Name, err)
		}
		if ran {
			applied = append(applied, m.Name)
		}
	}
	return applied, nil
}

func (s *Store) runMigration(ctx context.Context, m Migration) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var count int
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM public.schema_migrations WHERE name = $1", m.Name).Scan(&count); err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, "INSERT INTO public.schema_migrations (name) VALUES ($1)", m.Name); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}
