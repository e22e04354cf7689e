package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"receitas/internal/core"
	"receitas/internal/log"

	_ "modernc.org/sqlite"
)

const selectEntries = `SELECT id, description, amount, date FROM receitas`

func storageLogger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentStorage)
}

type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{db: db}
	if err := repo.backfillDescriptionKeys(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// backfillDescriptionKeys fills description_key for rows written before the
// column existed.
func (r *SQLiteRepository) backfillDescriptionKeys(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, `SELECT id, description FROM receitas WHERE description_key = ''`)
	if err != nil {
		return fmt.Errorf("load rows without description key: %w", err)
	}

	pending := make(map[int64]string)
	for rows.Next() {
		var (
			id          int64
			description string
		)
		if err := rows.Scan(&id, &description); err != nil {
			rows.Close()
			return fmt.Errorf("scan row without description key: %w", err)
		}
		pending[id] = description
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rows without description key: %w", err)
	}

	for id, description := range pending {
		if _, err := r.db.ExecContext(ctx, `UPDATE receitas SET description_key = ? WHERE id = ?`,
			core.DescriptionKey(description), id); err != nil {
			return fmt.Errorf("backfill description key for entry %d: %w", id, err)
		}
	}
	if len(pending) > 0 {
		storageLogger(ctx).InfoContext(ctx, "Backfilled description keys", "rows", len(pending))
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Get implements Store
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (core.Entry, error) {
	row := r.db.QueryRowContext(ctx, selectEntries+` WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, core.NotFound("get entry", fmt.Sprintf("no entry with id %d", id))
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry by id: %w", err)
	}
	return e, nil
}

// List implements Store
func (r *SQLiteRepository) List(ctx context.Context) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, selectEntries+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return collectEntries(rows)
}

// ListByDescription implements Store. Matching runs on the folded
// description_key column.
func (r *SQLiteRepository) ListByDescription(ctx context.Context, description string) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, selectEntries+` WHERE description_key = ? ORDER BY id`, core.DescriptionKey(description))
	if err != nil {
		return nil, fmt.Errorf("list entries by description: %w", err)
	}
	return collectEntries(rows)
}

// Upsert implements Store
func (r *SQLiteRepository) Upsert(ctx context.Context, e core.Entry) (core.Entry, error) {
	if e.IsNew() {
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO receitas (description, description_key, amount, date) VALUES (?, ?, ?, ?)`,
			e.Description, core.DescriptionKey(e.Description), e.Amount.String(), e.Date.String())
		if err != nil {
			return core.Entry{}, fmt.Errorf("insert entry: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return core.Entry{}, fmt.Errorf("read inserted id: %w", err)
		}
		e.ID = id

		storageLogger(ctx).InfoContext(ctx, "Entry inserted into SQLite",
			"id", e.ID,
			"description", e.Description,
			"amount", e.Amount.String(),
			"date", e.Date.String())
		return e, nil
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO receitas (id, description, description_key, amount, date) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     description     = excluded.description,
		     description_key = excluded.description_key,
		     amount          = excluded.amount,
		     date            = excluded.date,
		     updated_at      = CURRENT_TIMESTAMP`,
		e.ID, e.Description, core.DescriptionKey(e.Description), e.Amount.String(), e.Date.String())
	if err != nil {
		return core.Entry{}, fmt.Errorf("update entry %d: %w", e.ID, err)
	}

	storageLogger(ctx).InfoContext(ctx, "Entry updated in SQLite",
		"id", e.ID,
		"description", e.Description,
		"amount", e.Amount.String(),
		"date", e.Date.String())
	return e, nil
}

// Delete implements Store
func (r *SQLiteRepository) Delete(ctx context.Context, e core.Entry) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM receitas WHERE id = ?`, e.ID); err != nil {
		return fmt.Errorf("delete entry %d: %w", e.ID, err)
	}

	storageLogger(ctx).InfoContext(ctx, "Entry deleted from SQLite", "id", e.ID)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(s rowScanner) (core.Entry, error) {
	var (
		e              core.Entry
		amount, onDate string
	)
	if err := s.Scan(&e.ID, &e.Description, &amount, &onDate); err != nil {
		return core.Entry{}, err
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Entry{}, fmt.Errorf("parse stored amount %q for entry %d: %w", amount, e.ID, err)
	}
	e.Amount = d

	date, err := core.ParseDate(onDate)
	if err != nil {
		return core.Entry{}, fmt.Errorf("parse stored date for entry %d: %w", e.ID, err)
	}
	e.Date = date

	return e, nil
}

func collectEntries(rows *sql.Rows) ([]core.Entry, error) {
	defer rows.Close()

	entries := make([]core.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}
