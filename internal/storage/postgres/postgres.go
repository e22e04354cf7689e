// Package postgres stores entries in PostgreSQL through gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"receitas/internal/core"
	"receitas/internal/log"
	"receitas/internal/storage"
)

// entryModel keeps amount as unconstrained numeric so every scale the API
// accepts round-trips exactly. DescriptionKey is core.DescriptionKey of
// Description; LOWER() depends on the database locale and is not used.
type entryModel struct {
	ID             int64           `gorm:"primaryKey;autoIncrement"`
	Description    string          `gorm:"size:200;not null"`
	DescriptionKey string          `gorm:"type:text;not null;default:'';index"`
	Amount         decimal.Decimal `gorm:"type:numeric;not null"`
	Date           time.Time       `gorm:"type:date;not null;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (entryModel) TableName() string {
	return "receitas"
}

func storageLogger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentStorage)
}

type Config struct {
	DSN         string
	AutoMigrate bool
	LogSQL      bool
}

type Store struct {
	db *gorm.DB
}

var _ storage.Store = (*Store)(nil)

// Open connects to PostgreSQL and, when configured, migrates the schema.
func Open(cfg Config) (*Store, error) {
	gormLogger := logger.Default
	if !cfg.LogSQL {
		gormLogger = gormLogger.LogMode(logger.Silent)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(&entryModel{}); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("migrate receitas table: %w", err)
		}
		storageLogger(context.Background()).Info("Postgres schema migrated", "table", entryModel{}.TableName())
	}

	store := New(db)
	if cfg.AutoMigrate {
		if err := store.backfillDescriptionKeys(context.Background()); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}
	return store, nil
}

// backfillDescriptionKeys fills description_key for rows written before the
// column existed.
func (s *Store) backfillDescriptionKeys(ctx context.Context) error {
	var pending []entryModel
	err := s.db.WithContext(ctx).
		Select("id", "description").
		Where("description_key = ?", "").
		Find(&pending).Error
	if err != nil {
		return fmt.Errorf("load rows without description key: %w", err)
	}
	for _, m := range pending {
		err := s.db.WithContext(ctx).Model(&entryModel{}).
			Where("id = ?", m.ID).
			UpdateColumn("description_key", core.DescriptionKey(m.Description)).Error
		if err != nil {
			return fmt.Errorf("backfill description key for entry %d: %w", m.ID, err)
		}
	}
	if len(pending) > 0 {
		storageLogger(ctx).InfoContext(ctx, "Backfilled description keys", "rows", len(pending))
	}
	return nil
}

// New wraps an already opened gorm handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Get(ctx context.Context, id int64) (core.Entry, error) {
	var m entryModel
	err := s.db.WithContext(ctx).First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Entry{}, core.NotFound("get entry", fmt.Sprintf("no entry with id %d", id))
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry by id: %w", err)
	}
	return fromModel(m), nil
}

func (s *Store) List(ctx context.Context) ([]core.Entry, error) {
	var ms []entryModel
	if err := s.db.WithContext(ctx).Order("id").Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return fromModels(ms), nil
}

func (s *Store) ListByDescription(ctx context.Context, description string) ([]core.Entry, error) {
	var ms []entryModel
	err := s.db.WithContext(ctx).
		Where("description_key = ?", core.DescriptionKey(description)).
		Order("id").
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("list entries by description: %w", err)
	}
	return fromModels(ms), nil
}

// Upsert inserts new entries and replaces existing ones by id, keeping created_at.
func (s *Store) Upsert(ctx context.Context, e core.Entry) (core.Entry, error) {
	m := toModel(e)
	tx := s.db.WithContext(ctx)
	if !e.IsNew() {
		tx = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"description", "description_key", "amount", "date", "updated_at"}),
		})
	}
	if err := tx.Create(&m).Error; err != nil {
		return core.Entry{}, fmt.Errorf("upsert entry: %w", err)
	}
	e.ID = m.ID

	storageLogger(ctx).InfoContext(ctx, "Entry saved to Postgres",
		"id", e.ID,
		"description", e.Description,
		"amount", e.Amount.String(),
		"date", e.Date.String())
	return e, nil
}

func (s *Store) Delete(ctx context.Context, e core.Entry) error {
	if err := s.db.WithContext(ctx).Delete(&entryModel{}, e.ID).Error; err != nil {
		return fmt.Errorf("delete entry %d: %w", e.ID, err)
	}
	storageLogger(ctx).InfoContext(ctx, "Entry deleted from Postgres", "id", e.ID)
	return nil
}

func toModel(e core.Entry) entryModel {
	return entryModel{
		ID:             e.ID,
		Description:    e.Description,
		DescriptionKey: core.DescriptionKey(e.Description),
		Amount:         e.Amount,
		Date:           e.Date.Time,
	}
}

// fromModel drops the driver's location; a DATE column has no time zone.
func fromModel(m entryModel) core.Entry {
	y, mo, d := m.Date.Date()
	return core.Entry{
		ID:          m.ID,
		Description: m.Description,
		Amount:      m.Amount,
		Date:        core.NewDate(y, int(mo), d),
	}
}

func fromModels(ms []entryModel) []core.Entry {
	out := make([]core.Entry, len(ms))
	for i, m := range ms {
		out[i] = fromModel(m)
	}
	return out
}
