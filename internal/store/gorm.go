package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// CommandRecord is the persisted row. Queryable columns are split out; the full
// command (inputs, parameters, result) lives in Payload as JSON.
type CommandRecord struct {
	ID          string     `gorm:"primaryKey;size:64" json:"command_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `gorm:"index" json:"updated_at"`
	CompletedAt *time.Time `gorm:"index" json:"completed_at,omitempty"`
	Type        string     `gorm:"size:32;not null;index" json:"command_type"`
	Status      string     `gorm:"size:16;not null;index" json:"status"`
	CallerID    string     `gorm:"size:128;index" json:"caller_id"`
	Fingerprint string     `gorm:"size:64;index" json:"fingerprint"`
	Payload     []byte     `gorm:"not null" json:"-"`
}

// TableName pins the table name independent of gorm's pluralisation.
func (CommandRecord) TableName() string {
	return "commands"
}

// Connect opens a Postgres connection for the given DSN.
func Connect(databaseURL string) (*gorm.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("database url is empty")
	}
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("✅ Database connection established")
	return db, nil
}

// Migrate creates or updates the commands table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&CommandRecord{}); err != nil {
		return fmt.Errorf("failed to migrate commands table: %w", err)
	}
	log.Println("✅ Database migrations completed")
	return nil
}

// GormStore is a CommandStore backed by a SQL database through gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open, migrated connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, cmd *models.Command) error {
	rec, err := toRecord(cmd)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if res.Error != nil {
		return fmt.Errorf("insert command %s: %w", cmd.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrExists, cmd.ID)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*models.Command, error) {
	var rec CommandRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("load command %s: %w", id, err)
	}
	return fromRecord(&rec)
}

// Update locks the row with SELECT ... FOR UPDATE for the duration of fn.
func (s *GormStore) Update(ctx context.Context, id string, fn func(*models.Command) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec CommandRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&rec, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			return fmt.Errorf("lock command %s: %w", id, err)
		}

		cmd, err := fromRecord(&rec)
		if err != nil {
			return err
		}
		if err := fn(cmd); err != nil {
			return err
		}
		cmd.ID = id

		updated, err := toRecord(cmd)
		if err != nil {
			return err
		}
		updated.CreatedAt = rec.CreatedAt
		return tx.Save(updated).Error
	})
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&CommandRecord{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete command %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *GormStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&CommandRecord{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *GormStore) PurgeTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	terminal := []string{
		string(models.StatusCompleted), string(models.StatusFailed), string(models.StatusCancelled),
	}
	res := s.db.WithContext(ctx).
		Where("status IN ?", terminal).
		Where("COALESCE(completed_at, updated_at) < ?", cutoff).
		Delete(&CommandRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge commands: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

func toRecord(cmd *models.Command) (*CommandRecord, error) {
	if cmd == nil || cmd.ID == "" {
		return nil, fmt.Errorf("command id is required")
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode command %s: %w", cmd.ID, err)
	}
	return &CommandRecord{
		ID:          cmd.ID,
		CreatedAt:   cmd.CreatedAt,
		UpdatedAt:   cmd.UpdatedAt,
		CompletedAt: cmd.CompletedAt,
		Type:        string(cmd.Type),
		Status:      string(cmd.Status),
		CallerID:    cmd.CallerID,
		Fingerprint: cmd.Fingerprint,
		Payload:     payload,
	}, nil
}

func fromRecord(rec *CommandRecord) (*models.Command, error) {
	var cmd models.Command
	if err := json.Unmarshal(rec.Payload, &cmd); err != nil {
		return nil, fmt.Errorf("decode command %s: %w", rec.ID, err)
	}
	return &cmd, nil
}
