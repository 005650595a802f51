package remote

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pulsedigest/core/internal/schema"
)

// JSONB stores a canonical record as a postgres jsonb column.
type JSONB json.RawMessage

// Value implements driver.Valuer.
func (j JSONB) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements sql.Scanner.
func (j *JSONB) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		*j = append(JSONB(nil), v...)
		return nil
	case string:
		*j = JSONB(v)
		return nil
	}
	return fmt.Errorf("unsupported jsonb source type %T", value)
}

// objectRow is the single document table backing every entity type. Records
// are entity-discriminated rather than mapped to per-entity tables, which
// keeps the remote protocol opaque to the stores.
type objectRow struct {
	ID       string `gorm:"primaryKey;size:64"`
	Entity   string `gorm:"index:idx_objects_entity;size:64;not null"`
	Document JSONB  `gorm:"type:jsonb"`
}

// TableName implements gorm's table naming hook.
func (objectRow) TableName() string {
	return "business_objects"
}

// GormStore is the gorm-backed remote persistence collaborator.
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ Collection = (*GormStore)(nil)

// Open connects to postgres and migrates the document table.
func Open(dsn string, logger *zap.Logger) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewGormStore(db, logger)
}

// NewGormStore wraps an existing gorm connection.
func NewGormStore(db *gorm.DB, logger *zap.Logger) (*GormStore, error) {
	if err := db.AutoMigrate(&objectRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate business_objects table: %w", err)
	}
	return &GormStore{db: db, logger: logger}, nil
}

// Create persists a new record document.
func (s *GormStore) Create(ctx context.Context, entity string, rec schema.Record) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", entity, err)
	}
	row := objectRow{ID: rec.ID(), Entity: entity, Document: JSONB(doc)}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create %s record: %w", entity, err)
	}
	return nil
}

// Update replaces the stored document for the record id.
func (s *GormStore) Update(ctx context.Context, entity, id string, rec schema.Record) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", entity, err)
	}
	result := s.db.WithContext(ctx).
		Model(&objectRow{}).
		Where("id = ? AND entity = ?", id, entity).
		Update("document", JSONB(doc))
	if result.Error != nil {
		return fmt.Errorf("failed to update %s record: %w", entity, result.Error)
	}
	if result.RowsAffected == 0 {
		// Updates against records that only exist locally upsert so the
		// remote copy catches up.
		row := objectRow{ID: id, Entity: entity, Document: JSONB(doc)}
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			return fmt.Errorf("failed to upsert %s record: %w", entity, err)
		}
	}
	return nil
}

// Delete removes the stored document. Deleting a missing record is not an
// error.
func (s *GormStore) Delete(ctx context.Context, entity, id string) error {
	if err := s.db.WithContext(ctx).
		Where("id = ? AND entity = ?", id, entity).
		Delete(&objectRow{}).Error; err != nil {
		return fmt.Errorf("failed to delete %s record: %w", entity, err)
	}
	return nil
}

// FindByID loads a single record document, (nil, nil) when absent.
func (s *GormStore) FindByID(ctx context.Context, entity, id string) (schema.Record, error) {
	var row objectRow
	err := s.db.WithContext(ctx).
		Where("id = ? AND entity = ?", id, entity).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s record: %w", entity, err)
	}
	return decodeDocument(entity, row.Document)
}

// FindMany loads all documents for the entity and filters in process on
// canonical field equality. The document table stays schema-agnostic, so the
// filter cannot be pushed into SQL without per-entity indexes.
func (s *GormStore) FindMany(ctx context.Context, entity string, filter map[string]any) ([]schema.Record, error) {
	var rows []objectRow
	if err := s.db.WithContext(ctx).
		Where("entity = ?", entity).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s records: %w", entity, err)
	}
	records := make([]schema.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := decodeDocument(entity, row.Document)
		if err != nil {
			s.logger.Warn("Skipping undecodable record",
				zap.String("entity", entity),
				zap.String("id", row.ID),
				zap.Error(err))
			continue
		}
		if matchesFilter(rec, filter) {
			records = append(records, rec)
		}
	}
	return records, nil
}

func decodeDocument(entity string, doc JSONB) (schema.Record, error) {
	var rec map[string]any
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s document: %w", entity, err)
	}
	return schema.Record(rec), nil
}

// matchesFilter applies a scalar-only filter. Non-scalar values are
// skipped, matching the store's local fallback scan, and keep looseEqual
// away from uncomparable types.
func matchesFilter(rec schema.Record, filter map[string]any) bool {
	for k, want := range filter {
		switch want.(type) {
		case string, bool, int, int64, float64:
			if !looseEqual(rec[k], want) {
				return false
			}
		}
	}
	return true
}

// looseEqual compares canonical values across the json decode boundary,
// where ints come back as float64.
func looseEqual(a, b any) bool {
	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			return af == bf
		}
		return false
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
