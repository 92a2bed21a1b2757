package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/edusync/moodle-sync/internal/platform/logger"
	"github.com/edusync/moodle-sync/internal/store"
)

// RecordRow holds one record's draft and published documents.
type RecordRow struct {
	ID           string         `gorm:"column:id;primaryKey"`
	ResourceType string         `gorm:"column:resource_type"`
	Draft        datatypes.JSON `gorm:"column:draft"`
	Published    datatypes.JSON `gorm:"column:published"`
	HasDraft     bool           `gorm:"column:has_draft"`
	PublishedAt  *time.Time     `gorm:"column:published_at"`
	CreatedAt    time.Time      `gorm:"column:created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at"`
}

func (RecordRow) TableName() string { return "records" }

// IdentifierRow maps a canonical external key to its record.
type IdentifierRow struct {
	Key       string    `gorm:"column:key;primaryKey"`
	RecordID  string    `gorm:"column:record_id;index"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (IdentifierRow) TableName() string { return "identifiers" }

// Store implements store.Registry and store.Records on a SQL database.
type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(db *gorm.DB, baseLog *logger.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if baseLog == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Store{db: db, log: baseLog.With("store", "SQLStore")}, nil
}

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&RecordRow{}, &IdentifierRow{})
}

func (s *Store) Resolve(ctx context.Context, key string) (string, error) {
	var row IdentifierRow
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", key, err)
	}
	return row.RecordID, nil
}

func (s *Store) Create(ctx context.Context, doc map[string]any, resourceType string) (store.CreateResult, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return store.CreateResult{}, fmt.Errorf("marshal document: %w", err)
	}

	id := uuid.NewString()
	row := RecordRow{
		ID:           id,
		ResourceType: resourceType,
		Draft:        datatypes.JSON(raw),
		HasDraft:     true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		for _, key := range externalPIDs(doc) {
			ident := IdentifierRow{Key: key, RecordID: id}
			if err := tx.Create(&ident).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return store.CreateResult{}, fmt.Errorf("create %s record: %w", resourceType, err)
	}

	representation, err := unmarshalDoc(raw)
	if err != nil {
		return store.CreateResult{}, err
	}
	s.log.Debug("created draft record", "id", id, "resource_type", resourceType)
	return store.CreateResult{ID: id, Document: representation}, nil
}

// Read returns the record's latest representation: the published
// document, or the draft for records that were never published.
func (s *Store) Read(ctx context.Context, id string) (map[string]any, error) {
	var row RecordRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("read %q: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", id, err)
	}
	if len(row.Published) > 0 {
		return unmarshalDoc([]byte(row.Published))
	}
	return unmarshalDoc([]byte(row.Draft))
}

func (s *Store) EnsureDraft(ctx context.Context, id string) error {
	var row RecordRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("edit %q: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("edit %q: %w", id, err)
	}
	if row.HasDraft {
		return nil
	}
	updates := map[string]any{"draft": row.Published, "has_draft": true}
	if err := s.db.WithContext(ctx).Model(&RecordRow{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("edit %q: %w", id, err)
	}
	return nil
}

func (s *Store) WriteDraft(ctx context.Context, id string, doc map[string]any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	res := s.db.WithContext(ctx).Model(&RecordRow{}).Where("id = ?", id).
		Updates(map[string]any{"draft": datatypes.JSON(raw), "has_draft": true})
	if res.Error != nil {
		return fmt.Errorf("write draft %q: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("write draft %q: %w", id, store.ErrNotFound)
	}
	return nil
}

// BeginPublish opens a database transaction; publishes inside it become
// visible only on Commit and vanish together on Rollback.
func (s *Store) BeginPublish(ctx context.Context) (store.PublishScope, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("begin publish: %w", tx.Error)
	}
	return &publishScope{tx: tx, log: s.log}, nil
}

type publishScope struct {
	tx   *gorm.DB
	log  *logger.Logger
	done bool
}

func (p *publishScope) Publish(ctx context.Context, id string) error {
	var row RecordRow
	err := p.tx.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("publish %q: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("publish %q: %w", id, err)
	}
	if !row.HasDraft {
		return fmt.Errorf("publish %q: no draft to publish", id)
	}
	now := time.Now().UTC()
	updates := map[string]any{
		"published":    row.Draft,
		"draft":        nil,
		"has_draft":    false,
		"published_at": &now,
	}
	if err := p.tx.WithContext(ctx).Model(&RecordRow{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("publish %q: %w", id, err)
	}
	return nil
}

func (p *publishScope) Commit(ctx context.Context) error {
	_ = ctx
	if p.done {
		return nil
	}
	p.done = true
	if err := p.tx.Commit().Error; err != nil {
		return fmt.Errorf("commit publish scope: %w", err)
	}
	return nil
}

func (p *publishScope) Rollback(ctx context.Context) error {
	_ = ctx
	if p.done {
		return nil
	}
	p.done = true
	if err := p.tx.Rollback().Error; err != nil {
		return fmt.Errorf("rollback publish scope: %w", err)
	}
	p.log.Warn("publish scope rolled back")
	return nil
}

func externalPIDs(doc map[string]any) []string {
	pids, ok := doc["pids"].(map[string]any)
	if !ok {
		return nil
	}
	var keys []string
	for _, v := range pids {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if ident, ok := entry["identifier"].(string); ok && ident != "" {
			keys = append(keys, ident)
		}
	}
	return keys
}

func unmarshalDoc(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}
