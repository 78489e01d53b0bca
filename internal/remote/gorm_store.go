package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xelth-com/wotrack/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrSchemaMismatch means the remote table lacks a column being written
var ErrSchemaMismatch = errors.New("remote schema mismatch")

// undefinedColumn is the Postgres SQLSTATE for a reference to a missing column
const undefinedColumn = "42703"

// Projection selects which document columns are written remotely
type Projection int

const (
	// ProjectionFull writes every column
	ProjectionFull Projection = iota
	// ProjectionLegacy writes only the columns present since the first schema
	ProjectionLegacy
)

var fullColumns = []string{
	"id", "type", "status", "has_errors", "error_count", "created_by", "created_at",
	"original_date", "correction_started_at", "is_international", "logs", "updated_at",
}

var legacyColumns = []string{
	"id", "type", "status", "has_errors", "error_count", "created_by", "created_at", "logs",
}

// Columns returns the column names written under p
func (p Projection) Columns() []string {
	if p == ProjectionLegacy {
		return legacyColumns
	}
	return fullColumns
}

func (p Projection) String() string {
	if p == ProjectionLegacy {
		return "legacy"
	}
	return "full"
}

// GormStore is the remote document collection backed by Postgres
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a remote store over db
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// ListAll returns every remote document, newest first
func (s *GormStore) ListAll(ctx context.Context) ([]models.Document, error) {
	var docs []models.Document
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&docs).Error; err != nil {
		return nil, classify("list documents", err)
	}
	return docs, nil
}

// UpsertMany inserts or overwrites docs keyed by id, writing only the
// columns of the projection.
func (s *GormStore) UpsertMany(ctx context.Context, docs []models.Document, p Projection) error {
	if len(docs) == 0 {
		return nil
	}

	cols := p.Columns()
	err := s.db.WithContext(ctx).
		Select(cols).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(cols[1:]),
		}).
		Create(&docs).Error
	if err != nil {
		return classify("upsert documents", err)
	}
	return nil
}

// DeleteMany removes documents by id; unknown ids are ignored
func (s *GormStore) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Document{}).Error; err != nil {
		return classify("delete documents", err)
	}
	return nil
}

// classify wraps err, marking undefined-column failures as ErrSchemaMismatch
func classify(op string, err error) error {
	if IsSchemaMismatch(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrSchemaMismatch, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsSchemaMismatch reports whether err was caused by a missing remote column
func IsSchemaMismatch(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSchemaMismatch) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == undefinedColumn
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "column") && strings.Contains(msg, "does not exist")
}
