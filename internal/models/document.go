package models

import (
	"time"

	"gorm.io/datatypes"
)

// DocType classifies a work order by its code prefix
type DocType string

const (
	DocTypeRTA DocType = "RTA"
	DocTypeFAR DocType = "FAR"
)

// DocLog is one audit entry of a document
type DocLog struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	User      string    `json:"user,omitempty"`
}

// Document represents a tracked physical work order.
// Convention: Go PascalCase -> DB snake_case -> JSON camelCase
type Document struct {
	ID                  string                      `gorm:"column:id;primaryKey;type:varchar(16)" json:"id"`
	Type                DocType                     `gorm:"column:type;type:varchar(8);not null" json:"type"`
	Status              Status                      `gorm:"column:status;type:varchar(20);not null;index" json:"status"`
	HasErrors           bool                        `gorm:"column:has_errors;default:false" json:"hasErrors"`
	ErrorCount          int                         `gorm:"column:error_count;default:0" json:"errorCount"`
	CreatedBy           string                      `gorm:"column:created_by" json:"createdBy"`
	CreatedAt           time.Time                   `gorm:"column:created_at;autoCreateTime:false;index" json:"createdAt"`
	OriginalDate        time.Time                   `gorm:"column:original_date" json:"originalDate"`
	CorrectionStartedAt *time.Time                  `gorm:"column:correction_started_at" json:"correctionStartedAt,omitempty"`
	IsInternational     bool                        `gorm:"column:is_international;default:false" json:"isInternational,omitempty"`
	Logs                datatypes.JSONSlice[DocLog] `gorm:"column:logs;type:jsonb" json:"logs"`

	// UpdatedAt is the last local write; the reconciler compares it across replicas.
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime:false" json:"updatedAt"`
}

// TableName specifies the table name
func (Document) TableName() string {
	return "documents"
}

// Clone returns a deep copy that shares no slices or pointers with d
func (d Document) Clone() Document {
	out := d
	if d.Logs != nil {
		out.Logs = make(datatypes.JSONSlice[DocLog], len(d.Logs))
		copy(out.Logs, d.Logs)
	}
	if d.CorrectionStartedAt != nil {
		t := *d.CorrectionStartedAt
		out.CorrectionStartedAt = &t
	}
	return out
}

// AppendLog prepends an audit entry, keeping logs newest first
func (d *Document) AppendLog(entry DocLog) {
	logs := make(datatypes.JSONSlice[DocLog], 0, len(d.Logs)+1)
	logs = append(logs, entry)
	d.Logs = append(logs, d.Logs...)
	d.UpdatedAt = entry.Timestamp
}

// LastActivity returns the most recent of UpdatedAt and CreatedAt
func (d Document) LastActivity() time.Time {
	if d.UpdatedAt.After(d.CreatedAt) {
		return d.UpdatedAt
	}
	return d.CreatedAt
}

// EffectiveOriginalDate falls back to CreatedAt for documents stored without an original date
func (d Document) EffectiveOriginalDate() time.Time {
	if d.OriginalDate.IsZero() {
		return d.CreatedAt
	}
	return d.OriginalDate
}
