package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/xelth-com/wotrack/internal/models"
)

const dateLayout = "2006-01-02"

// FieldEdit is one allowed direct edit of a document field.
// The set is closed: only types in this package implement it.
type FieldEdit interface {
	Field() string
	apply(doc *models.Document) (action string, changed bool)
}

// OriginalDateEdit sets the real-world date of the physical document
type OriginalDateEdit struct {
	Date time.Time
}

func (OriginalDateEdit) Field() string { return "originalDate" }

func (e OriginalDateEdit) apply(doc *models.Document) (string, bool) {
	if doc.OriginalDate.Equal(e.Date) {
		return "", false
	}
	doc.OriginalDate = e.Date
	return fmt.Sprintf("Original date set to %s", e.Date.Format(dateLayout)), true
}

// CorrectionStartedEdit sets or, with a nil At, clears the correction start
type CorrectionStartedEdit struct {
	At *time.Time
}

func (CorrectionStartedEdit) Field() string { return "correctionStartedAt" }

func (e CorrectionStartedEdit) apply(doc *models.Document) (string, bool) {
	cur := doc.CorrectionStartedAt
	switch {
	case cur == nil && e.At == nil:
		return "", false
	case cur != nil && e.At != nil && cur.Equal(*e.At):
		return "", false
	}

	if e.At == nil {
		doc.CorrectionStartedAt = nil
		return "Correction start cleared", true
	}
	at := *e.At
	doc.CorrectionStartedAt = &at
	return fmt.Sprintf("Correction start set to %s", at.Format(dateLayout)), true
}

var immutableFields = map[string]bool{
	"id":        true,
	"type":      true,
	"createdAt": true,
	"createdBy": true,
}

// ParseFieldEdit builds an edit from a field name and its textual value.
// Dates are accepted as YYYY-MM-DD (local midnight) or RFC 3339.
// An empty value clears correctionStartedAt.
func ParseFieldEdit(field, value string) (FieldEdit, error) {
	if immutableFields[field] {
		return nil, fmt.Errorf("%w: %s", ErrImmutableField, field)
	}

	value = strings.TrimSpace(value)
	switch field {
	case "originalDate":
		t, err := ParseDate(value)
		if err != nil {
			return nil, err
		}
		return OriginalDateEdit{Date: t}, nil
	case "correctionStartedAt":
		if value == "" {
			return CorrectionStartedEdit{}, nil
		}
		t, err := ParseDate(value)
		if err != nil {
			return nil, err
		}
		return CorrectionStartedEdit{At: &t}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
}

// ParseDate accepts YYYY-MM-DD in local time or a full RFC 3339 timestamp
func ParseDate(value string) (time.Time, error) {
	if t, err := time.ParseInLocation(dateLayout, value, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t, nil
}
