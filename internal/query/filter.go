package query

import (
	"strings"
	"time"
	"unicode"

	"github.com/xelth-com/wotrack/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DateAxis selects which document date a range applies to
type DateAxis string

const (
	AxisCreated  DateAxis = "created"
	AxisOriginal DateAxis = "original"
)

// Predicate combines the filter axes with AND; zero fields match everything
type Predicate struct {
	Text   string
	Status models.Status
	From   time.Time // inclusive day
	To     time.Time // inclusive day
	Axis   DateAxis
	// Location is the zone days are computed in; nil means time.Local
	Location *time.Location
}

// Filter returns the documents matching p, preserving their order
func Filter(docs []models.Document, p Predicate) []models.Document {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	needle := Fold(p.Text)

	var from, to time.Time
	if !p.From.IsZero() {
		from = dayStart(p.From, loc)
	}
	if !p.To.IsZero() {
		to = dayStart(p.To, loc)
	}

	out := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if !matchesStatus(d.Status, p.Status) {
			continue
		}
		if needle != "" && !matchesText(d, needle) {
			continue
		}
		if !from.IsZero() || !to.IsZero() {
			day := dayStart(axisDate(d, p.Axis), loc)
			if !from.IsZero() && day.Before(from) {
				continue
			}
			if !to.IsZero() && day.After(to) {
				continue
			}
		}
		out = append(out, d)
	}
	return out
}

// matchesStatus is exact except SHIPPING, which also covers COMPLETED
func matchesStatus(s, want models.Status) bool {
	if want == "" {
		return true
	}
	if want == models.StatusShipping {
		return s == models.StatusShipping || s == models.StatusCompleted
	}
	return s == want
}

func matchesText(d models.Document, needle string) bool {
	fields := []string{d.ID, string(d.Type), d.CreatedBy, d.Status.Label()}
	for _, f := range fields {
		if strings.Contains(Fold(f), needle) {
			return true
		}
	}
	return false
}

func axisDate(d models.Document, axis DateAxis) time.Time {
	if axis == AxisOriginal {
		return d.EffectiveOriginalDate()
	}
	return d.CreatedAt
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	y, m, day := t.In(loc).Date()
	return time.Date(y, m, day, 0, 0, 0, 0, loc)
}

// Fold strips diacritics and upper-cases s for accent-insensitive matching
func Fold(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToUpper(strings.TrimSpace(folded))
}
