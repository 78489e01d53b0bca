package query

import (
	"time"

	"github.com/xelth-com/wotrack/internal/models"
)

// Period holds document counts for one reporting window
type Period struct {
	Total      int `json:"total"`
	WithErrors int `json:"withErrors"`
	OpenErrors int `json:"openErrors"`
}

// Summary is the intake report over createdAt
type Summary struct {
	Today    Period                 `json:"today"`
	Month    Period                 `json:"month"`
	Year     Period                 `json:"year"`
	All      Period                 `json:"all"`
	ByStatus map[models.Status]int  `json:"byStatus"`
	ByType   map[models.DocType]int `json:"byType"`
}

// Summarize counts documents ingested today, this month and this year
// relative to now, in now's location
func Summarize(docs []models.Document, now time.Time) Summary {
	loc := now.Location()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	month := time.Date(y, m, 1, 0, 0, 0, 0, loc)
	year := time.Date(y, 1, 1, 0, 0, 0, 0, loc)

	s := Summary{
		ByStatus: make(map[models.Status]int, len(models.AllStatuses())),
		ByType:   make(map[models.DocType]int, 2),
	}
	for _, st := range models.AllStatuses() {
		s.ByStatus[st] = 0
	}

	for _, doc := range docs {
		created := doc.CreatedAt.In(loc)
		s.All.add(doc)
		if !created.Before(year) {
			s.Year.add(doc)
		}
		if !created.Before(month) {
			s.Month.add(doc)
		}
		if !created.Before(today) {
			s.Today.add(doc)
		}
		s.ByStatus[doc.Status]++
		s.ByType[doc.Type]++
	}
	return s
}

func (p *Period) add(doc models.Document) {
	p.Total++
	if doc.ErrorCount > 0 {
		p.WithErrors++
	}
	if doc.HasErrors {
		p.OpenErrors++
	}
}
