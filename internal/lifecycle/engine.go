package lifecycle

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/xelth-com/wotrack/internal/models"
	"github.com/xelth-com/wotrack/internal/store"
	"github.com/xelth-com/wotrack/internal/utils"
)

var (
	// ErrNotFound is returned for operations on an id that is not in the collection
	ErrNotFound = errors.New("document not found")
	// ErrImmutableField is returned for edits of id, type, createdAt or createdBy
	ErrImmutableField = errors.New("field is immutable")
	// ErrUnknownField is returned for edits of fields outside the editable set
	ErrUnknownField = errors.New("field is not editable")
)

// Action strings written to the audit log
const (
	actionErrorReported  = "Error reported"
	actionErrorCorrected = "Error corrected"
	actionErrorCancelled = "Error cancelled"
	actionHistoryRemoved = "Error history entry removed"
)

// RegisterOptions carries the optional inputs of a registration
type RegisterOptions struct {
	OriginalDate  *time.Time
	International bool
}

// Engine applies lifecycle operations to documents held in a store.
// Illegal transitions are no-ops reported through the changed flag.
type Engine struct {
	store *store.Store
	now   func() time.Time
}

// NewEngine creates an engine over s
func NewEngine(s *store.Store) *Engine {
	return &Engine{store: s, now: time.Now}
}

// SetClock replaces the time source
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Get returns the document with id
func (e *Engine) Get(id string) (models.Document, error) {
	doc, ok := e.store.Get(id)
	if !ok {
		return models.Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return doc, nil
}

// Register creates a document in CONFERENCE for a code not yet in the
// collection. An existing id is returned with created=false.
func (e *Engine) Register(code utils.ScanCode, actor string, opts RegisterOptions) (models.Document, bool, error) {
	sc, err := utils.NormalizeCode(code.Code)
	if err != nil {
		return models.Document{}, false, err
	}

	if existing, ok := e.store.Get(sc.Code); ok {
		return existing, false, nil
	}

	now := e.now()
	originalDate := now
	action := "Document registered"
	if opts.OriginalDate != nil {
		originalDate = *opts.OriginalDate
		action = fmt.Sprintf("Document registered (original date %s)", originalDate.Format(dateLayout))
	}

	doc := models.Document{
		ID:              sc.Code,
		Type:            sc.Type,
		Status:          models.StatusConference,
		CreatedBy:       actor,
		CreatedAt:       now,
		OriginalDate:    originalDate,
		IsInternational: opts.International,
	}
	doc.AppendLog(models.DocLog{Timestamp: now, Action: action, User: actor})

	if !e.store.Insert(doc) {
		existing, _ := e.store.Get(sc.Code)
		return existing, false, nil
	}

	log.Printf("📄 Lifecycle: registered %s %s by %s", doc.Type, doc.ID, actor)
	return doc, true, nil
}

// Advance moves the document to the next forward stage. RETURN re-enters
// the chain at CONFERENCE once its error is resolved.
func (e *Engine) Advance(id, actor string) (models.Document, bool, error) {
	return e.mutate(id, func(doc *models.Document, now time.Time) bool {
		if doc.HasErrors {
			return false
		}

		var next models.Status
		if doc.Status == models.StatusReturn {
			next = models.StatusConference
		} else {
			n, ok := doc.Status.Next()
			if !ok {
				return false
			}
			next = n
		}

		e.setStatus(doc, next, actor, now)
		return true
	})
}

// Revert undoes the most recent step, picking the first rule that applies:
// cancel an open error, drop one error history entry while in CONFERENCE,
// or step back along the forward chain.
func (e *Engine) Revert(id, actor string) (models.Document, bool, error) {
	return e.mutate(id, func(doc *models.Document, now time.Time) bool {
		switch {
		case doc.HasErrors:
			doc.HasErrors = false
			doc.Status = models.StatusConference
			decrementErrors(doc)
			doc.AppendLog(models.DocLog{Timestamp: now, Action: actionErrorCancelled, User: actor})
			return true

		case doc.Status == models.StatusConference && doc.ErrorCount > 0:
			decrementErrors(doc)
			doc.AppendLog(models.DocLog{Timestamp: now, Action: actionHistoryRemoved, User: actor})
			return true
		}

		prev, ok := doc.Status.Prev()
		if doc.Status == models.StatusReturn {
			prev, ok = models.StatusConference, true
		}
		if !ok {
			return false
		}
		from := doc.Status
		doc.Status = prev
		doc.AppendLog(models.DocLog{
			Timestamp: now,
			Action:    fmt.Sprintf("Status reverted: %s → %s", from.Label(), prev.Label()),
			User:      actor,
		})
		return true
	})
}

// ReportError opens an error and sends the document to RETURN
func (e *Engine) ReportError(id, actor string) (models.Document, bool, error) {
	return e.mutate(id, func(doc *models.Document, now time.Time) bool {
		if doc.HasErrors {
			return false
		}
		doc.HasErrors = true
		doc.ErrorCount++
		doc.Status = models.StatusReturn
		if doc.CorrectionStartedAt == nil {
			t := now
			doc.CorrectionStartedAt = &t
		}
		doc.AppendLog(models.DocLog{Timestamp: now, Action: actionErrorReported, User: actor})
		return true
	})
}

// ResolveError closes the open error without changing status
func (e *Engine) ResolveError(id, actor string) (models.Document, bool, error) {
	return e.mutate(id, func(doc *models.Document, now time.Time) bool {
		if !doc.HasErrors {
			return false
		}
		doc.HasErrors = false
		doc.AppendLog(models.DocLog{Timestamp: now, Action: actionErrorCorrected, User: actor})
		return true
	})
}

// MarkCorrected resolves the open error and returns the document to
// CONFERENCE, logging each step.
func (e *Engine) MarkCorrected(id, actor string) (models.Document, bool, error) {
	return e.mutate(id, func(doc *models.Document, now time.Time) bool {
		if !doc.HasErrors {
			return false
		}
		doc.HasErrors = false
		doc.AppendLog(models.DocLog{Timestamp: now, Action: actionErrorCorrected, User: actor})
		if doc.Status != models.StatusConference {
			e.setStatus(doc, models.StatusConference, actor, now)
		}
		return true
	})
}

// SetField applies a direct field edit and logs it
func (e *Engine) SetField(id string, edit FieldEdit, actor string) (models.Document, bool, error) {
	if edit == nil {
		return models.Document{}, false, fmt.Errorf("%w: nil edit", ErrUnknownField)
	}
	return e.mutate(id, func(doc *models.Document, now time.Time) bool {
		action, changed := edit.apply(doc)
		if !changed {
			return false
		}
		doc.AppendLog(models.DocLog{Timestamp: now, Action: action, User: actor})
		return true
	})
}

func (e *Engine) mutate(id string, fn func(doc *models.Document, now time.Time) bool) (models.Document, bool, error) {
	now := e.now()
	changed := false
	doc, ok := e.store.Mutate(id, func(d *models.Document) bool {
		changed = fn(d, now)
		return changed
	})
	if !ok {
		return models.Document{}, false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return doc, changed, nil
}

func (e *Engine) setStatus(doc *models.Document, to models.Status, actor string, now time.Time) {
	from := doc.Status
	doc.Status = to
	doc.AppendLog(models.DocLog{
		Timestamp: now,
		Action:    fmt.Sprintf("Status changed: %s → %s", from.Label(), to.Label()),
		User:      actor,
	})
}

func decrementErrors(doc *models.Document) {
	if doc.ErrorCount > 0 {
		doc.ErrorCount--
	}
	if doc.ErrorCount == 0 {
		doc.CorrectionStartedAt = nil
	}
}
