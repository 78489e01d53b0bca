package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/xelth-com/wotrack/internal/lifecycle"
	"github.com/xelth-com/wotrack/internal/models"
	"github.com/xelth-com/wotrack/internal/query"
	"github.com/xelth-com/wotrack/internal/sync"
)

// FieldUpdateRequest is the body of PATCH /api/documents/{id}
type FieldUpdateRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// DeleteRequest is the body of POST /api/documents/delete
type DeleteRequest struct {
	IDs []string `json:"ids"`
}

// actionFunc is one lifecycle transition
type actionFunc func(e *lifecycle.Engine, id, actor string) (models.Document, bool, error)

var documentActions = map[string]actionFunc{
	"advance":       (*lifecycle.Engine).Advance,
	"revert":        (*lifecycle.Engine).Revert,
	"report-error":  (*lifecycle.Engine).ReportError,
	"resolve-error": (*lifecycle.Engine).ResolveError,
	"corrected":     (*lifecycle.Engine).MarkCorrected,
}

// listDocuments returns the filtered collection, newest first
func (r *Router) listDocuments(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	p := query.Predicate{
		Text: q.Get("q"),
		Axis: query.AxisCreated,
	}

	if s := q.Get("status"); s != "" {
		status := models.Status(strings.ToUpper(s))
		if !status.Valid() {
			respondError(w, http.StatusBadRequest, "Unknown status: "+s)
			return
		}
		p.Status = status
	}
	if a := q.Get("axis"); a != "" {
		switch query.DateAxis(a) {
		case query.AxisCreated, query.AxisOriginal:
			p.Axis = query.DateAxis(a)
		default:
			respondError(w, http.StatusBadRequest, "axis must be created or original")
			return
		}
	}
	dates := []struct {
		key string
		dst *time.Time
	}{{"from", &p.From}, {"to", &p.To}}
	for _, d := range dates {
		if v := q.Get(d.key); v != "" {
			t, err := lifecycle.ParseDate(v)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid "+d.key+" date")
				return
			}
			*d.dst = t
		}
	}

	docs := query.Filter(r.store.List(), p)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"total":     len(docs),
		"syncError": r.sync != nil && r.sync.HasSyncError(),
	})
}

// getStats returns intake totals for today, this month and this year
func (r *Router) getStats(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, query.Summarize(r.store.List(), r.now()))
}

func (r *Router) getDocument(w http.ResponseWriter, req *http.Request) {
	doc, err := r.lifecycle.Get(mux.Vars(req)["id"])
	if err != nil {
		respondLifecycleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// documentAction runs one lifecycle transition on the document
func (r *Router) documentAction(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	action, ok := documentActions[vars["action"]]
	if !ok {
		respondError(w, http.StatusNotFound, "Unknown action: "+vars["action"])
		return
	}

	doc, changed, err := action(r.lifecycle, vars["id"], operator(req))
	if err != nil {
		respondLifecycleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"document": doc,
		"changed":  changed,
	})
}

// patchDocument edits one mutable field
func (r *Router) patchDocument(w http.ResponseWriter, req *http.Request) {
	var body FieldUpdateRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	edit, err := lifecycle.ParseFieldEdit(body.Field, body.Value)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, changed, err := r.lifecycle.SetField(mux.Vars(req)["id"], edit, operator(req))
	if err != nil {
		respondLifecycleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"document": doc,
		"changed":  changed,
	})
}

func (r *Router) deleteDocument(w http.ResponseWriter, req *http.Request) {
	r.deleteIDs(w, req, []string{mux.Vars(req)["id"]})
}

func (r *Router) deleteDocuments(w http.ResponseWriter, req *http.Request) {
	var body DeleteRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if len(body.IDs) == 0 {
		respondError(w, http.StatusBadRequest, "No ids given")
		return
	}
	r.deleteIDs(w, req, body.IDs)
}

// deleteIDs removes locally first; the remote outcome is reported, never undone
func (r *Router) deleteIDs(w http.ResponseWriter, req *http.Request, ids []string) {
	var (
		removed []string
		result  *sync.SyncResult
	)
	if r.sync != nil {
		var res sync.SyncResult
		removed, res = r.sync.Delete(req.Context(), ids)
		result = &res
	} else {
		removed = r.store.Remove(ids...)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": removed,
		"sync":    result,
	})
}

// respondLifecycleError maps engine sentinels to HTTP statuses
func respondLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, lifecycle.ErrImmutableField), errors.Is(err, lifecycle.ErrUnknownField):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
