package handlers

import (
	"net/http"
)

// getSyncStatus reports the reconciler state, including the sync-error flag
func (r *Router) getSyncStatus(w http.ResponseWriter, req *http.Request) {
	if r.sync == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"has_remote": false})
		return
	}
	respondJSON(w, http.StatusOK, r.sync.GetSyncStatus())
}

// triggerFetch pulls the remote collection and merges it now
func (r *Router) triggerFetch(w http.ResponseWriter, req *http.Request) {
	if r.sync == nil {
		respondError(w, http.StatusServiceUnavailable, "Sync is not configured")
		return
	}
	_, result := r.sync.FetchAndMerge(req.Context())
	respondJSON(w, http.StatusOK, result)
}

// triggerSave pushes the local collection now instead of waiting for the debounce
func (r *Router) triggerSave(w http.ResponseWriter, req *http.Request) {
	if r.sync == nil {
		respondError(w, http.StatusServiceUnavailable, "Sync is not configured")
		return
	}
	respondJSON(w, http.StatusOK, r.sync.Save(req.Context()))
}
