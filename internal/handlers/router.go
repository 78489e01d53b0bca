package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/xelth-com/wotrack/internal/buildinfo"
	"github.com/xelth-com/wotrack/internal/config"
	"github.com/xelth-com/wotrack/internal/lifecycle"
	"github.com/xelth-com/wotrack/internal/middleware"
	"github.com/xelth-com/wotrack/internal/store"
	"github.com/xelth-com/wotrack/internal/sync"
	"github.com/xelth-com/wotrack/internal/utils"
	"github.com/xelth-com/wotrack/internal/websocket"
)

// Extractor reads a work order code from a photo
type Extractor interface {
	ExtractCode(ctx context.Context, image []byte, mimeType string) (string, error)
}

// Deps are the collaborators the HTTP API is built on
type Deps struct {
	Config    *config.Config
	Store     *store.Store
	Lifecycle *lifecycle.Engine
	Sync      *sync.SyncEngine
	Hub       *websocket.Hub // optional
	OCR       Extractor      // optional
}

// Router wraps the mux router and the application services
type Router struct {
	*mux.Router
	cfg           *config.Config
	accessKeyHash string
	store         *store.Store
	lifecycle     *lifecycle.Engine
	sync          *sync.SyncEngine
	hub           *websocket.Hub
	ocr           Extractor
	autoTrigger   *lifecycle.AutoTrigger
	now           func() time.Time
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(d Deps) (*Router, error) {
	keyHash, err := utils.HashPassword(d.Config.AccessKey)
	if err != nil {
		return nil, err
	}

	r := &Router{
		Router:        mux.NewRouter(),
		cfg:           d.Config,
		accessKeyHash: keyHash,
		store:         d.Store,
		lifecycle:     d.Lifecycle,
		sync:          d.Sync,
		hub:           d.Hub,
		ocr:           d.OCR,
		now:           time.Now,
	}
	r.autoTrigger = lifecycle.NewAutoTrigger(d.Lifecycle, lifecycle.DefaultAutoTriggerDelay, r.broadcastScan)

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/logout", r.logout).Methods("POST")

	session := middleware.SessionMiddleware(d.Config.JWTSecret)

	// Change feed
	if r.hub != nil {
		r.Handle("/ws", session(http.HandlerFunc(r.serveWs))).Methods("GET")
	}

	// API routes (protected)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(session)

	docs := api.PathPrefix("/documents").Subrouter()
	docs.HandleFunc("", r.listDocuments).Methods("GET")
	docs.HandleFunc("/stats", r.getStats).Methods("GET")
	docs.Handle("/delete", middleware.RequireAccessKey(keyHash)(http.HandlerFunc(r.deleteDocuments))).Methods("POST")
	docs.HandleFunc("/{id}", r.getDocument).Methods("GET")
	docs.HandleFunc("/{id}", r.patchDocument).Methods("PATCH")
	docs.Handle("/{id}", middleware.RequireAccessKey(keyHash)(http.HandlerFunc(r.deleteDocument))).Methods("DELETE")
	docs.HandleFunc("/{id}/sheet.pdf", r.getTrackingSheet).Methods("GET")
	docs.HandleFunc("/{id}/{action}", r.documentAction).Methods("POST")

	api.HandleFunc("/scan", r.handleScan).Methods("POST")
	api.HandleFunc("/scan/input", r.handleScanInput).Methods("POST")
	api.HandleFunc("/scan/image", r.handleScanImage).Methods("POST")

	api.HandleFunc("/sync/status", r.getSyncStatus).Methods("GET")
	api.HandleFunc("/sync/fetch", r.triggerFetch).Methods("POST")
	api.HandleFunc("/sync/save", r.triggerSave).Methods("POST")

	// Static files
	if d.Config.FrontendDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(d.Config.FrontendDir)))
	}

	return r, nil
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	status := map[string]interface{}{
		"status":    "ok",
		"documents": r.store.Len(),
		"build":     buildinfo.Current(),
	}
	if r.sync != nil {
		status["syncError"] = r.sync.HasSyncError()
	}
	respondJSON(w, http.StatusOK, status)
}

func (r *Router) serveWs(w http.ResponseWriter, req *http.Request) {
	websocket.ServeWs(r.hub, w, req)
}

// operator returns the session's display name
func operator(req *http.Request) string {
	name, _ := middleware.OperatorFromContext(req.Context())
	return name
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
