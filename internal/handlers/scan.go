package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/xelth-com/wotrack/internal/ai"
	"github.com/xelth-com/wotrack/internal/lifecycle"
	"github.com/xelth-com/wotrack/internal/utils"
)

const (
	maxImageSize  = 10 << 20
	ocrRetryHint  = "Could not read a work order code from the photo. Please retake it closer and with better light."
	eventScanDone = "SCAN_RESULT"
)

// ScanRequest is an explicit submit from a scanner, the keyboard or OCR
type ScanRequest struct {
	Code          string           `json:"code"`
	Source        utils.ScanSource `json:"source"`
	OriginalDate  string           `json:"originalDate,omitempty"`
	International bool             `json:"international,omitempty"`
}

// ScanInputRequest carries the live content of an input field
type ScanInputRequest struct {
	Session string           `json:"session"`
	Input   string           `json:"input"`
	Source  utils.ScanSource `json:"source"`
}

// handleScan registers a code, returning created, found or rejected
func (r *Router) handleScan(w http.ResponseWriter, req *http.Request) {
	var body ScanRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	opts := lifecycle.RegisterOptions{International: body.International}
	if body.OriginalDate != "" {
		t, err := lifecycle.ParseDate(body.OriginalDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid originalDate")
			return
		}
		opts.OriginalDate = &t
	}

	r.respondScan(w, body.Code, operator(req), opts)
}

// handleScanInput feeds the auto trigger; the registration result arrives
// over the change feed once the input has been quiet long enough
func (r *Router) handleScanInput(w http.ResponseWriter, req *http.Request) {
	var body ScanInputRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Source == "" {
		body.Source = utils.SourceManual
	}

	actor := operator(req)
	session := actor + "/" + body.Session
	scheduled := r.autoTrigger.Input(session, body.Input, body.Source, actor)
	respondJSON(w, http.StatusAccepted, map[string]bool{"scheduled": scheduled})
}

// handleScanImage runs OCR on an uploaded photo and registers the code found
func (r *Router) handleScanImage(w http.ResponseWriter, req *http.Request) {
	if r.ocr == nil {
		respondError(w, http.StatusServiceUnavailable, "OCR is not configured")
		return
	}

	image, mimeType, err := readImage(w, req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	code, err := r.ocr.ExtractCode(req.Context(), image, mimeType)
	if err != nil {
		if !errors.Is(err, ai.ErrNoCodeFound) {
			log.Printf("⚠️ OCR: extraction failed: %v", err)
		}
		respondError(w, http.StatusUnprocessableEntity, ocrRetryHint)
		return
	}

	r.respondScan(w, code, operator(req), lifecycle.RegisterOptions{})
}

func (r *Router) respondScan(w http.ResponseWriter, raw, actor string, opts lifecycle.RegisterOptions) {
	out, err := r.lifecycle.Scan(raw, actor, opts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusOK
	switch out.Action {
	case lifecycle.ScanCreated:
		status = http.StatusCreated
	case lifecycle.ScanRejected:
		status = http.StatusUnprocessableEntity
	}
	respondJSON(w, status, out)
}

// broadcastScan pushes auto-trigger outcomes to the operator's screens
func (r *Router) broadcastScan(out lifecycle.ScanOutcome) {
	if r.hub == nil {
		return
	}
	r.hub.Broadcast(struct {
		Type string `json:"type"`
		lifecycle.ScanOutcome
	}{eventScanDone, out})
}

// readImage accepts a multipart "image" field or a raw image body
func readImage(w http.ResponseWriter, req *http.Request) ([]byte, string, error) {
	req.Body = http.MaxBytesReader(w, req.Body, maxImageSize)

	if strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/") {
		file, header, err := req.FormFile("image")
		if err != nil {
			return nil, "", errors.New("image field required")
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", errors.New("image too large or unreadable")
		}
		return data, header.Header.Get("Content-Type"), nil
	}

	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, "", errors.New("image too large or unreadable")
	}
	if len(data) == 0 {
		return nil, "", errors.New("empty image")
	}
	return data, req.Header.Get("Content-Type"), nil
}
