package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/xelth-com/wotrack/internal/services/printer"
)

// getTrackingSheet renders the printable sheet for one document
func (r *Router) getTrackingSheet(w http.ResponseWriter, req *http.Request) {
	doc, err := r.lifecycle.Get(mux.Vars(req)["id"])
	if err != nil {
		respondLifecycleError(w, err)
		return
	}

	pdfBytes, err := printer.GenerateTrackingSheet(doc, printer.SheetOptions{PrintedBy: operator(req)})
	if err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate PDF: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"%s_%s.pdf\"", doc.Type, doc.ID))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdfBytes)))

	w.Write(pdfBytes)
}
