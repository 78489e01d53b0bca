package printer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
	"github.com/xelth-com/wotrack/internal/models"
)

const (
	sheetDateLayout = "02/01/2006"
	logTimeLayout   = "02/01/2006 15:04"
	qrSize          = 40.0
	maxLogRows      = 40
)

// SheetOptions tunes the tracking sheet output
type SheetOptions struct {
	// Location renders timestamps in this zone; nil means time.Local
	Location *time.Location
	// PrintedBy is shown in the footer when set
	PrintedBy string
}

// GenerateTrackingSheet renders a one-page A4 sheet for a work order:
// a QR code of its id, the current state and the audit trail
func GenerateTrackingSheet(doc models.Document, opts SheetOptions) ([]byte, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	// QR code top right, scanners read it back into the same document
	qrPng, err := qrcode.Encode(doc.ID, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	pdf.RegisterImageOptionsReader("qr_"+doc.ID, imgOptions, bytes.NewReader(qrPng))
	pdf.ImageOptions("qr_"+doc.ID, 210-15-qrSize, 15, qrSize, qrSize, false, imgOptions, 0, "")

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(120, 10, fmt.Sprintf("%s %s", doc.Type, doc.ID), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	status := doc.Status.Label()
	if doc.HasErrors {
		status += " (open error)"
	}
	field := func(label, value string) {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(45, 7, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(75, 7, tr(value), "", 1, "L", false, 0, "")
	}
	field("Status", status)
	field("Errors", fmt.Sprintf("%d", doc.ErrorCount))
	field("Registered", doc.CreatedAt.In(loc).Format(logTimeLayout))
	field("Registered by", doc.CreatedBy)
	field("Original date", doc.EffectiveOriginalDate().In(loc).Format(sheetDateLayout))
	if doc.CorrectionStartedAt != nil {
		field("Correction since", doc.CorrectionStartedAt.In(loc).Format(logTimeLayout))
	}
	if doc.IsInternational {
		field("International", "yes")
	}

	y := pdf.GetY()
	if y < 15+qrSize+5 {
		y = 15 + qrSize + 5
	}
	pdf.SetY(y)

	// Audit trail, newest first
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "History", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(35, 6, "When", "B", 0, "L", false, 0, "")
	pdf.CellFormat(40, 6, "User", "B", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Action", "B", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	for i, entry := range doc.Logs {
		if i == maxLogRows {
			pdf.CellFormat(0, 6, fmt.Sprintf("... %d older entries", len(doc.Logs)-maxLogRows), "", 1, "L", false, 0, "")
			break
		}
		pdf.CellFormat(35, 6, entry.Timestamp.In(loc).Format(logTimeLayout), "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, tr(entry.User), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(entry.Action), "", 1, "L", false, 0, "")
	}

	if opts.PrintedBy != "" {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 5, tr("Printed by "+opts.PrintedBy), "", 1, "R", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
