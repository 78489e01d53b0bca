package utils

import (
	"errors"
	"strings"

	"github.com/xelth-com/wotrack/internal/models"
)

// ==========================================
// WORK ORDER CODES
// Canonical form: 5..9 digits. Scanners may prefix header digits,
// so only the trailing 9 digits are kept.
// RTA: 100xxxxxx / 101xxxxxx, FAR: 200xxxxxx
// ==========================================

const (
	MinCodeLength = 5
	MaxCodeLength = 9
	farPrefix     = "200"
)

// Prefixes a complete scanner read starts with
var autoTriggerPrefixes = []string{"100", "101", "200"}

// ErrCodeRejected is returned for input with too few digits to be a work order
var ErrCodeRejected = errors.New("code rejected: fewer than 5 digits")

// ScanSource tells where a raw code came from
type ScanSource string

const (
	SourceScanner ScanSource = "scanner"
	SourceManual  ScanSource = "manual"
	SourceOCR     ScanSource = "ocr"
)

// ScanCode is a normalized work order identifier
type ScanCode struct {
	Code string         `json:"code"`
	Type models.DocType `json:"type"`
}

// NormalizeCode strips everything but digits, keeps the last 9 and classifies the result
func NormalizeCode(raw string) (ScanCode, error) {
	digits := digitsOnly(raw)
	if len(digits) > MaxCodeLength {
		digits = digits[len(digits)-MaxCodeLength:]
	}
	if len(digits) < MinCodeLength {
		return ScanCode{}, ErrCodeRejected
	}

	docType := models.DocTypeRTA
	if strings.HasPrefix(digits, farPrefix) {
		docType = models.DocTypeFAR
	}

	return ScanCode{Code: digits, Type: docType}, nil
}

// ShouldAutoRegister reports whether typed or scanned input is complete enough
// to be registered without an explicit submit. OCR results skip this gate.
func ShouldAutoRegister(code ScanCode, source ScanSource) bool {
	if source == SourceOCR {
		return true
	}
	if len(code.Code) < MaxCodeLength {
		return false
	}
	for _, p := range autoTriggerPrefixes {
		if strings.HasPrefix(code.Code, p) {
			return true
		}
	}
	return false
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}
