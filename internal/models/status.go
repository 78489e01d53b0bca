package models

// Status is the lifecycle stage of a document
type Status string

const (
	StatusConference Status = "CONFERENCE" // First manual review
	StatusReturn     Status = "RETURN"     // Sent back for correction
	StatusScanner    Status = "SCANNER"    // Digitizing
	StatusAcceptance Status = "ACCEPTANCE" // Awaiting acceptance
	StatusShipping   Status = "SHIPPING"   // Physical shipping (CI)
	StatusCompleted  Status = "COMPLETED"
)

var statusLabels = map[Status]string{
	StatusConference: "1st Conference",
	StatusReturn:     "Return (Correction)",
	StatusScanner:    "Scanner/Digitizing",
	StatusAcceptance: "Awaiting Acceptance",
	StatusShipping:   "Physical Shipping (CI)",
	StatusCompleted:  "Completed",
}

// forward is the linear happy path; RETURN is a side branch off it
var forward = []Status{
	StatusConference,
	StatusScanner,
	StatusAcceptance,
	StatusShipping,
	StatusCompleted,
}

// AllStatuses lists every status in display order
func AllStatuses() []Status {
	return []Status{
		StatusConference,
		StatusReturn,
		StatusScanner,
		StatusAcceptance,
		StatusShipping,
		StatusCompleted,
	}
}

// Label returns the human readable name of the status
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Next returns the following forward stage, if any
func (s Status) Next() (Status, bool) {
	for i, st := range forward {
		if st == s && i+1 < len(forward) {
			return forward[i+1], true
		}
	}
	return "", false
}

// Prev returns the preceding forward stage, if any
func (s Status) Prev() (Status, bool) {
	for i, st := range forward {
		if st == s && i > 0 {
			return forward[i-1], true
		}
	}
	return "", false
}
