package lifecycle

import (
	"errors"
	"log"
	"time"

	"github.com/xelth-com/wotrack/internal/models"
	"github.com/xelth-com/wotrack/internal/utils"
)

// ScanAction is the outcome of presenting a code to the engine
type ScanAction string

const (
	ScanCreated  ScanAction = "created"
	ScanFound    ScanAction = "found"
	ScanRejected ScanAction = "rejected"
)

// DefaultAutoTriggerDelay is the input quiescence before an interactive scan registers
const DefaultAutoTriggerDelay = 300 * time.Millisecond

// ScanOutcome reports what a scan did
type ScanOutcome struct {
	Action   ScanAction       `json:"action"`
	Code     string           `json:"code,omitempty"`
	Operator string           `json:"operator,omitempty"`
	Document *models.Document `json:"document,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Scan normalizes raw and registers it, reporting created, found or rejected
func (e *Engine) Scan(raw, actor string, opts RegisterOptions) (ScanOutcome, error) {
	out := ScanOutcome{Operator: actor}

	code, err := utils.NormalizeCode(raw)
	if err != nil {
		out.Action = ScanRejected
		out.Error = err.Error()
		return out, nil
	}
	out.Code = code.Code

	doc, created, err := e.Register(code, actor, opts)
	if err != nil {
		if errors.Is(err, utils.ErrCodeRejected) {
			out.Action = ScanRejected
			out.Error = err.Error()
			return out, nil
		}
		return out, err
	}

	out.Document = &doc
	out.Action = ScanFound
	if created {
		out.Action = ScanCreated
	}
	return out, nil
}

// AutoTrigger registers interactive input once it has been quiet for the
// configured delay and looks like a complete scanner read. Each session
// (one keyboard-wedge scanner or input field) has its own timer, so bursts
// of keystrokes or repeated reads of the same label register once.
type AutoTrigger struct {
	engine   *Engine
	timers   *utils.KeyedDebouncer
	onResult func(ScanOutcome)
}

// NewAutoTrigger creates an auto trigger; onResult receives every registration outcome
func NewAutoTrigger(e *Engine, delay time.Duration, onResult func(ScanOutcome)) *AutoTrigger {
	if delay <= 0 {
		delay = DefaultAutoTriggerDelay
	}
	return &AutoTrigger{engine: e, timers: utils.NewKeyedDebouncer(delay), onResult: onResult}
}

// Input feeds the current content of session's input. It returns true when
// a registration is scheduled; incomplete input cancels any pending one.
func (a *AutoTrigger) Input(session, raw string, source utils.ScanSource, actor string) bool {
	code, err := utils.NormalizeCode(raw)
	if err != nil || !utils.ShouldAutoRegister(code, source) {
		a.timers.Cancel(session)
		return false
	}

	a.timers.Call(session, func() {
		out, err := a.engine.Scan(code.Code, actor, RegisterOptions{})
		if err != nil {
			log.Printf("⚠️ AutoTrigger: scan %s failed: %v", code.Code, err)
			return
		}
		if a.onResult != nil {
			a.onResult(out)
		}
	})
	return true
}

// Cancel drops the pending registration for session
func (a *AutoTrigger) Cancel(session string) {
	a.timers.Cancel(session)
}
