package sync

import (
	"fmt"
	"time"

	"github.com/xelth-com/wotrack/internal/models"
)

// ConflictResolution represents the resolution of a conflict
type ConflictResolution struct {
	Strategy     ConflictResolutionStrategy `json:"strategy"`
	WinnerSource TruthSource                `json:"winner_source"`
	Reason       string                     `json:"reason"`
}

// ConflictResolver decides which copy of a document survives a merge
type ConflictResolver struct {
	strategy    ConflictResolutionStrategy
	freshWindow time.Duration
	now         func() time.Time
}

// NewConflictResolver creates a new conflict resolver
func NewConflictResolver(strategy ConflictResolutionStrategy, freshWindow time.Duration) *ConflictResolver {
	switch strategy {
	case ConflictFreshWindow, ConflictLastWriteWins:
	default:
		strategy = ConflictFreshWindow
	}
	return &ConflictResolver{
		strategy:    strategy,
		freshWindow: freshWindow,
		now:         time.Now,
	}
}

// Strategy returns the active strategy
func (cr *ConflictResolver) Strategy() ConflictResolutionStrategy {
	return cr.strategy
}

// InConflict reports whether two copies of the same id differ. Timestamps
// compare at the remote column precision.
func InConflict(local, remote models.Document) bool {
	return !local.LastActivity().Truncate(time.Microsecond).Equal(remote.LastActivity().Truncate(time.Microsecond)) ||
		local.Status != remote.Status ||
		local.HasErrors != remote.HasErrors ||
		local.ErrorCount != remote.ErrorCount ||
		len(local.Logs) != len(remote.Logs)
}

// ResolveConflict picks the surviving copy of a document present on both
// sides. unsynced means local holds a write the remote has not accepted yet.
func (cr *ConflictResolver) ResolveConflict(local, remote models.Document, unsynced bool) *ConflictResolution {
	if cr.strategy == ConflictLastWriteWins {
		return cr.resolveLastWrite(local, remote)
	}
	if unsynced {
		return &ConflictResolution{
			Strategy:     ConflictFreshWindow,
			WinnerSource: TruthSourceLocal,
			Reason:       "local write not yet saved remotely",
		}
	}
	return cr.resolveFreshWindow(local, remote)
}

func (cr *ConflictResolver) resolveFreshWindow(local, remote models.Document) *ConflictResolution {
	age := cr.now().Sub(local.LastActivity())
	if age < cr.freshWindow {
		return &ConflictResolution{
			Strategy:     ConflictFreshWindow,
			WinnerSource: TruthSourceLocal,
			Reason:       fmt.Sprintf("local write %s ago is inside the %s fresh window", age.Round(time.Second), cr.freshWindow),
		}
	}
	return &ConflictResolution{
		Strategy:     ConflictFreshWindow,
		WinnerSource: TruthSourceRemote,
		Reason:       "remote is authoritative outside the fresh window",
	}
}

// resolveLastWrite keeps the copy with the later last write; ties go to local
func (cr *ConflictResolver) resolveLastWrite(local, remote models.Document) *ConflictResolution {
	if remote.LastActivity().After(local.LastActivity()) {
		return &ConflictResolution{
			Strategy:     ConflictLastWriteWins,
			WinnerSource: TruthSourceRemote,
			Reason:       "remote written later",
		}
	}
	return &ConflictResolution{
		Strategy:     ConflictLastWriteWins,
		WinnerSource: TruthSourceLocal,
		Reason:       "local written later or at the same time",
	}
}
