package sync

import "time"

// TruthSource represents the replica a winning version came from
type TruthSource string

const (
	TruthSourceLocal  TruthSource = "local"
	TruthSourceRemote TruthSource = "remote"
)

// ConflictResolutionStrategy defines how to resolve conflicts
type ConflictResolutionStrategy string

const (
	// ConflictFreshWindow keeps the local copy while its last write is recent,
	// otherwise takes the remote copy
	ConflictFreshWindow ConflictResolutionStrategy = "fresh_window"
	// ConflictLastWriteWins compares last-write timestamps across replicas
	ConflictLastWriteWins ConflictResolutionStrategy = "last_write_wins"
)

// Operation names a reconciler action
type Operation string

const (
	OpFetch  Operation = "fetch"
	OpSave   Operation = "save"
	OpDelete Operation = "delete"
	OpFull   Operation = "full_sync" // fetch then save
)

// SyncRequest is queued for the background worker
type SyncRequest struct {
	Operation Operation
	Reason    string
}

// SyncResult represents the result of a sync operation
type SyncResult struct {
	Operation  Operation     `json:"operation"`
	Success    bool          `json:"success"`
	Documents  int           `json:"documents"`
	Added      int           `json:"added,omitempty"`
	Conflicts  int           `json:"conflicts,omitempty"`
	RemoteWins int           `json:"remote_wins,omitempty"`
	Suppressed int           `json:"suppressed,omitempty"` // remote copies of locally deleted ids
	Projection string        `json:"projection,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	Timestamp  time.Time     `json:"timestamp"`
}

func newResult(op Operation) *SyncResult {
	return &SyncResult{Operation: op, Success: true, Timestamp: time.Now()}
}

func (r *SyncResult) fail(err error) *SyncResult {
	r.Success = false
	r.Error = err.Error()
	return r
}

func (r *SyncResult) finish() SyncResult {
	r.Duration = time.Since(r.Timestamp)
	return *r
}
