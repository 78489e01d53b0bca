package sync

import (
	"testing"
	"time"

	"github.com/xelth-com/wotrack/internal/models"
)

func TestConflictResolver(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	at := func(ago time.Duration) models.Document {
		return models.Document{ID: "100000001", CreatedAt: now.Add(-48 * time.Hour), UpdatedAt: now.Add(-ago)}
	}

	testCases := []struct {
		name     string
		strategy ConflictResolutionStrategy
		local    models.Document
		remote   models.Document
		unsynced bool
		want     TruthSource
	}{
		{"fresh local wins", ConflictFreshWindow, at(time.Minute), at(0), false, TruthSourceLocal},
		{"stale local loses", ConflictFreshWindow, at(time.Hour), at(2 * time.Hour), false, TruthSourceRemote},
		{"stale unsynced local wins", ConflictFreshWindow, at(time.Hour), at(2 * time.Hour), true, TruthSourceLocal},
		{"later remote wins", ConflictLastWriteWins, at(time.Hour), at(time.Minute), false, TruthSourceRemote},
		{"later local wins", ConflictLastWriteWins, at(time.Minute), at(time.Hour), false, TruthSourceLocal},
		{"older unsynced local wins over older remote", ConflictLastWriteWins, at(time.Hour), at(2 * time.Hour), true, TruthSourceLocal},
		{"tie goes local", ConflictLastWriteWins, at(time.Hour), at(time.Hour), false, TruthSourceLocal},
		{"unknown strategy defaults to fresh window", "server_wins", at(time.Minute), at(0), false, TruthSourceLocal},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cr := NewConflictResolver(tc.strategy, 5*time.Minute)
			cr.now = func() time.Time { return now }

			got := cr.ResolveConflict(tc.local, tc.remote, tc.unsynced)
			if got.WinnerSource != tc.want {
				t.Errorf("winner = %s, want %s (%s)", got.WinnerSource, tc.want, got.Reason)
			}
		})
	}
}

func TestInConflict(t *testing.T) {
	base := models.Document{ID: "100000001", Status: models.StatusScanner, UpdatedAt: time.Now()}
	if InConflict(base, base.Clone()) {
		t.Error("identical copies are not in conflict")
	}

	other := base.Clone()
	other.Status = models.StatusAcceptance
	if !InConflict(base, other) {
		t.Error("differing status should be a conflict")
	}

	// updated_at round-trips through Postgres at microsecond precision
	stored := base.Clone()
	stored.UpdatedAt = base.UpdatedAt.Truncate(time.Microsecond)
	if InConflict(base, stored) {
		t.Error("sub-microsecond timestamp drift is not a conflict")
	}
}

func TestRestoreProjectedOut(t *testing.T) {
	written := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	corr := written.Add(-time.Hour)
	local := models.Document{
		ID:                  "100000001",
		Status:              models.StatusReturn,
		CreatedAt:           written.Add(-48 * time.Hour),
		OriginalDate:        written.Add(-72 * time.Hour),
		CorrectionStartedAt: &corr,
		IsInternational:     true,
		UpdatedAt:           written,
		Logs:                []models.DocLog{{Timestamp: written, Action: "Error reported", User: "Ana"}},
	}

	legacy := local.Clone()
	legacy.OriginalDate = time.Time{}
	legacy.CorrectionStartedAt = nil
	legacy.IsInternational = false
	legacy.UpdatedAt = time.Time{}

	got := restoreProjectedOut(local, legacy)
	if !got.UpdatedAt.Equal(written) {
		t.Errorf("UpdatedAt = %v, want newest log time %v", got.UpdatedAt, written)
	}
	if !got.OriginalDate.Equal(local.OriginalDate) || got.CorrectionStartedAt == nil || !got.IsInternational {
		t.Errorf("local-only columns not restored: %+v", got)
	}
	if InConflict(local, got) {
		t.Error("a legacy row of an unchanged document should not conflict")
	}

	full := legacy.Clone()
	full.UpdatedAt = written
	if got := restoreProjectedOut(local, full); !got.OriginalDate.IsZero() {
		t.Error("rows carrying updated_at are taken as they are")
	}
}
