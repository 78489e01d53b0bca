package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/xelth-com/wotrack/internal/config"
	"github.com/xelth-com/wotrack/internal/models"
	"github.com/xelth-com/wotrack/internal/remote"
	"github.com/xelth-com/wotrack/internal/store"
	"github.com/xelth-com/wotrack/internal/utils"
	"golang.org/x/sync/errgroup"
)

// ErrNoRemote is reported when the engine runs without a remote store
var ErrNoRemote = errors.New("remote store not configured")

// deleteParallelism bounds concurrent remote delete batches
const deleteParallelism = 4

// Remote is the remote document collection the engine reconciles with
type Remote interface {
	ListAll(ctx context.Context) ([]models.Document, error)
	UpsertMany(ctx context.Context, docs []models.Document, p remote.Projection) error
	DeleteMany(ctx context.Context, ids []string) error
}

// SyncEngine reconciles the local store with the remote collection.
// Remote failures never propagate: they set the sync-error flag and the
// local store stays authoritative.
type SyncEngine struct {
	mu sync.RWMutex

	// Core components
	store    *store.Store
	remote   Remote
	config   *config.SyncConfig
	resolver *ConflictResolver
	saver    *utils.Debouncer

	// opMu serializes fetch and save against the remote
	opMu sync.Mutex

	// State
	isRunning      bool
	syncInProgress bool
	lastFetch      time.Time
	lastSave       time.Time
	lastError      string
	lastResult     *SyncResult

	// Channels
	stopChan chan struct{}
	syncChan chan SyncRequest
	wg       sync.WaitGroup
}

// NewSyncEngine creates a new sync engine. A nil remote keeps every sync
// operation in the offline state.
func NewSyncEngine(st *store.Store, rem Remote, cfg *config.SyncConfig) *SyncEngine {
	se := &SyncEngine{
		store:    st,
		remote:   rem,
		config:   cfg,
		resolver: NewConflictResolver(ConflictResolutionStrategy(cfg.ConflictResolution), cfg.FreshWindowDuration()),
		saver:    utils.NewDebouncer(cfg.SaveDebounce()),
		syncChan: make(chan SyncRequest, 16),
	}

	st.Subscribe(se.onStoreChange)
	return se
}

// Start launches the background worker, the periodic sync loop and the
// startup fetch
func (se *SyncEngine) Start() error {
	se.mu.Lock()
	defer se.mu.Unlock()

	if se.isRunning {
		return fmt.Errorf("sync engine already running")
	}
	if !se.config.Enabled {
		log.Println("⏭️ Sync Engine disabled by configuration")
		return nil
	}

	se.isRunning = true
	se.stopChan = make(chan struct{})
	log.Println("🔄 Sync Engine starting...")

	se.wg.Add(1)
	go se.syncWorker()

	if se.config.AutoSyncEnabled && se.config.AutoSyncInterval > 0 {
		se.wg.Add(1)
		go se.autoSyncLoop()
	}

	if se.config.SyncOnStartup {
		se.syncChan <- SyncRequest{Operation: OpFull, Reason: "startup"}
	}

	log.Println("✅ Sync Engine started")
	return nil
}

// Stop stops the background goroutines and flushes a pending save
func (se *SyncEngine) Stop() {
	se.mu.Lock()
	if !se.isRunning {
		se.mu.Unlock()
		return
	}
	log.Println("🛑 Stopping Sync Engine...")
	se.isRunning = false
	close(se.stopChan)
	se.mu.Unlock()

	se.wg.Wait()

	if se.saver.Cancel() {
		ctx, cancel := context.WithTimeout(context.Background(), se.config.Timeout())
		defer cancel()
		se.Save(ctx)
	}
	log.Println("✅ Sync Engine stopped")
}

// RequestFullSync queues a fetch followed by a save
func (se *SyncEngine) RequestFullSync(reason string) {
	se.enqueue(SyncRequest{Operation: OpFull, Reason: reason})
}

// ScheduleSave (re)starts the save debounce timer
func (se *SyncEngine) ScheduleSave() {
	se.saver.Call(func() {
		se.enqueue(SyncRequest{Operation: OpSave, Reason: "local change"})
	})
}

func (se *SyncEngine) onStoreChange(c store.Change) {
	switch c.Kind {
	case store.ChangeCreated, store.ChangeUpdated:
		se.ScheduleSave()
	}
}

// enqueue hands req to the worker, or runs it inline when the worker is not
// running
func (se *SyncEngine) enqueue(req SyncRequest) {
	se.mu.RLock()
	running := se.isRunning
	se.mu.RUnlock()

	if running {
		select {
		case se.syncChan <- req:
		default:
			log.Printf("⏳ Sync queue full, dropping %s request (%s)", req.Operation, req.Reason)
		}
		return
	}
	se.processSyncRequest(req)
}

// syncWorker processes sync requests
func (se *SyncEngine) syncWorker() {
	defer se.wg.Done()
	for {
		select {
		case req := <-se.syncChan:
			se.processSyncRequest(req)
		case <-se.stopChan:
			return
		}
	}
}

func (se *SyncEngine) processSyncRequest(req SyncRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*se.config.Timeout())
	defer cancel()

	log.Printf("🔄 Processing sync request: %s (%s)", req.Operation, req.Reason)

	switch req.Operation {
	case OpFetch:
		se.FetchAndMerge(ctx)
	case OpSave:
		se.Save(ctx)
	case OpFull:
		se.FetchAndMerge(ctx)
		se.Save(ctx)
	default:
		log.Printf("Unknown sync operation: %s", req.Operation)
	}
}

// autoSyncLoop periodically triggers a full synchronization
func (se *SyncEngine) autoSyncLoop() {
	defer se.wg.Done()

	ticker := time.NewTicker(time.Duration(se.config.AutoSyncInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			se.RequestFullSync("interval")
		case <-se.stopChan:
			return
		}
	}
}

// FetchAndMerge pulls the remote collection and merges it into the local
// store. On any remote failure the local collection is returned unchanged.
func (se *SyncEngine) FetchAndMerge(ctx context.Context) ([]models.Document, SyncResult) {
	se.opMu.Lock()
	defer se.opMu.Unlock()
	se.setInProgress(true)
	defer se.setInProgress(false)

	res := newResult(OpFetch)
	if se.remote == nil {
		return se.store.List(), se.record(res.fail(ErrNoRemote))
	}

	listedAt := time.Now()
	rctx, cancel := context.WithTimeout(ctx, se.config.Timeout())
	remoteDocs, err := se.remote.ListAll(rctx)
	cancel()
	if err != nil {
		log.Printf("⚠️ Sync: fetch failed, staying on local data: %v", err)
		return se.store.List(), se.record(res.fail(err))
	}

	remoteIDs := make(map[string]bool, len(remoteDocs))
	for _, d := range remoteDocs {
		remoteIDs[d.ID] = true
	}

	merged := se.store.Merge(func(local []models.Document, state store.MergeState) []models.Document {
		return se.merge(local, remoteDocs, state, res)
	})

	// A tombstone is settled once a listing taken after the delete no longer has the id
	var settled []string
	for id, deletedAt := range se.store.Tombstones() {
		if !remoteIDs[id] && deletedAt.Before(listedAt) {
			settled = append(settled, id)
		}
	}
	se.store.ClearTombstones(settled...)

	res.Documents = len(merged)
	log.Printf("✅ Sync: fetched %d remote documents, %d added, %d conflicts (%d remote wins), %d suppressed deletes",
		len(remoteDocs), res.Added, res.Conflicts, res.RemoteWins, res.Suppressed)

	se.mu.Lock()
	se.lastFetch = time.Now()
	se.mu.Unlock()
	return merged, se.record(res)
}

// merge combines both sides: remote-only documents are added unless deleted
// locally, documents on both sides go through the conflict resolver, and
// local-only documents are kept. A local write the remote has not accepted
// yet is never replaced.
func (se *SyncEngine) merge(local, remoteDocs []models.Document, state store.MergeState, res *SyncResult) []models.Document {
	index := make(map[string]int, len(local))
	for i, d := range local {
		index[d.ID] = i
	}

	out := local
	for _, r := range remoteDocs {
		if _, deleted := state.Tombstones[r.ID]; deleted {
			res.Suppressed++
			continue
		}

		i, ok := index[r.ID]
		if !ok {
			index[r.ID] = len(out)
			out = append(out, r)
			res.Added++
			continue
		}

		r = restoreProjectedOut(out[i], r)
		if !InConflict(out[i], r) {
			continue
		}
		res.Conflicts++
		_, unsynced := state.Unsynced[r.ID]
		resolution := se.resolver.ResolveConflict(out[i], r, unsynced)
		if resolution.WinnerSource == TruthSourceRemote {
			out[i] = r
			res.RemoteWins++
		}
	}
	return out
}

// Save pushes the whole local collection to the remote in batches. The
// local cache is written first. A schema mismatch is retried once with the
// legacy projection.
func (se *SyncEngine) Save(ctx context.Context) SyncResult {
	se.opMu.Lock()
	defer se.opMu.Unlock()
	se.setInProgress(true)
	defer se.setInProgress(false)

	se.store.Persist()
	// marks are taken before the listing so a write racing the save stays unsynced
	pending := se.store.Unsynced()
	docs := se.store.List()

	res := newResult(OpSave)
	res.Documents = len(docs)
	if se.remote == nil {
		return se.record(res.fail(ErrNoRemote))
	}

	projection := remote.ProjectionFull
	fellBack := false
	for start := 0; start < len(docs); start += se.batchSize() {
		batch := docs[start:min(start+se.batchSize(), len(docs))]

		err := se.upsert(ctx, batch, projection)
		if err != nil && remote.IsSchemaMismatch(err) && !fellBack {
			log.Printf("⚠️ Sync: remote rejected columns, retrying with legacy projection: %v", err)
			projection = remote.ProjectionLegacy
			fellBack = true
			err = se.upsert(ctx, batch, projection)
		}
		if err != nil {
			log.Printf("⚠️ Sync: save failed, will retry on next cycle: %v", err)
			res.Projection = projection.String()
			return se.record(res.fail(err))
		}
		se.store.MarkSynced(batchMarks(batch, pending))
	}
	res.Projection = projection.String()

	if tomb := se.store.Tombstones(); len(tomb) > 0 {
		ids := make([]string, 0, len(tomb))
		for id := range tomb {
			ids = append(ids, id)
		}
		if err := se.deleteRemote(ctx, ids); err != nil {
			log.Printf("⚠️ Sync: re-issuing %d pending deletes failed: %v", len(ids), err)
			return se.record(res.fail(err))
		}
	}

	log.Printf("✅ Sync: saved %d documents (%s projection)", len(docs), projection)

	se.mu.Lock()
	se.lastSave = time.Now()
	se.mu.Unlock()
	return se.record(res)
}

// batchMarks picks the unsynced marks of the documents in batch
func batchMarks(batch []models.Document, pending map[string]uint64) map[string]uint64 {
	marks := make(map[string]uint64, len(batch))
	for _, d := range batch {
		if rev, ok := pending[d.ID]; ok {
			marks[d.ID] = rev
		}
	}
	return marks
}

// restoreProjectedOut fills the columns a legacy-projection row cannot carry
// from the local copy. Such rows have no updated_at; their last write is the
// newest log entry, the same instant every local write stamps.
func restoreProjectedOut(local, r models.Document) models.Document {
	if !r.UpdatedAt.IsZero() {
		return r
	}
	if len(r.Logs) > 0 {
		r.UpdatedAt = r.Logs[0].Timestamp
	}
	if r.OriginalDate.IsZero() {
		r.OriginalDate = local.OriginalDate
	}
	if r.CorrectionStartedAt == nil && r.Status == local.Status && local.CorrectionStartedAt != nil {
		t := *local.CorrectionStartedAt
		r.CorrectionStartedAt = &t
	}
	if !r.IsInternational {
		r.IsInternational = local.IsInternational
	}
	return r
}

func (se *SyncEngine) upsert(ctx context.Context, batch []models.Document, p remote.Projection) error {
	rctx, cancel := context.WithTimeout(ctx, se.config.Timeout())
	defer cancel()
	return se.remote.UpsertMany(rctx, batch, p)
}

// Delete removes ids from the local store before contacting the remote.
// A remote failure is reported but never restores the local documents.
func (se *SyncEngine) Delete(ctx context.Context, ids []string) ([]string, SyncResult) {
	removed := se.store.Remove(ids...)
	log.Printf("🗑️ Sync: deleted %d documents locally", len(removed))

	res := newResult(OpDelete)
	res.Documents = len(ids)
	if se.remote == nil {
		return removed, se.record(res.fail(ErrNoRemote))
	}

	if err := se.deleteRemote(ctx, ids); err != nil {
		log.Printf("⚠️ Sync: remote delete failed, kept as pending: %v", err)
		return removed, se.record(res.fail(err))
	}
	return removed, se.record(res)
}

// deleteRemote issues DeleteMany in bounded parallel batches
func (se *SyncEngine) deleteRemote(ctx context.Context, ids []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteParallelism)

	size := se.batchSize()
	for start := 0; start < len(ids); start += size {
		batch := ids[start:min(start+size, len(ids))]
		g.Go(func() error {
			rctx, cancel := context.WithTimeout(gctx, se.config.Timeout())
			defer cancel()
			return se.remote.DeleteMany(rctx, batch)
		})
	}
	return g.Wait()
}

func (se *SyncEngine) batchSize() int {
	if se.config.BatchSize > 0 {
		return se.config.BatchSize
	}
	return 100
}

func (se *SyncEngine) setInProgress(v bool) {
	se.mu.Lock()
	se.syncInProgress = v
	se.mu.Unlock()
}

// record stores the outcome as the current sync state
func (se *SyncEngine) record(res *SyncResult) SyncResult {
	out := res.finish()
	se.mu.Lock()
	se.lastResult = &out
	if out.Success {
		se.lastError = ""
	} else {
		se.lastError = out.Error
	}
	se.mu.Unlock()
	return out
}

// HasSyncError reports whether the most recent remote operation failed
func (se *SyncEngine) HasSyncError() bool {
	se.mu.RLock()
	defer se.mu.RUnlock()
	return se.lastError != ""
}

// GetSyncStatus returns the current sync status
func (se *SyncEngine) GetSyncStatus() map[string]interface{} {
	se.mu.RLock()
	defer se.mu.RUnlock()

	return map[string]interface{}{
		"is_running":       se.isRunning,
		"sync_in_progress": se.syncInProgress,
		"has_remote":       se.remote != nil,
		"sync_error":       se.lastError != "",
		"last_error":       se.lastError,
		"last_fetch":       se.lastFetch,
		"last_save":        se.lastSave,
		"last_result":      se.lastResult,
		"save_pending":     se.saver.Pending(),
		"pending_deletes":  len(se.store.Tombstones()),
		"unsynced":         len(se.store.Unsynced()),
		"strategy":         se.resolver.Strategy(),
	}
}
