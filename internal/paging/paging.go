// Package paging implements the Paging Engine from spec §4.F: a
// generation-tagged page cache over a dataset.Dataset, fed by a single
// background worker so the UI goroutine never blocks on a fetch.
//
// The eviction primitive (lru.go) is adapted from the teacher's
// cache.LRUList (internal/cache/lru.go). The single-worker/bounded-queue
// scheduling model is new — the teacher fetched rows synchronously on
// the UI goroutine — and is built on golang.org/x/sync/errgroup per
// SPEC_FULL.md's concurrency model.
package paging

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/schema"
)

const (
	minPageSize = 16
	maxPageSize = 4096
)

// RowBatch is one materialized page: dataset rows starting at Offset.
type RowBatch struct {
	PageID     int64
	Offset     int64
	Schema     schema.Schema
	Rows       []dataset.Row
	Generation uint64
}

// Viewport is the visible window the UI reports on every scroll event.
type Viewport struct {
	FirstVisible   int64
	VisibleHeight  int
	TotalRowsHint  int64
}

// clampPageSize applies spec §4.F's [16, 4096] clamp.
func clampPageSize(n int) int {
	if n < minPageSize {
		return minPageSize
	}
	if n > maxPageSize {
		return maxPageSize
	}
	return n
}

type fetchRequest struct {
	pageID     int64
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
}

// Engine mediates between a Viewport and a dataset.Dataset.
type Engine struct {
	mu sync.Mutex

	ds       dataset.Dataset
	pageSize int
	lookback int
	lookahead int

	generation uint64
	cache      map[int64]*RowBatch
	lru        *lruList
	maxPages   int

	pending map[int64]*fetchRequest
	queue   chan *fetchRequest

	count      uint64
	countErr   error
	countKnown bool
	highestPage int64

	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	onPage func(*RowBatch)
}

// New creates an Engine over ds. visibleHeight seeds the default page
// size (spec §4.F: "page_size defaults to visible_height"). onPage is
// invoked from the worker goroutine whenever a fetch completes with a
// batch whose generation is still current; the caller must treat it as
// a background notification, not a direct return value.
func New(ds dataset.Dataset, visibleHeight, lookback, lookahead int, onPage func(*RowBatch)) *Engine {
	if lookback <= 0 {
		lookback = 3
	}
	if lookahead <= 0 {
		lookahead = 3
	}
	pageSize := clampPageSize(visibleHeight)
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	e := &Engine{
		ds:        ds,
		pageSize:  pageSize,
		lookback:  lookback,
		lookahead: lookahead,
		cache:     make(map[int64]*RowBatch),
		lru:       newLRUList(),
		maxPages:  lookback + lookahead + 8,
		pending:   make(map[int64]*fetchRequest),
		queue:     make(chan *fetchRequest, lookahead+lookback+1),
		group:     group,
		ctx:       gctx,
		cancel:    cancel,
		onPage:    onPage,
	}
	group.Go(func() error { return e.worker(gctx) })
	return e
}

// Close stops the background worker and cancels all pending fetches.
func (e *Engine) Close() {
	e.cancel()
	e.group.Wait()
}

// Replace swaps in a new dataset (filter/sort/query/pivot/melt change
// or drill-down), bumping the generation so in-flight responses tagged
// with the old generation are discarded on arrival (spec §4.F).
func (e *Engine) Replace(ds dataset.Dataset) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ds = ds
	e.generation++
	e.cache = make(map[int64]*RowBatch)
	e.lru = newLRUList()
	e.pending = make(map[int64]*fetchRequest)
	e.countKnown = false
	e.count = 0
	e.countErr = nil
	e.highestPage = 0
}

func (e *Engine) pageID(row int64) int64 { return row / int64(e.pageSize) }

// Page returns the cached page for pageID if present, without
// triggering a fetch.
func (e *Engine) Page(pageID int64) (*RowBatch, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.cache[pageID]
	if ok {
		e.lru.touch(pageID)
	}
	return b, ok
}

// OnViewportChange enqueues fetches for the prefetch window around the
// viewport and cancels/evicts pages that fell outside it (spec §4.F
// prefetch + cancellation policy). Visible pages are enqueued before
// look-ahead pages so the ordering guarantee holds.
func (e *Engine) OnViewportChange(v Viewport) {
	e.mu.Lock()
	defer e.mu.Unlock()

	firstPage := e.pageID(v.FirstVisible)
	lastRow := v.FirstVisible + int64(v.VisibleHeight) - 1
	if lastRow < v.FirstVisible {
		lastRow = v.FirstVisible
	}
	lastPage := e.pageID(lastRow)
	lowPage := firstPage - int64(e.lookback)
	if lowPage < 0 {
		lowPage = 0
	}
	highPage := lastPage + int64(e.lookahead)

	inWindow := func(p int64) bool { return p >= lowPage && p <= highPage }

	for id, req := range e.pending {
		if !inWindow(id) {
			req.cancel()
			delete(e.pending, id)
		}
	}
	for id := range e.cache {
		if !inWindow(id) {
			e.evictLocked(id)
		}
	}

	for p := firstPage; p <= lastPage; p++ {
		e.enqueueLocked(p)
	}
	for offset := int64(1); firstPage-offset >= lowPage || lastPage+offset <= highPage; offset++ {
		if lastPage+offset <= highPage {
			e.enqueueLocked(lastPage + offset)
		}
		if firstPage-offset >= lowPage {
			e.enqueueLocked(firstPage - offset)
		}
	}
}

func (e *Engine) enqueueLocked(pageID int64) {
	if pageID < 0 {
		return
	}
	if _, cached := e.cache[pageID]; cached {
		e.lru.touch(pageID)
		return
	}
	if _, inflight := e.pending[pageID]; inflight {
		return
	}
	ctx, cancel := context.WithCancel(e.ctx)
	req := &fetchRequest{pageID: pageID, generation: e.generation, ctx: ctx, cancel: cancel}
	e.pending[pageID] = req
	select {
	case e.queue <- req:
	default:
		// bounded queue is full; drop silently, a later viewport change
		// will re-enqueue this page if it is still in window.
		delete(e.pending, pageID)
		cancel()
	}
}

func (e *Engine) evictLocked(pageID int64) {
	delete(e.cache, pageID)
	e.lru.remove(pageID)
}

func (e *Engine) worker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-e.queue:
			e.serve(req)
		}
	}
}

func (e *Engine) serve(req *fetchRequest) {
	defer req.cancel()
	if req.ctx.Err() != nil {
		e.mu.Lock()
		delete(e.pending, req.pageID)
		e.mu.Unlock()
		return
	}

	e.mu.Lock()
	ds := e.ds
	pageSize := e.pageSize
	e.mu.Unlock()

	offset := uint64(req.pageID) * uint64(pageSize)
	table, err := ds.Slice(req.ctx, offset, uint32(pageSize))

	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, req.pageID)
	if req.generation != e.generation {
		return // stale response, discard per spec §4.F
	}
	if err != nil {
		return
	}
	batch := &RowBatch{PageID: req.pageID, Offset: req.pageID * int64(pageSize), Schema: table.Schema, Rows: table.Rows, Generation: req.generation}
	e.cache[req.pageID] = batch
	e.lru.addToFront(req.pageID)
	if req.pageID > e.highestPage {
		e.highestPage = req.pageID
	}
	e.evictOverflowLocked()

	if e.onPage != nil {
		e.onPage(batch)
	}
}

func (e *Engine) evictOverflowLocked() {
	for e.lru.Size() > e.maxPages {
		id, ok := e.lru.removeOldest()
		if !ok {
			return
		}
		delete(e.cache, id)
	}
}

// HighestObservedRow returns the row index just past the end of the
// highest page fetched so far (page 0 counts before any fetch, and a
// final partial page still counts as full), for the "rows ≥ N" display used before
// Count() resolves (spec §4.F row-count semantics).
func (e *Engine) HighestObservedRow() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return (e.highestPage + 1) * int64(e.pageSize)
}

// Count resolves the dataset's total row count, requesting it lazily
// on first call and caching the result for subsequent calls (spec
// §4.F: "requested lazily ... the engine requests it on first such
// request").
func (e *Engine) Count(ctx context.Context) (uint64, error) {
	e.mu.Lock()
	ds := e.ds
	known := e.countKnown
	cached, cerr := e.count, e.countErr
	e.mu.Unlock()
	if known {
		return cached, cerr
	}

	n, err := ds.Count(ctx)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.count, e.countErr, e.countKnown = n, err, true
	return n, err
}
