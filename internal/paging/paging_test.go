package paging

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/schema"
)

func bigDataset(n int) dataset.Dataset {
	sch := schema.Schema{{Name: "id", Type: schema.Int64}}
	rows := make([]dataset.Row, n)
	for i := 0; i < n; i++ {
		rows[i] = dataset.Row{int64(i)}
	}
	return dataset.FromTable(&dataset.Table{Schema: sch, Rows: rows})
}

func waitForPage(t *testing.T, e *Engine, pageID int64) *RowBatch {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b, ok := e.Page(pageID); ok {
			return b
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("page %d never arrived", pageID)
	return nil
}

func TestOnViewportChangeFetchesVisiblePage(t *testing.T) {
	ds := bigDataset(100)
	var mu sync.Mutex
	var received []*RowBatch
	e := New(ds, 16, 1, 1, func(b *RowBatch) {
		mu.Lock()
		received = append(received, b)
		mu.Unlock()
	})
	defer e.Close()

	e.OnViewportChange(Viewport{FirstVisible: 0, VisibleHeight: 16})
	b := waitForPage(t, e, 0)
	if len(b.Rows) != 16 {
		t.Fatalf("expected 16 rows in first page, got %d", len(b.Rows))
	}
	if b.Rows[0][0] != int64(0) {
		t.Fatalf("expected first row id 0, got %v", b.Rows[0][0])
	}
}

func TestReplaceBumpsGenerationAndClearsCache(t *testing.T) {
	ds := bigDataset(50)
	e := New(ds, 16, 1, 1, nil)
	defer e.Close()

	e.OnViewportChange(Viewport{FirstVisible: 0, VisibleHeight: 16})
	waitForPage(t, e, 0)

	e.Replace(bigDataset(50))
	if _, ok := e.Page(0); ok {
		t.Fatal("expected cache to be cleared after Replace")
	}
}

func TestCountIsCachedAfterFirstResolve(t *testing.T) {
	ds := bigDataset(42)
	e := New(ds, 16, 1, 1, nil)
	defer e.Close()

	n, err := e.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 42 {
		t.Fatalf("expected 42, got %d", n)
	}
	if !e.countKnown {
		t.Fatal("expected count to be cached after first resolve")
	}
}
