package template

import (
	"testing"
	"time"
)

func TestGlobMatch(t *testing.T) {
	cases := []struct {
		pattern, s string
		want       bool
	}{
		{"*.csv", "data.csv", true},
		{"*.csv", "data.json", false},
		{"report_?.csv", "report_1.csv", true},
		{"report_?.csv", "report_12.csv", false},
		{"exact.csv", "exact.csv", true},
	}
	for _, c := range cases {
		if got := globMatch(c.pattern, c.s); got != c.want {
			t.Errorf("globMatch(%q, %q) = %v, want %v", c.pattern, c.s, got, c.want)
		}
	}
}

func TestScoreExactPathAndSchemaOutranksExactPathAlone(t *testing.T) {
	now := time.Now()
	cand := Candidate{AbsolutePath: "/data/a.csv", Columns: []string{"x", "y"}}

	exactBoth := &Template{AbsolutePath: "/data/a.csv", Columns: []string{"x", "y"}}
	exactPathOnly := &Template{AbsolutePath: "/data/a.csv", Columns: []string{"z"}}

	if Score(exactBoth, cand, now) <= Score(exactPathOnly, cand, now) {
		t.Fatal("expected exact path+schema to outscore exact path alone")
	}
}

func TestScoreUsageCountCapsAtTen(t *testing.T) {
	now := time.Now()
	cand := Candidate{Columns: []string{"x"}}
	low := &Template{Columns: []string{"x"}, UsageCount: 5}
	capped := &Template{Columns: []string{"x"}, UsageCount: 50}

	// both score the same schema-only base (900) + usage; capped should
	// be exactly 5 points higher (10 - 5), not 45.
	diff := Score(capped, cand, now) - Score(low, cand, now)
	if diff != 5 {
		t.Fatalf("expected usage count to cap at 10, diff=%d", diff)
	}
}

func TestScoreRecencyBonus(t *testing.T) {
	now := time.Now()
	cand := Candidate{Columns: []string{"x"}}
	recent := &Template{Columns: []string{"x"}, LastUsedAt: now.Add(-2 * 24 * time.Hour).Unix()}
	stale := &Template{Columns: []string{"x"}, LastUsedAt: now.Add(-60 * 24 * time.Hour).Unix()}

	if Score(recent, cand, now) <= Score(stale, cand, now) {
		t.Fatal("expected a recently used template to score higher")
	}
}

func TestBestPicksHighestScore(t *testing.T) {
	now := time.Now()
	cand := Candidate{AbsolutePath: "/data/a.csv", Columns: []string{"x", "y"}}
	templates := []*Template{
		{ID: "weak", Columns: []string{"z"}},
		{ID: "strong", AbsolutePath: "/data/a.csv", Columns: []string{"x", "y"}},
	}
	best := Best(templates, cand, now)
	if best == nil || best.ID != "strong" {
		t.Fatalf("expected strong template to win, got %+v", best)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	tmpl := &Template{
		ID:           NewID("my view", 1000),
		Name:         "my view",
		AbsolutePath: "/data/a.csv",
		Columns:      []string{"x", "y"},
		CreatedAt:    1000,
		Config:       map[string]any{"query": "select x, y"},
	}
	if err := s.Save(tmpl); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 template, got %d", len(loaded))
	}
	if loaded[0].Name != "my view" || loaded[0].SchemaVersion != schemaVersion {
		t.Fatalf("unexpected loaded template: %+v", loaded[0])
	}
}

func TestRecordUseUpdatesUsageAndTimestamp(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	tmpl := &Template{ID: "t1", Name: "t", CreatedAt: 1}
	if err := s.Save(tmpl); err != nil {
		t.Fatalf("save: %v", err)
	}
	now := time.Now()
	if err := s.RecordUse(tmpl, now); err != nil {
		t.Fatalf("record use: %v", err)
	}
	if tmpl.UsageCount != 1 || tmpl.LastUsedAt != now.Unix() {
		t.Fatalf("expected usage bookkeeping to update, got %+v", tmpl)
	}
}
