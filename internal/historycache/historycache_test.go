package historycache

import (
	"testing"
)

func TestAppendSuppressesConsecutiveDuplicates(t *testing.T) {
	s := NewStore(t.TempDir(), 0)
	for _, e := range []string{"a", "a", "b", "b", "b", "c"} {
		if err := s.Append("widget1", e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	lines, err := s.Load("widget1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(lines) != len(want) {
		t.Fatalf("expected %v, got %v", want, lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, lines)
		}
	}
}

func TestAppendAllowsNonConsecutiveRepeats(t *testing.T) {
	s := NewStore(t.TempDir(), 0)
	s.Append("w", "a")
	s.Append("w", "b")
	s.Append("w", "a")
	lines, _ := s.Load("w")
	if len(lines) != 3 {
		t.Fatalf("expected 3 entries (non-consecutive repeat kept), got %v", lines)
	}
}

func TestTrimToLimit(t *testing.T) {
	s := NewStore(t.TempDir(), 3)
	for _, e := range []string{"1", "2", "3", "4", "5"} {
		s.Append("w", e)
	}
	lines, _ := s.Load("w")
	want := []string{"3", "4", "5"}
	if len(lines) != len(want) {
		t.Fatalf("expected %v, got %v", want, lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, lines)
		}
	}
}

func TestPersistsAcrossStores(t *testing.T) {
	dir := t.TempDir()
	s1 := NewStore(dir, 0)
	s1.Append("w", "x")
	s1.Append("w", "y")

	s2 := NewStore(dir, 0)
	lines, err := s2.Load("w")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(lines) != 2 || lines[0] != "x" || lines[1] != "y" {
		t.Fatalf("expected persisted history, got %v", lines)
	}
}

func TestClearRemovesOnlyNamedFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 0)
	s.Append("keep", "a")
	s.Append("drop", "b")

	if err := s.Clear([]string{"drop"}); err != nil {
		t.Fatalf("clear: %v", err)
	}

	kept, err := NewStore(dir, 0).Load("keep")
	if err != nil || len(kept) != 1 {
		t.Fatalf("expected keep widget to survive clear, got %v err=%v", kept, err)
	}
	dropped, err := NewStore(dir, 0).Load("drop")
	if err != nil || len(dropped) != 0 {
		t.Fatalf("expected drop widget history to be gone, got %v", dropped)
	}
}
