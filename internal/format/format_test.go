package format

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestOpenCSVInfersSchemaAndReadsRows(t *testing.T) {
	path := writeTemp(t, "data.csv", "id,name,score\n1,alpha,1.5\n2,beta,2.5\n")

	ds, err := Open(path, DefaultOptions())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	sch := ds.Schema()
	if len(sch) != 3 {
		t.Fatalf("expected 3 columns, got %d: %+v", len(sch), sch)
	}
	if sch[0].Name != "id" || sch[1].Name != "name" || sch[2].Name != "score" {
		t.Fatalf("unexpected column names: %+v", sch)
	}

	table, err := ds.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}
}

func TestOpenTSVUsesTabDelimiter(t *testing.T) {
	path := writeTemp(t, "data.tsv", "a\tb\n1\t2\n")

	opts := DefaultOptions()
	opts.Format = Tsv
	ds, err := Open(path, opts)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(ds.Schema()) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(ds.Schema()))
	}
}

func TestOpenUnsupportedFormatErrors(t *testing.T) {
	path := writeTemp(t, "data.bin", "not a real format")
	opts := DefaultOptions()
	opts.Format = FileType(999) // not in the closed set
	if _, err := Open(path, opts); err == nil {
		t.Fatal("expected an error for an unsupported explicit format")
	}
}

func TestDetectFileTypeAndCompressionFromExtension(t *testing.T) {
	ft, comp := DetectFileTypeAndCompression("data.csv.gz", Unknown, None)
	if ft != Csv {
		t.Fatalf("expected csv, got %v", ft)
	}
	if comp != Gzip {
		t.Fatalf("expected gzip, got %v", comp)
	}
}
