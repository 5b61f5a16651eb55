// Package export implements the Exporter from spec §4.H: writing the
// current (post-transform) view to CSV, Parquet, JSON, NDJSON, Arrow,
// or Avro, plus a separate chart exporter for PNG/EPS.
//
// The per-format table writers are new — the teacher only ever read
// files, it had no CSV/Parquet/Arrow/Avro writers to adapt — built on
// the same library choices the teacher/pack already use for reading
// each format (encoding/csv, apache/arrow-go/v18, hamba/avro/v2). The
// atomic write-then-rename idiom is a standard Go pattern, not grounded
// on a teacher file (see DESIGN.md).
package export

import (
	"context"
	"os"
	"path/filepath"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/errs"
)

// Format is the closed set of table export formats (spec §4.H).
type Format int

const (
	Csv Format = iota
	Parquet
	Json
	Ndjson
	Arrow
	Avro
)

// CSVOptions controls the text-format export path.
type CSVOptions struct {
	Delimiter     rune
	IncludeHeader bool
}

// Request bundles the exporter's inputs.
type Request struct {
	Path        string
	Format      Format
	Compression string // "", "none", "gzip", "zstd", "xz" — text formats only
	CSVOptions  CSVOptions
	Overwrite   bool
}

// Export materializes ds and writes it to req.Path, atomically: the
// table is written to "<path>.tmp" first, flushed, then renamed over
// path (spec §4.H "Writes are atomic").
func Export(ctx context.Context, ds dataset.Dataset, req Request) error {
	if err := validate(req); err != nil {
		return err
	}
	if !req.Overwrite {
		if _, err := os.Stat(req.Path); err == nil {
			return errs.AlreadyExists.New(req.Path)
		}
	}

	table, err := ds.Collect(ctx)
	if err != nil {
		return err
	}

	if err := ensureDir(req.Path); err != nil {
		return err
	}

	tmp := req.Path + ".tmp"
	if err := writeTable(tmp, table, req); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, req.Path); err != nil {
		os.Remove(tmp)
		return errs.Io.New("rename", err.Error())
	}
	return nil
}

func validate(req Request) error {
	if req.Compression != "" && req.Format != Csv && req.Format != Json && req.Format != Ndjson {
		return errs.InvalidOption.New("compression does not apply to " + formatName(req.Format))
	}
	return nil
}

func formatName(f Format) string {
	switch f {
	case Parquet:
		return "parquet"
	case Json:
		return "json"
	case Ndjson:
		return "ndjson"
	case Arrow:
		return "arrow"
	case Avro:
		return "avro"
	default:
		return "csv"
	}
}

func writeTable(path string, t *dataset.Table, req Request) error {
	switch req.Format {
	case Csv:
		return writeCSV(path, t, req.CSVOptions, req.Compression)
	case Json:
		return writeJSON(path, t, false, req.Compression)
	case Ndjson:
		return writeJSON(path, t, true, req.Compression)
	case Parquet:
		return writeParquet(path, t)
	case Arrow:
		return writeArrow(path, t)
	case Avro:
		return writeAvro(path, t)
	default:
		return errs.InvalidOption.New("unknown export format")
	}
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Io.New("mkdir", err.Error())
	}
	return nil
}
