package export

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/errs"
)

func compressingWriter(f *os.File, compression string) (io.Writer, func() error, error) {
	switch compression {
	case "", "none":
		return f, func() error { return nil }, nil
	case "gzip":
		w := gzip.NewWriter(f)
		return w, w.Close, nil
	case "zstd":
		w, err := zstd.NewWriter(f)
		if err != nil {
			return nil, nil, errs.Io.New("zstd writer", err.Error())
		}
		return w, w.Close, nil
	case "xz":
		w, err := xz.NewWriter(f)
		if err != nil {
			return nil, nil, errs.Io.New("xz writer", err.Error())
		}
		return w, w.Close, nil
	default:
		return nil, nil, errs.InvalidOption.New("unsupported compression: " + compression)
	}
}

func writeCSV(path string, t *dataset.Table, opts CSVOptions, compression string) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Io.New("create", err.Error())
	}
	defer f.Close()

	w, closeW, err := compressingWriter(f, compression)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	delim := opts.Delimiter
	if delim == 0 {
		delim = ','
	}
	cw.Comma = delim

	if opts.IncludeHeader {
		header := make([]string, len(t.Schema))
		for i, c := range t.Schema {
			header[i] = c.Name
		}
		if err := cw.Write(header); err != nil {
			return errs.Io.New("write header", err.Error())
		}
	}

	record := make([]string, len(t.Schema))
	for _, row := range t.Rows {
		for i, v := range row {
			record[i] = cellToString(v)
		}
		if err := cw.Write(record); err != nil {
			return errs.Io.New("write row", err.Error())
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errs.Io.New("flush", err.Error())
	}
	return closeW()
}

func cellToString(v dataset.Value) string {
	if v == nil {
		return ""
	}
	switch vv := v.(type) {
	case string:
		return vv
	case time.Time:
		return vv.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(vv)
	}
}
