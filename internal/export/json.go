package export

import (
	"os"

	"github.com/ohler55/ojg/oj"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/errs"
)

func writeJSON(path string, t *dataset.Table, ndjson bool, compression string) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Io.New("create", err.Error())
	}
	defer f.Close()

	w, closeW, err := compressingWriter(f, compression)
	if err != nil {
		return err
	}

	if ndjson {
		for _, row := range t.Rows {
			rec := rowToMap(t, row)
			b, err := oj.Marshal(rec)
			if err != nil {
				return errs.Io.New("marshal", err.Error())
			}
			if _, err := w.Write(append(b, '\n')); err != nil {
				return errs.Io.New("write", err.Error())
			}
		}
		return closeW()
	}

	records := make([]map[string]any, len(t.Rows))
	for i, row := range t.Rows {
		records[i] = rowToMap(t, row)
	}
	b, err := oj.Marshal(records)
	if err != nil {
		return errs.Io.New("marshal", err.Error())
	}
	if _, err := w.Write(b); err != nil {
		return errs.Io.New("write", err.Error())
	}
	return closeW()
}

func rowToMap(t *dataset.Table, row dataset.Row) map[string]any {
	m := make(map[string]any, len(t.Schema))
	for i, col := range t.Schema {
		m[col.Name] = jsonCellValue(row[i])
	}
	return m
}

func jsonCellValue(v dataset.Value) any {
	switch vv := v.(type) {
	case nil:
		return nil
	default:
		return vv
	}
}
