package format

import (
	"context"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/errs"
	"github.com/derekwisong/datui/internal/schema"
)

// xlsxSource is an eager reader: the whole sheet is loaded into memory up
// front and wrapped as a lazy in-memory table, per spec §4.B ("Excel:
// eager read of a single sheet ... converted to a lazy in-memory
// table"). Grounded on the teacher's existing xuri/excelize/v2 dependency.
type xlsxSource struct {
	sch  schema.Schema
	rows []dataset.Row
}

// OpenExcel reads opts.Sheet (a 0-based index or a sheet name) eagerly.
func OpenExcel(path string, opts Options) (dataset.RowSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errs.Decode.New(err.Error())
	}
	defer f.Close()

	sheetName := opts.Sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	} else if idx, perr := strconv.Atoi(sheetName); perr == nil {
		name := f.GetSheetName(idx)
		if name == "" {
			return nil, errs.InputNotFound.New("sheet index " + sheetName)
		}
		sheetName = name
	}

	grid, err := f.GetRows(sheetName)
	if err != nil {
		return nil, errs.Decode.New(err.Error())
	}
	if len(grid) == 0 {
		return &xlsxSource{sch: schema.Schema{}}, nil
	}

	var header []string
	dataStart := 0
	if opts.HasHeader || true {
		header = NormalizeHeaders(grid[0])
		dataStart = 1
	}

	strRows := grid[dataStart:]
	sch := make(schema.Schema, len(header))
	for i, name := range header {
		sch[i] = schema.Column{Name: name, Type: inferExcelColumnType(i, strRows)}
	}

	rows := make([]dataset.Row, len(strRows))
	for i, r := range strRows {
		row := make(dataset.Row, len(sch))
		for j, col := range sch {
			if j >= len(r) {
				row[j] = nil
				continue
			}
			row[j] = convertCSVCell(r[j], col.Type, j, opts)
		}
		rows[i] = row
	}
	return &xlsxSource{sch: sch, rows: rows}, nil
}

func inferExcelColumnType(col int, rows [][]string) schema.DType {
	sample := rows
	if len(sample) > 1000 {
		sample = sample[:1000]
	}
	return inferColumnType(col, sample, Options{ParseDates: true})
}

func (s *xlsxSource) Schema() schema.Schema { return s.sch }

func (s *xlsxSource) Rows(ctx context.Context) ([]dataset.Row, error) {
	return s.rows, nil
}
