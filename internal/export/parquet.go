package export

import (
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/errs"
)

func writeParquet(path string, t *dataset.Table) error {
	rec, arrSchema, err := tableToArrowRecord(t, memory.DefaultAllocator)
	if err != nil {
		return err
	}
	defer rec.Release()

	tbl := array.NewTableFromRecords(arrSchema, []arrow.Record{rec})
	defer tbl.Release()

	f, err := os.Create(path)
	if err != nil {
		return errs.Io.New("create", err.Error())
	}
	defer f.Close()

	props := parquet.NewWriterProperties(parquet.WithAllocator(memory.DefaultAllocator))
	arrProps := pqarrow.DefaultWriterProps()
	if err := pqarrow.WriteTable(tbl, f, tbl.NumRows(), props, arrProps); err != nil {
		return errs.Io.New("write parquet", err.Error())
	}
	return nil
}
