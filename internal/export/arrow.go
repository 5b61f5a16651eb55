package export

import (
	"os"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/errs"
)

func writeArrow(path string, t *dataset.Table) error {
	rec, arrSchema, err := tableToArrowRecord(t, memory.DefaultAllocator)
	if err != nil {
		return err
	}
	defer rec.Release()

	f, err := os.Create(path)
	if err != nil {
		return errs.Io.New("create", err.Error())
	}
	defer f.Close()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(arrSchema), ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return errs.Io.New("ipc writer", err.Error())
	}
	if err := w.Write(rec); err != nil {
		return errs.Io.New("write record", err.Error())
	}
	if err := w.Close(); err != nil {
		return errs.Io.New("close", err.Error())
	}
	return nil
}
