package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/schema"
)

func sampleDataset() dataset.Dataset {
	sch := schema.Schema{
		{Name: "id", Type: schema.Int64},
		{Name: "name", Type: schema.String},
	}
	rows := []dataset.Row{
		{int64(1), "alpha"},
		{int64(2), "beta"},
	}
	return dataset.FromTable(&dataset.Table{Schema: sch, Rows: rows})
}

func TestExportCSVWritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	err := Export(context.Background(), sampleDataset(), Request{
		Path:       path,
		Format:     Csv,
		CSVOptions: CSVOptions{Delimiter: ',', IncludeHeader: true},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "id,name\n1,alpha\n2,beta\n"
	if string(data) != want {
		t.Fatalf("got %q, want %q", string(data), want)
	}
}

func TestExportRefusesOverwriteWithoutFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := os.WriteFile(path, []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := Export(context.Background(), sampleDataset(), Request{
		Path:       path,
		Format:     Csv,
		CSVOptions: CSVOptions{Delimiter: ',', IncludeHeader: true},
	})
	if err == nil {
		t.Fatal("expected an error when overwriting without Overwrite set")
	}
}

func TestExportRejectsCompressionOnParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.parquet")
	err := Export(context.Background(), sampleDataset(), Request{
		Path:        path,
		Format:      Parquet,
		Compression: "gzip",
	})
	if err == nil {
		t.Fatal("expected compression to be rejected for parquet")
	}
}
