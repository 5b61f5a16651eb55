package hiveschema

import (
	"testing"

	"github.com/derekwisong/datui/internal/schema"
)

func TestFirstParquetObject(t *testing.T) {
	key, ok := firstParquetObject([]string{"README.txt", "part-0.parquet"})
	if !ok || key != "part-0.parquet" {
		t.Fatalf("expected to find part-0.parquet, got %q ok=%v", key, ok)
	}
	if _, ok := firstParquetObject([]string{"a.txt", "b.csv"}); ok {
		t.Fatal("expected no parquet object found")
	}
}

func TestFirstPartitionDir(t *testing.T) {
	sub, col, ok := firstPartitionDir([]string{"data/year=2024/", "data/other/"}, "data/")
	if !ok || col != "year" || sub != "data/year=2024/" {
		t.Fatalf("unexpected result: sub=%q col=%q ok=%v", sub, col, ok)
	}
	if _, _, ok := firstPartitionDir([]string{"data/plain/"}, "data/"); ok {
		t.Fatal("expected no key=value partition dir found")
	}
}

func TestMergePartitionColumnsPrependsAndDedupesCollisions(t *testing.T) {
	fileSchema := schema.Schema{
		{Name: "year", Type: schema.Int64}, // collides with partition column
		{Name: "value", Type: schema.Float64},
	}
	merged := mergePartitionColumns([]string{"year", "region"}, fileSchema)

	want := []string{"year", "region", "value"}
	if len(merged) != len(want) {
		t.Fatalf("expected %v, got %+v", want, merged)
	}
	for i, name := range want {
		if merged[i].Name != name {
			t.Fatalf("expected %v, got %+v", want, merged)
		}
	}
	if merged[0].Type != schema.String || merged[1].Type != schema.String {
		t.Fatalf("expected partition columns to be String-typed, got %+v", merged[:2])
	}
}

func TestContainsString(t *testing.T) {
	if !containsString([]string{"a", "b"}, "b") {
		t.Fatal("expected to find b")
	}
	if containsString([]string{"a", "b"}, "c") {
		t.Fatal("expected not to find c")
	}
}
