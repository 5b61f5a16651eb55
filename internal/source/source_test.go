package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestClassifyCloudSchemes(t *testing.T) {
	cases := []struct {
		raw    string
		class  Class
		bucket string
		key    string
	}{
		{"s3://bucket/path/to/file.csv", S3, "bucket", "path/to/file.csv"},
		{"s3a://bucket/key", S3, "bucket", "key"},
		{"gs://bucket/key.json", GCS, "bucket", "key.json"},
		{"gcs://bucket/key.json", GCS, "bucket", "key.json"},
		{"https://example.com/data.csv", Http, "", ""},
	}
	for _, c := range cases {
		ref := Classify(c.raw)
		if ref.Class != c.class {
			t.Errorf("Classify(%q).Class = %v, want %v", c.raw, ref.Class, c.class)
		}
		if c.class != Http && (ref.Bucket != c.bucket || ref.Key != c.key) {
			t.Errorf("Classify(%q) = %+v, want bucket=%q key=%q", c.raw, ref, c.bucket, c.key)
		}
	}
}

func TestClassifyLocalFileVsDirectoryVsGlob(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(file, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if ref := Classify(file); ref.Class != Local {
		t.Fatalf("expected Local, got %v", ref.Class)
	}
	if ref := Classify(dir); ref.Class != Directory {
		t.Fatalf("expected Directory, got %v", ref.Class)
	}
	if ref := Classify(filepath.Join(dir, "*.csv")); ref.Class != Glob {
		t.Fatalf("expected Glob, got %v", ref.Class)
	}
}

func TestExpandLocalGlobSortedAndFilesOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.csv", "a.csv"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := ExpandLocalGlob(filepath.Join(dir, "*.csv"))
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files (directory excluded), got %v", files)
	}
	if filepath.Base(files[0]) != "a.csv" || filepath.Base(files[1]) != "b.csv" {
		t.Fatalf("expected sorted order, got %v", files)
	}
}

func TestHiveHintFromChildren(t *testing.T) {
	if !HiveHintFromChildren([]string{"year=2024/", "year=2025/"}) {
		t.Fatal("expected hive hint for key=value children")
	}
	if HiveHintFromChildren([]string{"2024/", "2025/"}) {
		t.Fatal("expected no hive hint for plain children")
	}
}

func TestNewContextCleanup(t *testing.T) {
	base := t.TempDir()
	ctx, err := NewContext(base)
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	if _, err := os.Stat(ctx.TempDir); err != nil {
		t.Fatalf("expected temp dir to exist: %v", err)
	}
	ctx.Cleanup()
	if _, err := os.Stat(ctx.TempDir); !os.IsNotExist(err) {
		t.Fatalf("expected temp dir to be removed after cleanup")
	}
}
