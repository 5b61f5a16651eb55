// Package hiveschema implements the single-spine fast path for
// resolving the schema of a hive-partitioned S3/GCS prefix without
// scanning every file, per spec §4.C. There is no teacher equivalent —
// the teacher only ever read individual local files — so this package
// is grounded on the pack's S3/GCS list-objects idioms (adapted into
// internal/source/cloud.go) plus the Parquet footer reader already
// wired in internal/format/parquet.go.
package hiveschema

import (
	"context"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/derekwisong/datui/internal/errs"
	"github.com/derekwisong/datui/internal/format"
	"github.com/derekwisong/datui/internal/schema"
	"github.com/derekwisong/datui/internal/source"
)

// maxSpineDepth bounds the single-spine descent (spec §4.C step 1,
// "bounded depth, e.g. 64").
const maxSpineDepth = 64

// tailBytes is how much of the tail of the first discovered Parquet
// object to fetch before parsing its footer (spec §4.C step 2).
const tailBytes = 256 * 1024

// Lister abstracts the cloud prefix listing primitive so both S3 and
// GCS resolve through the same spine-walk, and so tests can supply a
// fake without touching real cloud credentials.
type Lister interface {
	List(ctx context.Context, bucket, prefix string) (dirs []string, objects []string, err error)
}

// TailFetcher abstracts fetching the tail bytes of an object.
type TailFetcher interface {
	FetchTail(ctx context.Context, bucket, key string, n int64) ([]byte, error)
}

type s3Backend struct{}

func (s3Backend) List(ctx context.Context, bucket, prefix string) ([]string, []string, error) {
	return source.ListS3Prefix(ctx, bucket, prefix)
}
func (s3Backend) FetchTail(ctx context.Context, bucket, key string, n int64) ([]byte, error) {
	return source.FetchS3Tail(ctx, bucket, key, n)
}

type gcsBackend struct{}

func (gcsBackend) List(ctx context.Context, bucket, prefix string) ([]string, []string, error) {
	return source.ListGCSPrefix(ctx, bucket, prefix)
}
func (gcsBackend) FetchTail(ctx context.Context, bucket, key string, n int64) ([]byte, error) {
	// GCS ranged reads aren't wired; the slow path covers this case.
	return nil, errs.SchemaInferenceFailed.New("gcs tail fetch not supported on fast path")
}

// BackendFor returns the Lister+TailFetcher pair for a source.Class.
func BackendFor(cls source.Class) (Lister, TailFetcher, bool) {
	switch cls {
	case source.S3:
		return s3Backend{}, s3Backend{}, true
	case source.GCS:
		return gcsBackend{}, gcsBackend{}, true
	default:
		return nil, nil, false
	}
}

// Result is the fast-path outcome: the effective schema (partition
// columns first, per spec §4.C step 4) plus the ordered partition
// column names. Rows read from the partition files are not augmented
// with these columns.
type Result struct {
	Schema           schema.Schema
	PartitionColumns []string
}

// Resolve walks bucket/prefix one key=value level at a time until it
// finds a *.parquet object, fetches its footer, and merges the
// discovered partition columns ahead of the file schema.
func Resolve(ctx context.Context, lister Lister, tf TailFetcher, bucket, prefix string) (*Result, error) {
	var partitionCols []string
	cur := prefix
	var parquetKey string

	for depth := 0; depth < maxSpineDepth; depth++ {
		dirs, objects, err := lister.List(ctx, bucket, cur)
		if err != nil {
			return nil, errs.SchemaInferenceFailed.New(err.Error())
		}
		if key, ok := firstParquetObject(objects); ok {
			parquetKey = key
			break
		}
		sub, col, ok := firstPartitionDir(dirs, cur)
		if !ok {
			return nil, errs.SchemaInferenceFailed.New("no key=value sub-prefix or parquet object found under " + cur)
		}
		if !containsString(partitionCols, col) {
			partitionCols = append(partitionCols, col)
		}
		cur = sub
	}
	if parquetKey == "" {
		return nil, errs.SchemaInferenceFailed.New("exceeded max spine depth without finding a parquet object")
	}

	tail, err := tf.FetchTail(ctx, bucket, parquetKey, tailBytes)
	if err != nil {
		return nil, errs.SchemaInferenceFailed.New(err.Error())
	}
	fileSchema, err := schemaFromFooterBytes(tail)
	if err != nil {
		return nil, errs.SchemaInferenceFailed.New(err.Error())
	}

	merged := mergePartitionColumns(partitionCols, fileSchema)
	return &Result{Schema: merged, PartitionColumns: partitionCols}, nil
}

func firstParquetObject(objects []string) (string, bool) {
	for _, o := range objects {
		if strings.HasSuffix(o, ".parquet") {
			return o, true
		}
	}
	return "", false
}

// firstPartitionDir returns the first CommonPrefix under cur whose
// basename looks like key=value, along with the partition column name.
func firstPartitionDir(dirs []string, cur string) (sub, col string, ok bool) {
	for _, d := range dirs {
		rel := strings.TrimPrefix(d, cur)
		rel = strings.Trim(rel, "/")
		if i := strings.IndexByte(rel, '='); i > 0 {
			return d, rel[:i], true
		}
	}
	return "", "", false
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// mergePartitionColumns prepends partition columns (all String-typed
// per spec §4.C step 3) ahead of the file schema, dropping any file
// column whose name collides with a partition column (step 4: "minus
// any name collisions resolved in favor of the partition column").
func mergePartitionColumns(partitionCols []string, fileSchema schema.Schema) schema.Schema {
	partSet := make(map[string]bool, len(partitionCols))
	out := make(schema.Schema, 0, len(partitionCols)+len(fileSchema))
	for _, name := range partitionCols {
		partSet[name] = true
		out = append(out, schema.Column{Name: name, Type: schema.String})
	}
	for _, col := range fileSchema {
		if partSet[col.Name] {
			continue
		}
		out = append(out, col)
	}
	return out
}

// schemaFromFooterBytes parses a tail byte slice as a standalone
// Parquet file reader expects the full footer to be addressable from
// the end of the buffer; arrow-go's file.NewParquetReader operates on
// an io.ReaderAt, so the fetched tail is treated as if it were the
// entire (truncated) file, which is sufficient for footer parsing
// since Parquet reads the footer length from the last 8 bytes and
// walks backward.
func schemaFromFooterBytes(tail []byte) (schema.Schema, error) {
	r := &byteReaderAt{data: tail}
	pf, err := file.NewParquetReader(r, file.WithReadProps(parquet.NewReaderProperties(memory.DefaultAllocator)))
	if err != nil {
		return nil, err
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, err
	}
	arrSchema, err := fr.Schema()
	if err != nil {
		return nil, err
	}

	out := make(schema.Schema, arrSchema.NumFields())
	for i := 0; i < arrSchema.NumFields(); i++ {
		f := arrSchema.Field(i)
		out[i] = schema.Column{Name: f.Name, Type: format.ArrowTypeToDType(f.Type)}
	}
	return out, nil
}

type byteReaderAt struct{ data []byte }

func (b *byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b.data)) {
		return 0, errs.Io.New("readat", "offset past end of buffer")
	}
	n := copy(p, b.data[off:])
	return n, nil
}
