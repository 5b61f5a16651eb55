// Package format implements the format detector and per-format readers
// from spec §4.B: choosing a codec from extension/magic bytes/explicit
// override, decompressing, and building a base dataset.Dataset with a
// known schema.
//
// Grounded on the teacher's fileloader package (detection.go,
// compression.go, csv.go, json.go, xlsx.go, reader.go), generalized from
// its 3-format closed set (CSV/XLSX/JSON) to the spec's 10-format set.
package format

// FileType is the closed set of readable formats from spec §3.
type FileType int

const (
	Unknown FileType = iota
	Parquet
	Csv
	Tsv
	Psv
	Json
	Jsonl
	Arrow
	Avro
	Orc
	Excel
)

func (f FileType) String() string {
	switch f {
	case Parquet:
		return "parquet"
	case Csv:
		return "csv"
	case Tsv:
		return "tsv"
	case Psv:
		return "psv"
	case Json:
		return "json"
	case Jsonl:
		return "jsonl"
	case Arrow:
		return "arrow"
	case Avro:
		return "avro"
	case Orc:
		return "orc"
	case Excel:
		return "excel"
	default:
		return "unknown"
	}
}

// Compression is the closed set of supported compression codecs.
type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
	Bzip2
	Xz
)

func (c Compression) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case Bzip2:
		return "bzip2"
	case Xz:
		return "xz"
	default:
		return "none"
	}
}

// Options mirrors the CLI/reader-policy surface from spec §4.B / §6.
type Options struct {
	Delimiter          byte
	HasHeader          bool
	SkipLines          int
	SkipRows           int
	SkipTailRows       int
	NullValues         map[string][]string // "" key applies to all columns
	InferSchemaLength  int
	IgnoreErrors       bool
	ParseDates         bool
	ParseStrings       map[string]bool // wildcard "*" applies to all
	Sheet              string          // index (numeric string) or name

	Format              FileType
	Compression         Compression
	DecompressInMemory  bool
	TempDir             string
}

// DefaultOptions mirrors the teacher's DefaultFileOptions() idiom.
func DefaultOptions() Options {
	return Options{
		Delimiter:          ',',
		HasHeader:          true,
		InferSchemaLength:  1000,
		DecompressInMemory: true,
	}
}
