package format

import (
	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/errs"
)

// Open resolves path's FileType/Compression (honoring any explicit
// overrides carried on opts) and returns it wrapped as a lazily
// materializing dataset.Dataset — the single entry point spec §4.B
// describes as "format detection feeding the row-source adapters".
func Open(path string, opts Options) (dataset.Dataset, error) {
	ft, comp := DetectFileTypeAndCompression(path, opts.Format, opts.Compression)
	opts.Format = ft
	opts.Compression = comp

	src, err := openSource(path, opts)
	if err != nil {
		return dataset.Dataset{}, err
	}
	return dataset.Scan(src), nil
}

func delimiterFor(ft FileType) byte {
	switch ft {
	case Tsv:
		return '\t'
	case Psv:
		return '|'
	default:
		return ','
	}
}

func openSource(path string, opts Options) (dataset.RowSource, error) {
	switch opts.Format {
	case Csv, Tsv, Psv:
		if opts.Delimiter == 0 {
			opts.Delimiter = delimiterFor(opts.Format)
		}
		return OpenCSV(path, opts)
	case Json:
		return OpenJSON(path, opts, false)
	case Jsonl:
		return OpenJSON(path, opts, true)
	case Excel:
		return OpenExcel(path, opts)
	case Parquet:
		return OpenParquet(path)
	case Arrow:
		return OpenArrow(path)
	case Avro:
		return OpenAvro(path)
	case Orc:
		return OpenOrc(path)
	default:
		return nil, errs.UnsupportedFormat.New(path)
	}
}
