package format

import (
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/derekwisong/datui/internal/errs"
)

// decompressingReadCloser adapts a codec-specific io.Reader (which may
// not itself be an io.Closer) to io.ReadCloser, closing the underlying
// file once done. Mirrors the teacher's own decompressingReadCloser in
// fileloader/compression.go.
type decompressingReadCloser struct {
	r      io.Reader
	closer func() error
}

func (d *decompressingReadCloser) Read(p []byte) (int, error) { return d.r.Read(p) }
func (d *decompressingReadCloser) Close() error {
	if d.closer != nil {
		return d.closer()
	}
	return nil
}

// GetDecompressingReader opens filePath and wraps it with the decoder for
// compressionType, returning a ReadCloser that decompresses transparently.
// gzip/bzip2 use the standard library exactly as the teacher does; xz
// uses the teacher's existing ulikunitz/xz dependency; zstd uses
// klauspost/compress/zstd (seen across the example pack's manifests but
// not previously a teacher dependency, promoted here since the spec adds
// Zstd to the closed compression set).
func GetDecompressingReader(filePath string, compressionType Compression) (io.ReadCloser, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errs.Io.New("open", err.Error())
	}
	switch compressionType {
	case None:
		return f, nil
	case Gzip:
		gr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errs.Decode.New(err.Error())
		}
		return &decompressingReadCloser{r: gr, closer: func() error {
			gr.Close()
			return f.Close()
		}}, nil
	case Bzip2:
		br := bzip2.NewReader(f)
		return &decompressingReadCloser{r: br, closer: f.Close}, nil
	case Xz:
		xr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errs.Decode.New(err.Error())
		}
		return &decompressingReadCloser{r: xr, closer: f.Close}, nil
	case Zstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errs.Decode.New(err.Error())
		}
		return &decompressingReadCloser{r: zr, closer: func() error {
			zr.Close()
			return f.Close()
		}}, nil
	default:
		f.Close()
		return nil, errs.UnsupportedFormat.New("unknown compression type")
	}
}

// DecompressToBuffer reads the entire decompressed stream into memory.
// The JSON/JSONL readers load every input through it; no reader
// consults Options.DecompressInMemory.
func DecompressToBuffer(filePath string, compressionType Compression) ([]byte, error) {
	rc, err := GetDecompressingReader(filePath, compressionType)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// DecompressToTempFile spills the decompressed stream to a new file under
// dir and returns its path. No reader calls it, so setting
// decompress_in_memory=false does not route input through a temp file.
func DecompressToTempFile(filePath string, compressionType Compression, dir string) (string, error) {
	rc, err := GetDecompressingReader(filePath, compressionType)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	out, err := os.CreateTemp(dir, "datui-decompress-*")
	if err != nil {
		return "", errs.Io.New("create temp", err.Error())
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return "", errs.Decode.New(err.Error())
	}
	return out.Name(), nil
}
