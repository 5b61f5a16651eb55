package format

import (
	"bufio"
	"bytes"
	"os"
	"strings"
)

// extensionTypes is the closed extension -> FileType mapping, grounded on
// the teacher's fileloader.DetectFileType extension table, extended to
// the spec's 10-format set.
var extensionTypes = map[string]FileType{
	".parquet": Parquet,
	".csv":     Csv,
	".tsv":     Tsv,
	".psv":     Psv,
	".json":    Json,
	".jsonl":   Jsonl,
	".ndjson":  Jsonl,
	".arrow":   Arrow,
	".feather": Arrow,
	".avro":    Avro,
	".orc":     Orc,
	".xlsx":    Excel,
	".xls":     Excel,
}

// compressionExtensions mirrors the teacher's fileloader.compressionExtensions.
var compressionExtensions = map[string]Compression{
	".gz":   Gzip,
	".gzip": Gzip,
	".zst":  Zstd,
	".zstd": Zstd,
	".bz2":  Bzip2,
	".xz":   Xz,
}

var magicBytes = []struct {
	prefix []byte
	c      Compression
}{
	{[]byte{0x1f, 0x8b}, Gzip},
	{[]byte{0x42, 0x5a, 0x68}, Bzip2},
	{[]byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}, Xz},
	{[]byte{0x28, 0xb5, 0x2f, 0xfd}, Zstd},
}

// DetectCompressionByMagic reads the first bytes of filePath and matches
// them against the closed magic-byte table, mirroring the teacher's
// fileloader.DetectCompressionByMagic.
func DetectCompressionByMagic(filePath string) (Compression, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return None, err
	}
	defer f.Close()
	buf := make([]byte, 6)
	n, _ := f.Read(buf)
	buf = buf[:n]
	for _, m := range magicBytes {
		if bytes.HasPrefix(buf, m.prefix) {
			return m.c, nil
		}
	}
	return None, nil
}

// DetectFileTypeAndCompression generalizes the teacher's
// fileloader.DetectFileTypeAndCompression: handle double extensions like
// ".csv.gz", falling back to magic-byte sniffing for the compression
// layer before testing JSON/CSV markers for an ambiguous bare extension.
func DetectFileTypeAndCompression(filePath string, explicitFormat FileType, explicitCompression Compression) (FileType, Compression) {
	base := filePath
	comp := explicitCompression
	if comp == None {
		ext := extOf(base)
		if c, ok := compressionExtensions[ext]; ok {
			comp = c
			base = strings.TrimSuffix(base, ext)
		} else if c, err := DetectCompressionByMagic(filePath); err == nil && c != None {
			comp = c
		}
	}

	ft := explicitFormat
	if ft == Unknown {
		ext := extOf(base)
		if t, ok := extensionTypes[ext]; ok {
			ft = t
		} else {
			ft = sniffTextFormat(filePath)
		}
	}
	return ft, comp
}

func extOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(path[i:])
}

// sniffTextFormat peeks the first non-whitespace bytes to distinguish
// JSON from CSV when the extension is ambiguous or absent, per spec
// §4.B detection order step 3.
func sniffTextFormat(filePath string) FileType {
	f, err := os.Open(filePath)
	if err != nil {
		return Csv
	}
	defer f.Close()
	r := bufio.NewReader(f)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return Csv
		}
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		if b == '{' || b == '[' {
			return Json
		}
		return Csv
	}
}

// IsHiveStyle reports whether any path segment looks like key=value.
func IsHiveStyle(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if strings.Contains(seg, "=") && !strings.HasPrefix(seg, "=") {
			return true
		}
	}
	return false
}
