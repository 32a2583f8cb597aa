package testutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// ZipFile is one member of a test PK3. Names ending in "/" are directories.
// Method defaults to zip.Deflate.
type ZipFile struct {
	Name   string
	Data   []byte
	Method uint16
}

// Zip builds a ZIP archive in memory. Members may use zstd (method 93).
func Zip(tb testing.TB, files ...ZipFile) []byte {
	tb.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())
	for _, f := range files {
		hdr := &zip.FileHeader{Name: f.Name, Method: f.Method}
		if hdr.Method == 0 && !strings.HasSuffix(f.Name, "/") {
			hdr.Method = zip.Deflate
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			tb.Fatalf("zip %s: %v", f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			tb.Fatalf("zip %s: %v", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}
