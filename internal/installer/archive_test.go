package installer

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

func TestDetectFormatZip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, _ := zw.Create("plugin.toml")
	f.Write([]byte("[plugin]\n"))
	zw.Close()

	if got := DetectFormat(buf.Bytes()); got != FormatZip {
		t.Fatalf("DetectFormat = %v, want FormatZip", got)
	}
}

func TestDetectFormatTarGz(t *testing.T) {
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)
	content := []byte("[plugin]\n")
	tw.WriteHeader(&tar.Header{Name: "plugin.toml", Size: int64(len(content)), Mode: 0o644})
	tw.Write(content)
	tw.Close()
	gzw.Close()

	if got := DetectFormat(buf.Bytes()); got != FormatTarGz {
		t.Fatalf("DetectFormat = %v, want FormatTarGz", got)
	}
}

func TestDetectFormatUnknownDefaultsToTarGz(t *testing.T) {
	if got := DetectFormat([]byte("not an archive at all")); got != FormatTarGz {
		t.Fatalf("DetectFormat = %v, want FormatTarGz default", got)
	}
}

func TestExtractZipWritesFiles(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, _ := zw.Create("plugin.toml")
	f.Write([]byte("[plugin]\nname=\"x\"\n"))
	zw.Close()

	dir := t.TempDir()
	if err := extractArchive(dir, buf.Bytes()); err != nil {
		t.Fatalf("extractArchive: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "plugin.toml"))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(data) != "[plugin]\nname=\"x\"\n" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestExtractTarGzWritesFiles(t *testing.T) {
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)
	content := []byte("[plugin]\nname=\"y\"\n")
	tw.WriteHeader(&tar.Header{Name: "plugin.toml", Size: int64(len(content)), Mode: 0o644})
	tw.Write(content)
	tw.Close()
	gzw.Close()

	dir := t.TempDir()
	if err := extractArchive(dir, buf.Bytes()); err != nil {
		t.Fatalf("extractArchive: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "plugin.toml"))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(data) != string(content) {
		t.Fatalf("unexpected content: %q", data)
	}
}
