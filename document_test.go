package resumepdf

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
)

var samplePDF = []byte("%PDF-1.4 fake content for testing")

func newDocument() *Document {
	return &Document{data: samplePDF, pages: 2, filename: "Jane_Doe.pdf"}
}

func TestDocument_Bytes(t *testing.T) {
	d := newDocument()
	if !bytes.Equal(d.Bytes(), samplePDF) {
		t.Error("Bytes() did not return original data")
	}
}

func TestDocument_Base64(t *testing.T) {
	d := newDocument()
	got := d.Base64()
	want := base64.StdEncoding.EncodeToString(samplePDF)
	if got != want {
		t.Errorf("Base64() = %q, want %q", got, want)
	}
}

func TestDocument_Reader(t *testing.T) {
	d := newDocument()
	reader := d.Reader()
	if reader.Len() != len(samplePDF) {
		t.Errorf("Reader().Len() = %d, want %d", reader.Len(), len(samplePDF))
	}
	buf := make([]byte, len(samplePDF))
	n, err := reader.Read(buf)
	if err != nil {
		t.Fatalf("Reader().Read: %v", err)
	}
	if !bytes.Equal(buf[:n], samplePDF) {
		t.Error("Reader() produced different content")
	}
}

func TestDocument_WriteTo(t *testing.T) {
	d := newDocument()
	var buf bytes.Buffer
	n, err := d.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != int64(len(samplePDF)) {
		t.Errorf("WriteTo wrote %d bytes, want %d", n, len(samplePDF))
	}
	if !bytes.Equal(buf.Bytes(), samplePDF) {
		t.Error("WriteTo produced different content")
	}
}

func TestDocument_WriteToFile(t *testing.T) {
	d := newDocument()
	path := filepath.Join(t.TempDir(), "test.pdf")
	if err := d.WriteToFile(path, 0o644); err != nil {
		t.Fatalf("WriteToFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if !bytes.Equal(data, samplePDF) {
		t.Error("WriteToFile produced different content")
	}
}

func TestDocument_Save(t *testing.T) {
	d := newDocument()
	dir := filepath.Join(t.TempDir(), "out", "nested")
	path, err := d.Save(dir)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if want := filepath.Join(dir, "Jane_Doe.pdf"); path != want {
		t.Errorf("Save path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if !bytes.Equal(data, samplePDF) {
		t.Error("Save produced different content")
	}
}

func TestDocument_Accessors(t *testing.T) {
	d := newDocument()
	if d.Len() != len(samplePDF) {
		t.Errorf("Len() = %d, want %d", d.Len(), len(samplePDF))
	}
	if d.PageCount() != 2 {
		t.Errorf("PageCount() = %d, want 2", d.PageCount())
	}
	if d.Filename() != "Jane_Doe.pdf" {
		t.Errorf("Filename() = %q", d.Filename())
	}
}

func TestDocument_ReaderMultipleCalls(t *testing.T) {
	d := newDocument()
	r1 := d.Reader()
	r2 := d.Reader()
	if r1.Len() != r2.Len() {
		t.Error("multiple Reader() calls return different lengths")
	}
}
