package resumepdf

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Document holds an assembled PDF and provides helpers for common output
// formats such as raw bytes, base64 encoding, and streaming readers.
//
// A Document is returned by every export. Its data is never modified, so
// its methods may be called any number of times.
type Document struct {
	data     []byte
	pages    int
	filename string
}

// Bytes returns the raw PDF content.
func (d *Document) Bytes() []byte {
	return d.data
}

// Base64 returns the PDF encoded as a standard base64 string (RFC 4648).
func (d *Document) Base64() string {
	return base64.StdEncoding.EncodeToString(d.data)
}

// Reader returns a [*bytes.Reader] over the PDF content.
func (d *Document) Reader() *bytes.Reader {
	return bytes.NewReader(d.data)
}

// WriteTo writes the full PDF content to w. It implements [io.WriterTo].
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d.data)
	return int64(n), err
}

// WriteToFile writes the PDF to the file at path, creating it if needed.
func (d *Document) WriteToFile(path string, perm os.FileMode) error {
	return os.WriteFile(path, d.data, perm)
}

// Len returns the size of the PDF in bytes.
func (d *Document) Len() int {
	return len(d.data)
}

// PageCount returns the number of physical pages in the document.
func (d *Document) PageCount() int {
	return d.pages
}

// Filename returns the sanitized file name the document is saved under.
func (d *Document) Filename() string {
	return d.filename
}

// Save writes the document into dir under [Document.Filename] and returns
// the full path.
func (d *Document) Save(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("resumepdf: creating output directory: %w", err)
	}
	path := filepath.Join(dir, d.filename)
	if err := d.WriteToFile(path, 0o644); err != nil {
		return "", fmt.Errorf("resumepdf: saving document: %w", err)
	}
	return path, nil
}
