package pdfinfo

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

type testImage struct {
	name          string
	width, height int
}

// buildTestPDF assembles a minimal PDF whose page i paints images[i]. The
// MediaBox and a shared resource dictionary live on the page tree root so
// that inheritance is exercised. When compress is set, content streams are
// Flate-encoded.
func buildTestPDF(t *testing.T, images []testImage, compress bool) []byte {
	t.Helper()
	var buf bytes.Buffer
	offsets := map[int]int{}
	obj := func(id int, body string) {
		offsets[id] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", id, body)
	}
	stream := func(id int, dict string, data []byte) {
		offsets[id] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n<< %s /Length %d >>\nstream\n", id, dict, len(data))
		buf.Write(data)
		buf.WriteString("\nendstream\nendobj\n")
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	n := len(images)
	// 1 catalog, 2 pages, 3 resources, 4 info, then per page: page, content, image.
	pageID := func(i int) int { return 5 + 3*i }

	obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	kids := ""
	for i := range images {
		kids += fmt.Sprintf(" %d 0 R", pageID(i))
	}
	obj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s ] /Count %d /MediaBox [0 0 595.28 841.89] /Resources 3 0 R >>", kids, n))
	xobj := ""
	for i, im := range images {
		xobj += fmt.Sprintf(" /%s %d 0 R", im.name, pageID(i)+2)
	}
	obj(3, "<< /ProcSet [/PDF /ImageC] /XObject <<"+xobj+" >> >>")
	// "Résumé" as UTF-16BE with BOM.
	obj(4, "<< /Title <FEFF005200E900730075006D00E9> /Creator (resume\\(pdf\\)) /Producer (test) >>")

	for i, im := range images {
		obj(pageID(i), fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Contents %d 0 R >>", pageID(i)+1))
		content := []byte(fmt.Sprintf("q 595.28 0 0 841.89 0 0 cm /%s Do Q", im.name))
		if compress {
			var z bytes.Buffer
			zw := zlib.NewWriter(&z)
			zw.Write(content)
			zw.Close()
			stream(pageID(i)+1, "/Filter /FlateDecode", z.Bytes())
		} else {
			stream(pageID(i)+1, "", content)
		}
		stream(pageID(i)+2, fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode", im.width, im.height), []byte{0xff, 0xd8, 0xff, 0xd9})
	}

	size := pageID(n)
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", size)
	for id := 1; id < size; id++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[id])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 4 0 R >>\nstartxref\n%d\n%%%%EOF\n", size, xref)
	return buf.Bytes()
}

func TestLoad_NotPDF(t *testing.T) {
	if _, err := Load([]byte("hello")); !errors.Is(err, ErrNotPDF) {
		t.Fatalf("Load error = %v, want ErrNotPDF", err)
	}
}

func TestLoad_MissingStartXRef(t *testing.T) {
	if _, err := Load([]byte("%PDF-1.4\n1 0 obj << >> endobj\n")); err == nil {
		t.Fatal("expected error without startxref")
	}
}

func TestInspect_PagesInOrder(t *testing.T) {
	for _, compress := range []bool{false, true} {
		t.Run(fmt.Sprintf("compress=%v", compress), func(t *testing.T) {
			data := buildTestPDF(t, []testImage{
				{"I1", 1588, 2246},
				{"I2", 1588, 2246},
				{"I3", 1588, 554},
			}, compress)

			s, err := Inspect(data)
			if err != nil {
				t.Fatalf("Inspect: %v", err)
			}
			if s.Version != "1.4" {
				t.Errorf("Version = %q, want 1.4", s.Version)
			}
			if len(s.Pages) != 3 {
				t.Fatalf("got %d pages, want 3", len(s.Pages))
			}
			wantHeights := []int{2246, 2246, 554}
			for i, p := range s.Pages {
				if p.Number != i+1 {
					t.Errorf("page %d numbered %d", i, p.Number)
				}
				if p.Width < 595 || p.Width > 596 || p.Height < 841 || p.Height > 842 {
					t.Errorf("page %d size = %vx%v, want inherited A4 box", i+1, p.Width, p.Height)
				}
				if len(p.Images) != 1 {
					t.Fatalf("page %d has %d images, want 1", i+1, len(p.Images))
				}
				if img := p.Images[0]; img.Height != wantHeights[i] || img.Width != 1588 {
					t.Errorf("page %d image = %dx%d, want 1588x%d", i+1, img.Width, img.Height, wantHeights[i])
				}
				if p.Images[0].Filter != "DCTDecode" {
					t.Errorf("page %d filter = %q", i+1, p.Images[0].Filter)
				}
			}
		})
	}
}

func TestInspect_Info(t *testing.T) {
	s, err := Inspect(buildTestPDF(t, []testImage{{"Im0", 10, 10}}, false))
	if err != nil {
		t.Fatal(err)
	}
	if s.Title != "Résumé" {
		t.Errorf("Title = %q, want Résumé", s.Title)
	}
	if s.Creator != "resume(pdf)" {
		t.Errorf("Creator = %q, want resume(pdf)", s.Creator)
	}
	if s.Producer != "test" {
		t.Errorf("Producer = %q, want test", s.Producer)
	}
}

func TestInspect_NoPages(t *testing.T) {
	s, err := Inspect(buildTestPDF(t, nil, false))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Pages) != 0 {
		t.Errorf("got %d pages, want 0", len(s.Pages))
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, buildTestPDF(t, []testImage{{"A", 1, 2}}, true), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	pages, err := doc.Pages()
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLexer_Values(t *testing.T) {
	tests := []struct {
		in    string
		kind  Kind
		check func(*Object) bool
	}{
		{"42", Int, func(o *Object) bool { return o.Int == 42 }},
		{"-3.5", Real, func(o *Object) bool { return o.Real == -3.5 }},
		{"12 0 R", Ref, func(o *Object) bool { return o.Ref.Number == 12 }},
		{"/A#20B", Name, func(o *Object) bool { return o.Name == "A B" }},
		{"(a\\(b\\)\\101)", String, func(o *Object) bool { return string(o.Str) == "a(b)A" }},
		{"(nested (parens))", String, func(o *Object) bool { return string(o.Str) == "nested (parens)" }},
		{"<48 65 6C6C 6F>", String, func(o *Object) bool { return string(o.Str) == "Hello" }},
		{"<4>", String, func(o *Object) bool { return len(o.Str) == 1 && o.Str[0] == 0x40 }},
		{"[1 2 /X]", Array, func(o *Object) bool { return len(o.Array) == 3 }},
		{"<< /K [1 0 R] >>", Dictionary, func(o *Object) bool { return o.Dict["K"].Kind == Array }},
		{"true", Bool, func(o *Object) bool { return o.Bool }},
		{"null", Null, func(*Object) bool { return true }},
		{"Do", Operator, func(o *Object) bool { return o.Name == "Do" }},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			o, err := newLexer([]byte(tt.in), 0).next()
			if err != nil {
				t.Fatal(err)
			}
			if o.Kind != tt.kind || !tt.check(o) {
				t.Errorf("next(%q) = %+v", tt.in, o)
			}
		})
	}
}

func TestUnpredictPNG(t *testing.T) {
	// Two 3-byte rows: row 0 uses Sub, row 1 uses Up.
	data := []byte{
		1, 1, 1, 1,
		2, 1, 1, 1,
	}
	got := unpredictPNG(Dict{"Columns": {Kind: Int, Int: 3}}, data)
	want := []byte{1, 2, 3, 2, 3, 4}
	if !bytes.Equal(got, want) {
		t.Errorf("unpredictPNG = %v, want %v", got, want)
	}
}
