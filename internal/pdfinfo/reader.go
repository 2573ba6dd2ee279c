package pdfinfo

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrNotPDF is returned by [Load] for data without a %PDF- header.
var ErrNotPDF = errors.New("pdfinfo: not a PDF file")

type xrefEntry struct {
	offset int64
	inUse  bool

	// Objects stored in an object stream (PDF 1.5+).
	packed    bool
	container int
	index     int
}

// Document is a parsed PDF file.
type Document struct {
	data    []byte
	xref    map[int]xrefEntry
	trailer Dict
	cache   map[int]*Object
}

// Open reads and parses the PDF at path.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pdfinfo: %w", err)
	}
	return Load(data)
}

// Load parses a PDF held in memory.
func Load(data []byte) (*Document, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, ErrNotPDF
	}
	doc := &Document{
		data:  data,
		xref:  make(map[int]xrefEntry),
		cache: make(map[int]*Object),
	}
	off, err := doc.startXRef()
	if err != nil {
		return nil, err
	}
	if err := doc.readXRef(off, 0); err != nil {
		return nil, fmt.Errorf("pdfinfo: reading xref: %w", err)
	}
	if doc.trailer == nil {
		return nil, fmt.Errorf("pdfinfo: no trailer")
	}
	return doc, nil
}

// Version returns the header version, e.g. "1.4".
func (doc *Document) Version() string {
	line := doc.data[5:min(len(doc.data), 20)]
	if i := bytes.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(string(line))
}

func (doc *Document) startXRef() (int64, error) {
	tail := max(len(doc.data)-1024, 0)
	i := bytes.LastIndex(doc.data[tail:], []byte("startxref"))
	if i < 0 {
		return 0, fmt.Errorf("pdfinfo: startxref not found")
	}
	l := newLexer(doc.data, tail+i+len("startxref"))
	l.skipSpace()
	off, err := strconv.ParseInt(l.word(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("pdfinfo: invalid startxref: %w", err)
	}
	return off, nil
}

// readXRef loads the section at off and follows /Prev links. Entries seen
// first win, so newer revisions shadow older ones.
func (doc *Document) readXRef(off int64, depth int) error {
	if depth > 32 {
		return fmt.Errorf("too many /Prev sections")
	}
	if off < 0 || int(off) >= len(doc.data) {
		return fmt.Errorf("offset %d out of range", off)
	}
	l := newLexer(doc.data, int(off))
	l.skipSpace()

	var section Dict
	var err error
	if l.accept("xref") {
		section, err = doc.readXRefTable(l)
	} else {
		section, err = doc.readXRefStream(l)
	}
	if err != nil {
		return err
	}
	if doc.trailer == nil {
		doc.trailer = section
	}
	if prev, ok := section.Int("Prev"); ok && prev > 0 {
		return doc.readXRef(prev, depth+1)
	}
	return nil
}

func (doc *Document) readXRefTable(l *lexer) (Dict, error) {
	for {
		l.skipSpace()
		if l.eof() || l.accept("trailer") {
			break
		}
		first, err1 := strconv.Atoi(l.word())
		l.skipSpace()
		count, err2 := strconv.Atoi(l.word())
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("malformed xref subsection")
		}
		l.skipSpace()
		// Entries are fixed 20-byte records: "oooooooooo ggggg n\r\n".
		for i := 0; i < count && l.pos+20 <= len(l.data); i++ {
			rec := string(l.data[l.pos : l.pos+18])
			l.pos += 20
			id := first + i
			if _, seen := doc.xref[id]; seen {
				continue
			}
			off, _ := strconv.ParseInt(strings.TrimSpace(rec[:10]), 10, 64)
			doc.xref[id] = xrefEntry{offset: off, inUse: rec[17] == 'n'}
		}
	}
	t, err := l.next()
	if err != nil {
		return nil, err
	}
	if t == nil || t.Kind != Dictionary {
		return nil, fmt.Errorf("trailer is not a dictionary")
	}
	return t.Dict, nil
}

func (doc *Document) readXRefStream(l *lexer) (Dict, error) {
	o, err := doc.indirectAt(l)
	if err != nil {
		return nil, err
	}
	if o.Kind != Stream {
		return nil, fmt.Errorf("xref section is neither a table nor a stream")
	}
	data, err := decodeStream(o)
	if err != nil {
		return nil, err
	}
	w, _ := o.Dict.Array("W")
	if len(w) < 3 {
		return nil, fmt.Errorf("xref stream without /W")
	}
	w0, w1, w2 := int(w[0].Int), int(w[1].Int), int(w[2].Int)
	rec := w0 + w1 + w2
	if rec == 0 {
		return nil, fmt.Errorf("xref stream with empty records")
	}

	size, _ := o.Dict.Int("Size")
	index := []int{0, int(size)}
	if arr, ok := o.Dict.Array("Index"); ok {
		index = index[:0]
		for _, e := range arr {
			index = append(index, int(e.Int))
		}
	}

	pos := 0
	for s := 0; s+1 < len(index); s += 2 {
		for i := 0; i < index[s+1] && pos+rec <= len(data); i++ {
			id := index[s] + i
			typ := 1
			if w0 > 0 {
				typ = beInt(data[pos:pos+w0])
			}
			f1 := beInt(data[pos+w0 : pos+w0+w1])
			f2 := beInt(data[pos+w0+w1 : pos+rec])
			pos += rec
			if _, seen := doc.xref[id]; seen {
				continue
			}
			switch typ {
			case 0:
				doc.xref[id] = xrefEntry{}
			case 1:
				doc.xref[id] = xrefEntry{offset: int64(f1), inUse: true}
			case 2:
				doc.xref[id] = xrefEntry{packed: true, container: f1, index: f2, inUse: true}
			}
		}
	}
	return o.Dict, nil
}

func beInt(b []byte) int {
	v := 0
	for _, c := range b {
		v = v<<8 | int(c)
	}
	return v
}

// indirectAt reads "N G obj <object>" at the lexer position.
func (doc *Document) indirectAt(l *lexer) (*Object, error) {
	start := l.pos
	l.word()
	l.skipSpace()
	l.word()
	l.skipSpace()
	if !l.accept("obj") {
		return nil, fmt.Errorf("expected obj at offset %d", start)
	}
	o, err := l.next()
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("empty object at offset %d", start)
	}
	// A stream whose /Length is indirect was read up to "endstream"; re-read
	// it with the resolved length.
	if o.Kind == Stream {
		if lr, ok := o.Dict["Length"]; ok && lr.Kind == Ref {
			if n, err := doc.Resolve(lr); err == nil && n.Kind == Int {
				o.Dict["Length"] = n
				l2 := newLexer(doc.data, start)
				l2.word()
				l2.skipSpace()
				l2.word()
				l2.skipSpace()
				l2.accept("obj")
				return l2.next()
			}
		}
	}
	return o, nil
}

// Resolve follows obj if it is an indirect reference. Dangling references
// resolve to a Null object.
func (doc *Document) Resolve(obj *Object) (*Object, error) {
	if obj == nil {
		return &Object{Kind: Null}, nil
	}
	if obj.Kind != Ref {
		return obj, nil
	}
	if o, ok := doc.cache[obj.Ref.Number]; ok {
		return o, nil
	}
	e, ok := doc.xref[obj.Ref.Number]
	if !ok || !e.inUse {
		return &Object{Kind: Null}, nil
	}
	// Guard against reference cycles while resolving.
	doc.cache[obj.Ref.Number] = &Object{Kind: Null}

	var o *Object
	var err error
	if e.packed {
		o, err = doc.unpack(e)
	} else if e.offset < 0 || int(e.offset) >= len(doc.data) {
		err = fmt.Errorf("pdfinfo: object %d offset out of range", obj.Ref.Number)
	} else {
		o, err = doc.indirectAt(newLexer(doc.data, int(e.offset)))
	}
	if err != nil {
		delete(doc.cache, obj.Ref.Number)
		return nil, err
	}
	doc.cache[obj.Ref.Number] = o
	return o, nil
}

// unpack reads an object stored inside an object stream.
func (doc *Document) unpack(e xrefEntry) (*Object, error) {
	c, err := doc.Resolve(&Object{Kind: Ref, Ref: Reference{Number: e.container}})
	if err != nil {
		return nil, err
	}
	if c.Kind != Stream {
		return nil, fmt.Errorf("pdfinfo: object stream %d is not a stream", e.container)
	}
	data, err := decodeStream(c)
	if err != nil {
		return nil, err
	}
	n, _ := c.Dict.Int("N")
	first, _ := c.Dict.Int("First")
	if int64(e.index) >= n {
		return nil, fmt.Errorf("pdfinfo: index %d outside object stream %d", e.index, e.container)
	}
	l := newLexer(data, 0)
	off := 0
	for i := 0; i <= e.index; i++ {
		l.skipSpace()
		l.word()
		l.skipSpace()
		off, _ = strconv.Atoi(l.word())
	}
	l = newLexer(data, int(first)+off)
	return l.next()
}

// dict resolves obj and returns its dictionary, or nil.
func (doc *Document) dict(obj *Object) Dict {
	o, err := doc.Resolve(obj)
	if err != nil || o == nil {
		return nil
	}
	if o.Kind == Dictionary || o.Kind == Stream {
		return o.Dict
	}
	return nil
}

// Catalog returns the document catalog.
func (doc *Document) Catalog() (Dict, error) {
	root := doc.dict(doc.trailer["Root"])
	if root == nil {
		return nil, fmt.Errorf("pdfinfo: no document catalog")
	}
	return root, nil
}

// Info returns the document information dictionary, or nil if absent.
func (doc *Document) Info() Dict {
	return doc.dict(doc.trailer["Info"])
}

// Page is one leaf of the page tree with its inheritable attributes
// resolved.
type Page struct {
	Dict      Dict
	MediaBox  []float64
	Resources Dict
	Rotate    int
}

// Width returns the MediaBox width in points.
func (p Page) Width() float64 {
	if len(p.MediaBox) < 4 {
		return 0
	}
	return p.MediaBox[2] - p.MediaBox[0]
}

// Height returns the MediaBox height in points.
func (p Page) Height() float64 {
	if len(p.MediaBox) < 4 {
		return 0
	}
	return p.MediaBox[3] - p.MediaBox[1]
}

// Pages returns every page in document order.
func (doc *Document) Pages() ([]Page, error) {
	cat, err := doc.Catalog()
	if err != nil {
		return nil, err
	}
	root := doc.dict(cat["Pages"])
	if root == nil {
		return nil, fmt.Errorf("pdfinfo: catalog has no page tree")
	}
	var pages []Page
	doc.walkPages(root, Page{}, &pages, 0)
	return pages, nil
}

func (doc *Document) walkPages(node Dict, inherited Page, pages *[]Page, depth int) {
	if depth > maxDepth {
		return
	}
	if box := doc.numbers(node["MediaBox"]); len(box) >= 4 {
		inherited.MediaBox = box
	}
	if res := doc.dict(node["Resources"]); res != nil {
		inherited.Resources = res
	}
	if r, err := doc.Resolve(node["Rotate"]); err == nil && r.Kind == Int {
		inherited.Rotate = int(r.Int)
	}

	if t, _ := node.Name("Type"); t == "Page" {
		inherited.Dict = node
		*pages = append(*pages, inherited)
		return
	}
	kids, err := doc.Resolve(node["Kids"])
	if err != nil || kids.Kind != Array {
		return
	}
	for _, k := range kids.Array {
		if kd := doc.dict(k); kd != nil {
			doc.walkPages(kd, inherited, pages, depth+1)
		}
	}
}

func (doc *Document) numbers(obj *Object) []float64 {
	o, err := doc.Resolve(obj)
	if err != nil || o.Kind != Array {
		return nil
	}
	out := make([]float64, 0, len(o.Array))
	for _, e := range o.Array {
		e, _ = doc.Resolve(e)
		v, _ := e.Number()
		out = append(out, v)
	}
	return out
}

// Content returns the decoded, concatenated content streams of p.
func (doc *Document) Content(p Page) ([]byte, error) {
	c, err := doc.Resolve(p.Dict["Contents"])
	if err != nil {
		return nil, err
	}
	parts := []*Object{c}
	if c.Kind == Array {
		parts = c.Array
	}
	var out []byte
	for _, part := range parts {
		s, err := doc.Resolve(part)
		if err != nil || s.Kind != Stream {
			continue
		}
		data, err := decodeStream(s)
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
		out = append(out, '\n')
	}
	return out, nil
}
