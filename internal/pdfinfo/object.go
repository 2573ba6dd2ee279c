// Package pdfinfo reads back the structure of a PDF produced by the export
// pipeline: page count, page boxes, the image XObjects painted on each page,
// and the document information dictionary.
//
// It is a small pure-Go object reader, not a general PDF library. Encrypted
// files and text extraction are out of scope.
package pdfinfo

import (
	"bytes"
	"fmt"
	"strconv"
)

// Kind identifies the type of a PDF object.
type Kind int

const (
	Null Kind = iota
	Bool
	Int
	Real
	String
	Name
	Array
	Dictionary
	Stream
	Ref
	// Operator is a bare content-stream keyword such as "cm" or "Do".
	Operator
)

// Object holds any PDF value.
type Object struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Real  float64
	Str   []byte
	Name  string // name, or operator keyword
	Array []*Object
	Dict  Dict
	Data  []byte // raw (still encoded) stream bytes
	Ref   Reference
}

// Number returns the numeric value of an Int or Real object.
func (o *Object) Number() (float64, bool) {
	if o == nil {
		return 0, false
	}
	switch o.Kind {
	case Int:
		return float64(o.Int), true
	case Real:
		return o.Real, true
	}
	return 0, false
}

// Reference is an indirect object reference "N G R".
type Reference struct {
	Number int
	Gen    int
}

// Dict is a PDF dictionary keyed by name without the leading slash.
type Dict map[string]*Object

// Int returns the integer value stored under key.
func (d Dict) Int(key string) (int64, bool) {
	o, ok := d[key]
	if !ok {
		return 0, false
	}
	switch o.Kind {
	case Int:
		return o.Int, true
	case Real:
		return int64(o.Real), true
	}
	return 0, false
}

// Name returns the name (or string) value stored under key.
func (d Dict) Name(key string) (string, bool) {
	o, ok := d[key]
	if !ok {
		return "", false
	}
	switch o.Kind {
	case Name:
		return o.Name, true
	case String:
		return string(o.Str), true
	}
	return "", false
}

// Array returns the array stored under key. A single non-array value is
// returned as a one-element array.
func (d Dict) Array(key string) ([]*Object, bool) {
	o, ok := d[key]
	if !ok {
		return nil, false
	}
	if o.Kind == Array {
		return o.Array, true
	}
	return []*Object{o}, true
}

const maxDepth = 100

// lexer is a recursive-descent reader over PDF object syntax. It is used
// both for file-level objects and for page content streams.
type lexer struct {
	data  []byte
	pos   int
	depth int
}

func newLexer(data []byte, pos int) *lexer {
	return &lexer{data: data, pos: pos}
}

func (l *lexer) eof() bool { return l.pos >= len(l.data) }

// skipSpace skips whitespace and % comments.
func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		case isSpace(c):
			l.pos++
		default:
			return
		}
	}
}

// accept advances past s if the input continues with it.
func (l *lexer) accept(s string) bool {
	if bytes.HasPrefix(l.data[l.pos:], []byte(s)) {
		l.pos += len(s)
		return true
	}
	return false
}

func isDelim(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

// word reads a run of regular characters.
func (l *lexer) word() string {
	start := l.pos
	for l.pos < len(l.data) && !isSpace(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

// next reads one object. Unknown keywords come back as Operator objects;
// at end of input next returns nil.
func (l *lexer) next() (*Object, error) {
	if l.depth > maxDepth {
		return nil, fmt.Errorf("pdfinfo: nesting deeper than %d", maxDepth)
	}
	l.depth++
	defer func() { l.depth-- }()

	l.skipSpace()
	if l.eof() {
		return nil, nil
	}
	switch c := l.data[l.pos]; {
	case c == '(':
		return l.literalString(), nil
	case c == '<' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '<':
		return l.dictOrStream()
	case c == '<':
		return l.hexString(), nil
	case c == '/':
		return l.name(), nil
	case c == '[':
		return l.array()
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return l.numberOrRef(), nil
	case isDelim(c):
		// Stray ')' '>' ']' '{' '}': skip and report as operator.
		l.pos++
		return &Object{Kind: Operator, Name: string(c)}, nil
	}
	w := l.word()
	switch w {
	case "null":
		return &Object{Kind: Null}, nil
	case "true":
		return &Object{Kind: Bool, Bool: true}, nil
	case "false":
		return &Object{Kind: Bool}, nil
	}
	return &Object{Kind: Operator, Name: w}, nil
}

func (l *lexer) literalString() *Object {
	l.pos++
	var buf bytes.Buffer
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '\\':
			if l.eof() {
				break
			}
			esc := l.data[l.pos]
			l.pos++
			switch esc {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '\r':
				l.accept("\n")
			case '\n':
			default:
				if esc < '0' || esc > '7' {
					buf.WriteByte(esc)
					continue
				}
				v := int(esc - '0')
				for i := 0; i < 2 && !l.eof(); i++ {
					d := l.data[l.pos]
					if d < '0' || d > '7' {
						break
					}
					v = v*8 + int(d-'0')
					l.pos++
				}
				buf.WriteByte(byte(v))
			}
		case '(':
			depth++
			buf.WriteByte(c)
		case ')':
			depth--
			if depth == 0 {
				return &Object{Kind: String, Str: buf.Bytes()}
			}
			buf.WriteByte(c)
		default:
			buf.WriteByte(c)
		}
	}
	return &Object{Kind: String, Str: buf.Bytes()}
}

func (l *lexer) hexString() *Object {
	l.pos++
	var digits []byte
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		if c := l.data[l.pos]; !isSpace(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.accept(">")
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		out[i] = hexNibble(digits[2*i])<<4 | hexNibble(digits[2*i+1])
	}
	return &Object{Kind: String, Str: out}
}

func hexNibble(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}

func (l *lexer) name() *Object {
	l.pos++
	raw := l.word()
	if !bytes.Contains([]byte(raw), []byte{'#'}) {
		return &Object{Kind: Name, Name: raw}
	}
	var buf bytes.Buffer
	for i := 0; i < len(raw); i++ {
		if raw[i] == '#' && i+2 < len(raw) {
			buf.WriteByte(hexNibble(raw[i+1])<<4 | hexNibble(raw[i+2]))
			i += 2
			continue
		}
		buf.WriteByte(raw[i])
	}
	return &Object{Kind: Name, Name: buf.String()}
}

func (l *lexer) array() (*Object, error) {
	l.pos++
	arr := &Object{Kind: Array}
	for {
		l.skipSpace()
		if l.eof() {
			return arr, nil
		}
		if l.data[l.pos] == ']' {
			l.pos++
			return arr, nil
		}
		o, err := l.next()
		if err != nil {
			return nil, err
		}
		if o == nil {
			return arr, nil
		}
		arr.Array = append(arr.Array, o)
	}
}

// dictOrStream reads << ... >> and the stream body that may follow it.
func (l *lexer) dictOrStream() (*Object, error) {
	l.pos += 2
	d := make(Dict)
	for {
		l.skipSpace()
		if l.eof() || l.accept(">>") {
			break
		}
		if l.data[l.pos] != '/' {
			l.pos++
			continue
		}
		key := l.name().Name
		val, err := l.next()
		if err != nil {
			return nil, err
		}
		if val == nil {
			break
		}
		d[key] = val
	}

	l.skipSpace()
	if !l.accept("stream") {
		return &Object{Kind: Dictionary, Dict: d}, nil
	}
	l.accept("\r")
	l.accept("\n")

	start := l.pos
	n := -1
	if lo, ok := d["Length"]; ok && lo.Kind == Int {
		n = int(lo.Int)
	}
	var body []byte
	if n >= 0 && start+n <= len(l.data) {
		body = l.data[start : start+n]
		l.pos = start + n
	} else {
		end := bytes.Index(l.data[start:], []byte("endstream"))
		if end < 0 {
			end = len(l.data) - start
		}
		body = l.data[start : start+end]
		l.pos = start + end
	}
	l.skipSpace()
	l.accept("endstream")
	return &Object{Kind: Stream, Dict: d, Data: body}, nil
}

// numberOrRef reads a number, or an "N G R" reference when one follows.
func (l *lexer) numberOrRef() *Object {
	tok := l.word()
	n, intErr := strconv.ParseInt(tok, 10, 64)
	if intErr == nil {
		after := l.pos
		l.skipSpace()
		if g, err := strconv.ParseInt(l.word(), 10, 64); err == nil {
			l.skipSpace()
			if l.pos < len(l.data) && l.data[l.pos] == 'R' &&
				(l.pos+1 >= len(l.data) || isSpace(l.data[l.pos+1]) || isDelim(l.data[l.pos+1])) {
				l.pos++
				return &Object{Kind: Ref, Ref: Reference{Number: int(n), Gen: int(g)}}
			}
		}
		l.pos = after
		return &Object{Kind: Int, Int: n}
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return &Object{Kind: Real, Real: f}
	}
	return &Object{Kind: Null}
}
