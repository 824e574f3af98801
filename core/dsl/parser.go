package dsl

import (
	"fmt"
	"strings"

	"github.com/quillhq/pgquery/core/pgerrors"
	"github.com/quillhq/pgquery/internal/lexer"
	"github.com/quillhq/pgquery/internal/span"
)

// ParseModule tokenises one annotated query file into a ParsedModule. The
// parser is total: any well-formed file yields a ParsedModule, and any
// ill-formed file yields exactly one *pgerrors.ParseError at the first
// offending span (§4.1).
func ParseModule(path string, src string) (*ParsedModule, error) {
	mod := &ParsedModule{Path: path}
	lines := splitLines(src)

	var cur *openQuery
	flush := func(endOffset int) error {
		if cur == nil {
			return nil
		}
		bodyStart := cur.bodyStart
		if bodyStart < 0 {
			bodyStart = endOffset
		}
		sqlText := strings.TrimRight(src[bodyStart:endOffset], "\n\r\t ")
		binds, unterminatedAt, ok := lexer.Scan(sqlText)
		if !ok {
			return &pgerrors.ParseError{
				Path:    path,
				Span:    span.Span{Path: path, Start: bodyStart + unterminatedAt, End: bodyStart + unterminatedAt + 1},
				Message: "unterminated string or comment in SQL body",
			}
		}
		rq := RawQuery{
			Annotation: cur.annotation,
			SQLText:    sqlText,
			SQLOffset:  bodyStart,
			Binds:      make([]BindParam, len(binds)),
		}
		for i, b := range binds {
			// The span covers the whole `:ident` token (colon included) so
			// diagnostics can point at the full reference; §4.2 derives the
			// local replacement offsets straight from this span.
			rq.Binds[i] = BindParam{
				Name: span.New(b.Name, span.Span{Path: path, Start: bodyStart + b.Start, End: bodyStart + b.End}),
			}
		}
		mod.Queries = append(mod.Queries, rq)
		cur = nil
		return nil
	}

	for _, ln := range lines {
		trimmed := strings.TrimLeft(ln.Text, " \t")
		lead := len(ln.Text) - len(trimmed)
		switch {
		case strings.HasPrefix(trimmed, "--:"):
			if err := flush(ln.Start); err != nil {
				return nil, err
			}
			decl, err := parseTypeDecl(path, ln.Start+lead, trimmed)
			if err != nil {
				return nil, err
			}
			switch decl.Kind {
			case Param:
				mod.ParamDecls = append(mod.ParamDecls, *decl)
			case Row:
				mod.RowDecls = append(mod.RowDecls, *decl)
			case Db:
				mod.DbDecls = append(mod.DbDecls, *decl)
			}
		case strings.HasPrefix(trimmed, "--!"):
			if err := flush(ln.Start); err != nil {
				return nil, err
			}
			ann, err := parseQueryHeader(path, ln.Start+lead, trimmed)
			if err != nil {
				return nil, err
			}
			cur = &openQuery{annotation: *ann, bodyStart: -1}
		default:
			if cur != nil {
				if cur.bodyStart < 0 {
					cur.bodyStart = ln.Start
				}
			}
		}
	}
	if err := flush(len(src)); err != nil {
		return nil, err
	}
	return mod, nil
}

type openQuery struct {
	annotation QueryAnnotation
	bodyStart  int
}

type lineInfo struct {
	Start int
	Text  string
}

// splitLines breaks src into lines while recording each line's absolute
// byte offset, so every later span computation is anchored to the
// original file bytes rather than a reconstructed join.
func splitLines(src string) []lineInfo {
	var lines []lineInfo
	start := 0
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			lines = append(lines, lineInfo{Start: start, Text: strings.TrimSuffix(src[start:i], "\r")})
			start = i + 1
		}
	}
	if start < len(src) {
		lines = append(lines, lineInfo{Start: start, Text: src[start:]})
	}
	return lines
}

// cursor walks one annotation line, tracking both a local byte index and
// the line's absolute file offset so identifiers can be spanned correctly.
type cursor struct {
	path   string
	base   int
	text   string
	pos    int
}

func (c *cursor) abs(local int) int { return c.base + local }

func (c *cursor) eof() bool { return c.pos >= len(c.text) }

func (c *cursor) peek() byte {
	if c.eof() {
		return 0
	}
	return c.text[c.pos]
}

func (c *cursor) skipSpaces() {
	for !c.eof() && (c.text[c.pos] == ' ' || c.text[c.pos] == '\t') {
		c.pos++
	}
}

func (c *cursor) errf(format string, args ...any) error {
	return &pgerrors.ParseError{
		Path:    c.path,
		Span:    span.Span{Path: c.path, Start: c.abs(c.pos), End: c.abs(c.pos) + 1},
		Message: fmt.Sprintf(format, args...),
	}
}

func (c *cursor) parseIdent() (span.Spanned[string], error) {
	if c.eof() || !lexer.IsIdentStart(c.text[c.pos]) {
		return span.Spanned[string]{}, c.errf("expected identifier")
	}
	start := c.pos
	c.pos++
	for !c.eof() && lexer.IsIdentCont(c.text[c.pos]) {
		c.pos++
	}
	name := c.text[start:c.pos]
	return span.New(name, span.Span{Path: c.path, Start: c.abs(start), End: c.abs(c.pos)}), nil
}

// parseFieldList parses "(field[?], field[?], ...)", rejecting a field
// name that repeats within the same struct.
func (c *cursor) parseFieldList() ([]Field, error) {
	if c.peek() != '(' {
		return nil, c.errf("expected '('")
	}
	c.pos++
	var fields []Field
	seen := map[string]bool{}
	c.skipSpaces()
	if c.peek() == ')' {
		c.pos++
		return fields, nil
	}
	for {
		c.skipSpaces()
		name, err := c.parseIdent()
		if err != nil {
			return nil, err
		}
		if seen[name.Value] {
			return nil, &pgerrors.ParseError{
				Path:    c.path,
				Span:    name.Span,
				Message: fmt.Sprintf("duplicate field %q in struct", name.Value),
			}
		}
		seen[name.Value] = true
		nullable := false
		if c.peek() == '?' {
			nullable = true
			c.pos++
		}
		fields = append(fields, Field{Name: name, Nullable: nullable})
		c.skipSpaces()
		switch c.peek() {
		case ',':
			c.pos++
			continue
		case ')':
			c.pos++
			return fields, nil
		default:
			return nil, c.errf("expected ',' or ')' in field list")
		}
	}
}

var kindWords = map[string]TypeAnnotationKind{
	"ROW": Row, "Row": Row, "row": Row,
	"PARAM": Param, "Param": Param, "param": Param,
	"DB": Db, "Db": Db, "db": Db,
}

// parseTypeDecl parses a full `--: KIND Ident(fields)` line. lineOffset is
// the absolute file offset of trimmed[0].
func parseTypeDecl(path string, lineOffset int, trimmed string) (*NamedStructDecl, error) {
	c := &cursor{path: path, base: lineOffset, text: trimmed}
	c.pos = len("--:")
	c.skipSpaces()

	wordStart := c.pos
	for !c.eof() && c.text[c.pos] != ' ' && c.text[c.pos] != '\t' && c.text[c.pos] != '(' {
		c.pos++
	}
	word := c.text[wordStart:c.pos]
	kind, ok := kindWords[word]
	if !ok {
		return nil, &pgerrors.ParseError{
			Path:    path,
			Span:    span.Span{Path: path, Start: c.abs(wordStart), End: c.abs(c.pos)},
			Message: fmt.Sprintf("unknown type annotation kind %q", word),
		}
	}
	c.skipSpaces()

	name, err := c.parseIdent()
	if err != nil {
		return nil, err
	}
	fields, err := c.parseFieldList()
	if err != nil {
		return nil, err
	}
	c.skipSpaces()
	if !c.eof() {
		return nil, c.errf("unexpected trailing content after type declaration")
	}
	return &NamedStructDecl{Kind: kind, Name: name, Fields: fields}, nil
}

// parseShape parses one param/row shape production: either a parenthesised
// field list (Implicit) or a bare identifier referencing a named struct
// (Named).
func parseShape(c *cursor) (Shape, error) {
	if c.peek() == '(' {
		fields, err := c.parseFieldList()
		if err != nil {
			return Shape{}, err
		}
		return Shape{Kind: ShapeImplicit, Fields: fields}, nil
	}
	ref, err := c.parseIdent()
	if err != nil {
		return Shape{}, err
	}
	return Shape{Kind: ShapeNamed, Ref: ref}, nil
}

// parseQueryHeader parses a full `--! name [shape] [: shape]` line.
func parseQueryHeader(path string, lineOffset int, trimmed string) (*QueryAnnotation, error) {
	c := &cursor{path: path, base: lineOffset, text: trimmed}
	c.pos = len("--!")
	c.skipSpaces()

	name, err := c.parseIdent()
	if err != nil {
		return nil, err
	}
	ann := &QueryAnnotation{Name: name}

	c.skipSpaces()
	if c.peek() == '(' || lexer.IsIdentStart(c.peek()) {
		shape, err := parseShape(c)
		if err != nil {
			return nil, err
		}
		ann.Param = shape
	}

	c.skipSpaces()
	if c.peek() == ':' {
		c.pos++
		c.skipSpaces()
		shape, err := parseShape(c)
		if err != nil {
			return nil, err
		}
		ann.Row = shape
	}

	c.skipSpaces()
	if !c.eof() {
		return nil, c.errf("unexpected trailing content after query header")
	}
	return ann, nil
}
