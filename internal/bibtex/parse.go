package bibtex

import (
	"fmt"
	"strings"

	"github.com/bibfold/bibfold/internal/record"
	"github.com/bibfold/bibfold/internal/text"
)

// ParseError describes unparseable interchange text. It is terminal;
// callers never retry a parse.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("bibtex parse error at line %d: %s", e.Line, e.Message)
}

// Parse splits text into records, one per @type{key, ...} block.
// Content between blocks is ignored. An empty input yields an empty
// slice.
//
// Field handling: one layer of brace or quote delimiting is stripped,
// whitespace runs collapse to a single space, the eprint field maps
// onto the arXiv ID, archiveprefix and primaryclass are dropped
// (archiveprefix is reconstructed on serialize whenever an arXiv ID
// is present), and unrecognized names are preserved verbatim under
// their lowercase name.
func Parse(input string) ([]*record.Record, error) {
	p := &parser{src: input, line: 1}
	var records []*record.Record
	for {
		if !p.seekEntry() {
			return records, nil
		}
		r, err := p.parseEntry()
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
}

// parser is a single-pass scanner over interchange text. Structure
// characters are ASCII, so byte indexing is safe for UTF-8 input.
type parser struct {
	src  string
	pos  int
	line int
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Line: p.line, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) advance() byte {
	c := p.src[p.pos]
	if c == '\n' {
		p.line++
	}
	p.pos++
	return c
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.advance()
		default:
			return
		}
	}
}

// seekEntry advances to the next '@', returning false at end of input.
func (p *parser) seekEntry() bool {
	for p.pos < len(p.src) {
		if p.src[p.pos] == '@' {
			return true
		}
		p.advance()
	}
	return false
}

// parseEntry consumes one @type{key, field = value, ...} block.
func (p *parser) parseEntry() (*record.Record, error) {
	p.advance() // consume '@'

	typeName := p.readWord()
	if typeName == "" {
		return nil, p.errorf("missing entry type after @")
	}
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '{' {
		return nil, p.errorf("expected { after @%s", typeName)
	}
	p.advance()

	p.skipSpace()
	key := p.readUntil(',')
	if key == "" {
		return nil, p.errorf("missing citation key in @%s block", typeName)
	}
	if p.pos >= len(p.src) {
		return nil, p.errorf("unterminated @%s{%s block", typeName, key)
	}
	p.advance() // consume ','

	r := &record.Record{
		CitationKey: key,
		Type:        record.ParseEntryType(typeName),
	}

	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errorf("unterminated @%s{%s block", typeName, key)
		}
		if p.src[p.pos] == '}' {
			p.advance()
			return r, nil
		}
		if p.src[p.pos] == ',' {
			p.advance()
			continue
		}

		name := strings.ToLower(p.readWord())
		if name == "" {
			return nil, p.errorf("expected field name in @%s{%s", typeName, key)
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != '=' {
			return nil, p.errorf("expected = after field %q", name)
		}
		p.advance()
		p.skipSpace()

		value, err := p.readValue(name)
		if err != nil {
			return nil, err
		}
		setField(r, name, text.CollapseWhitespace(value))
	}
}

// readWord consumes a run of letters, digits, and field-name
// punctuation.
func (p *parser) readWord() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-' {
			p.advance()
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

// readUntil consumes up to (not including) the stop byte, trimming
// surrounding whitespace.
func (p *parser) readUntil(stop byte) string {
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != stop {
		p.advance()
	}
	return strings.TrimSpace(p.src[start:p.pos])
}

// readValue consumes one field value: a braced group with nesting, a
// quoted string, or a bare token ending at ',' or '}'.
func (p *parser) readValue(field string) (string, error) {
	if p.pos >= len(p.src) {
		return "", p.errorf("missing value for field %q", field)
	}
	switch p.src[p.pos] {
	case '{':
		p.advance()
		start := p.pos
		depth := 1
		for p.pos < len(p.src) {
			switch p.src[p.pos] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					value := p.src[start:p.pos]
					p.advance()
					return value, nil
				}
			}
			p.advance()
		}
		return "", p.errorf("unterminated braced value for field %q", field)
	case '"':
		p.advance()
		start := p.pos
		for p.pos < len(p.src) {
			if p.src[p.pos] == '"' {
				value := p.src[start:p.pos]
				p.advance()
				return value, nil
			}
			p.advance()
		}
		return "", p.errorf("unterminated quoted value for field %q", field)
	default:
		start := p.pos
		for p.pos < len(p.src) {
			c := p.src[p.pos]
			if c == ',' || c == '}' {
				break
			}
			p.advance()
		}
		value := strings.TrimSpace(p.src[start:p.pos])
		if value == "" {
			return "", p.errorf("missing value for field %q", field)
		}
		return value, nil
	}
}

// setField routes a parsed field into the record. The archiveprefix
// and primaryclass markers only restate that eprint holds an arXiv
// ID, so they are dropped rather than stored.
func setField(r *record.Record, name, value string) {
	switch name {
	case "archiveprefix", "primaryclass":
		return
	}
	if !r.SetField(name, value) {
		r.Extra.Set(name, value)
	}
}
