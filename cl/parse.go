package cl

import (
	"fmt"
	"strings"

	"github.com/govm-net/simnet/core"
)

// Parse reads a value in the form produced by PrettyPrint, e.g. u42,
// "count", (ok u2) or { action: "incremented", value: u2 }.
func Parse(src string) (Value, error) {
	p := &parser{src: src}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return v, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrSyntax, p.pos, fmt.Sprintf(format, args...))
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

func isNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_'
}

func (p *parser) name() string {
	start := p.pos
	for !p.eof() && isNameByte(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) value() (Value, error) {
	p.skipSpace()
	switch c := p.peek(); {
	case c == 'u':
		p.pos++
		start := p.pos
		for !p.eof() && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
		if start == p.pos {
			return nil, p.errorf("expected digits after u")
		}
		return ParseUInt(p.src[start:p.pos])
	case c == '"':
		return p.str()
	case c == '\'':
		return p.principal()
	case c == '(':
		return p.response()
	case c == '{':
		return p.tuple()
	case c == 't' || c == 'f':
		word := p.name()
		switch word {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return nil, p.errorf("unknown literal %q", word)
	case c == 0:
		return nil, p.errorf("unexpected end of input")
	default:
		return nil, p.errorf("unexpected %q", c)
	}
}

func (p *parser) str() (Value, error) {
	p.pos++
	var sb strings.Builder
	for {
		if p.eof() {
			return nil, p.errorf("unterminated string")
		}
		c := p.src[p.pos]
		p.pos++
		switch c {
		case '"':
			return NewStringASCII(sb.String())
		case '\\':
			if p.eof() {
				return nil, p.errorf("unterminated escape")
			}
			e := p.src[p.pos]
			p.pos++
			switch e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '"', '\\':
				sb.WriteByte(e)
			default:
				return nil, p.errorf("unknown escape \\%c", e)
			}
		default:
			sb.WriteByte(c)
		}
	}
}

func (p *parser) principal() (Value, error) {
	p.pos++
	start := p.pos
	for !p.eof() && isNameByte(p.src[p.pos]) {
		p.pos++
	}
	addr, err := core.ParsePrincipal(p.src[start:p.pos])
	if err != nil {
		return nil, err
	}
	pr := Principal{Address: addr}
	if p.peek() == '.' {
		p.pos++
		pr.Contract = p.name()
		if pr.Contract == "" {
			return nil, p.errorf("expected contract name")
		}
	}
	return pr, nil
}

func (p *parser) response() (Value, error) {
	p.pos++
	p.skipSpace()
	word := p.name()
	if word != "ok" && word != "err" {
		return nil, p.errorf("expected ok or err, got %q", word)
	}
	inner, err := p.value()
	if err != nil {
		return nil, err
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	if word == "ok" {
		return Ok(inner), nil
	}
	return Err(inner), nil
}

func (p *parser) tuple() (Value, error) {
	p.pos++
	t := Tuple{}
	p.skipSpace()
	if p.peek() == '}' {
		p.pos++
		return t, nil
	}
	for {
		p.skipSpace()
		key := p.name()
		if key == "" {
			return nil, p.errorf("expected tuple field name")
		}
		if _, dup := t[key]; dup {
			return nil, p.errorf("duplicate tuple field %q", key)
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		t[key] = v
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return t, nil
		default:
			return nil, p.errorf("expected , or }")
		}
	}
}
