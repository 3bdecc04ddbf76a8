package pdfdoc

import (
	"bytes"
	"fmt"
	"strconv"
)

type operandKind int

const (
	kindNumber operandKind = iota
	kindString
	kindName
	kindArray
	kindDict
	kindBool
	kindNull
)

// operand is one parsed operand of a content stream operation
type operand struct {
	kind  operandKind
	num   float64
	str   []byte    // decoded string bytes or name without slash
	items []operand // array elements, or dict keys and values interleaved
}

// operation is an operator with its operands. start and end delimit the raw
// bytes of the whole operation, operands included, in the source stream.
type operation struct {
	op         string
	operands   []operand
	start, end int
}

func (o operation) numbers() ([]float64, bool) {
	out := make([]float64, len(o.operands))
	for i, a := range o.operands {
		if a.kind != kindNumber {
			return nil, false
		}
		out[i] = a.num
	}
	return out, true
}

func (o operation) lastName() (string, bool) {
	if len(o.operands) == 0 {
		return "", false
	}
	a := o.operands[len(o.operands)-1]
	if a.kind != kindName {
		return "", false
	}
	return string(a.str), true
}

// contentParser splits a content stream into operations
type contentParser struct {
	data []byte
	pos  int
}

func parseContent(data []byte) ([]operation, error) {
	p := &contentParser{data: data}
	var ops []operation
	var operands []operand
	opStart := -1

	for {
		p.skipSpaceAndComments()
		if p.pos >= len(p.data) {
			break
		}
		if opStart < 0 {
			opStart = p.pos
		}

		c := p.data[p.pos]
		if isRegular(c) && !isNumberStart(c) {
			word := p.readWord()
			switch word {
			case "true", "false":
				operands = append(operands, operand{kind: kindBool, str: []byte(word)})
				continue
			case "null":
				operands = append(operands, operand{kind: kindNull})
				continue
			case "BI":
				if err := p.skipInlineImage(); err != nil {
					return nil, err
				}
			}
			ops = append(ops, operation{op: word, operands: operands, start: opStart, end: p.pos})
			operands = nil
			opStart = -1
			continue
		}

		a, err := p.readOperand()
		if err != nil {
			return nil, fmt.Errorf("content stream offset %d: %w", p.pos, err)
		}
		operands = append(operands, a)
	}
	return ops, nil
}

func isSpace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(c byte) bool {
	return !isSpace(c) && !isDelimiter(c)
}

func isNumberStart(c byte) bool {
	return c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9')
}

func (p *contentParser) skipSpaceAndComments() {
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		if isSpace(c) {
			p.pos++
			continue
		}
		if c == '%' {
			for p.pos < len(p.data) && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
				p.pos++
			}
			continue
		}
		return
	}
}

func (p *contentParser) readWord() string {
	start := p.pos
	for p.pos < len(p.data) && isRegular(p.data[p.pos]) {
		p.pos++
	}
	return string(p.data[start:p.pos])
}

func (p *contentParser) readOperand() (operand, error) {
	c := p.data[p.pos]
	switch {
	case isNumberStart(c):
		word := p.readWord()
		v, err := strconv.ParseFloat(word, 64)
		if err != nil {
			return operand{}, fmt.Errorf("invalid number %q", word)
		}
		return operand{kind: kindNumber, num: v}, nil
	case c == '/':
		p.pos++
		return operand{kind: kindName, str: decodeName(p.readWord())}, nil
	case c == '(':
		s, err := p.readLiteral()
		return operand{kind: kindString, str: s}, err
	case c == '<' && p.peek(1) == '<':
		p.pos += 2
		items, err := p.readUntil(">>")
		return operand{kind: kindDict, items: items}, err
	case c == '<':
		s, err := p.readHex()
		return operand{kind: kindString, str: s}, err
	case c == '[':
		p.pos++
		items, err := p.readUntil("]")
		return operand{kind: kindArray, items: items}, err
	}
	return operand{}, fmt.Errorf("unexpected %q", c)
}

func (p *contentParser) peek(n int) byte {
	if p.pos+n < len(p.data) {
		return p.data[p.pos+n]
	}
	return 0
}

// readUntil reads operands up to the closing token, used for arrays and
// dictionaries. Bare words inside are kept as names.
func (p *contentParser) readUntil(closing string) ([]operand, error) {
	var items []operand
	for {
		p.skipSpaceAndComments()
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("unterminated %q", closing)
		}
		if bytes.HasPrefix(p.data[p.pos:], []byte(closing)) {
			p.pos += len(closing)
			return items, nil
		}
		c := p.data[p.pos]
		if isRegular(c) && !isNumberStart(c) {
			word := p.readWord()
			items = append(items, operand{kind: kindName, str: []byte(word)})
			continue
		}
		if c == ')' || c == '>' || c == ']' || c == '}' || c == '{' {
			return nil, fmt.Errorf("unbalanced %q", c)
		}
		a, err := p.readOperand()
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
}

func (p *contentParser) readLiteral() ([]byte, error) {
	p.pos++ // (
	var out []byte
	depth := 1
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		p.pos++
		switch c {
		case '\\':
			if p.pos >= len(p.data) {
				return nil, fmt.Errorf("unterminated string")
			}
			e := p.data[p.pos]
			p.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if p.pos < len(p.data) && p.data[p.pos] == '\n' {
					p.pos++
				}
			case '\n':
			case '0', '1', '2', '3', '4', '5', '6', '7':
				v := int(e - '0')
				for i := 0; i < 2 && p.pos < len(p.data); i++ {
					d := p.data[p.pos]
					if d < '0' || d > '7' {
						break
					}
					v = v*8 + int(d-'0')
					p.pos++
				}
				out = append(out, byte(v))
			default:
				out = append(out, e)
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out, nil
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return nil, fmt.Errorf("unterminated string")
}

func (p *contentParser) readHex() ([]byte, error) {
	p.pos++ // <
	var out []byte
	var hi byte
	half := false
	for p.pos < len(p.data) {
		c := p.data[p.pos]
		p.pos++
		if c == '>' {
			if half {
				out = append(out, hi<<4)
			}
			return out, nil
		}
		if isSpace(c) {
			continue
		}
		v, ok := hexValue(c)
		if !ok {
			return nil, fmt.Errorf("invalid hex digit %q", c)
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	return nil, fmt.Errorf("unterminated hex string")
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func decodeName(raw string) []byte {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '#' && i+2 < len(raw) {
			h, ok1 := hexValue(raw[i+1])
			l, ok2 := hexValue(raw[i+2])
			if ok1 && ok2 {
				out = append(out, h<<4|l)
				i += 2
				continue
			}
		}
		out = append(out, raw[i])
	}
	return out
}

// skipInlineImage moves past the image data of a BI operator, ending right
// after the closing EI.
func (p *contentParser) skipInlineImage() error {
	idx := bytes.Index(p.data[p.pos:], []byte("ID"))
	for idx >= 0 {
		at := p.pos + idx
		before := at == 0 || isSpace(p.data[at-1]) || isDelimiter(p.data[at-1])
		after := at+2 >= len(p.data) || isSpace(p.data[at+2])
		if before && after {
			p.pos = at + 3
			break
		}
		next := bytes.Index(p.data[at+2:], []byte("ID"))
		if next < 0 {
			idx = -1
			break
		}
		idx = at + 2 + next - p.pos
	}
	if idx < 0 {
		return fmt.Errorf("inline image without ID")
	}

	for i := p.pos; i+1 < len(p.data); i++ {
		if p.data[i] != 'E' || p.data[i+1] != 'I' {
			continue
		}
		before := i > 0 && isSpace(p.data[i-1])
		after := i+2 >= len(p.data) || isSpace(p.data[i+2])
		if before && after {
			p.pos = i + 2
			return nil
		}
	}
	return fmt.Errorf("inline image without EI")
}

// formatting helpers for content we emit

func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = trimZeros(s)
	if s == "-0" {
		return "0"
	}
	return s
}

func trimZeros(s string) string {
	if !bytes.ContainsRune([]byte(s), '.') {
		return s
	}
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	return trimDot(s)
}

func trimDot(s string) string {
	if len(s) > 0 && s[len(s)-1] == '.' {
		return s[:len(s)-1]
	}
	return s
}

func hexString(b []byte) string {
	const digits = "0123456789ABCDEF"
	out := make([]byte, 0, 2*len(b)+2)
	out = append(out, '<')
	for _, c := range b {
		out = append(out, digits[c>>4], digits[c&0x0f])
	}
	return string(append(out, '>'))
}

// literalString escapes b as a PDF literal string
func literalString(b []byte) string {
	var sb bytes.Buffer
	sb.WriteByte('(')
	for _, c := range b {
		switch c {
		case '(', ')', '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\r':
			sb.WriteString(`\r`)
		case '\n':
			sb.WriteString(`\n`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(')')
	return sb.String()
}
