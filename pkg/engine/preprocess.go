package engine

import "strings"

// kwPrefix marks a string literal produced from a :keyword.
const kwPrefix = "__kw_"

// preprocessSource rewrites document source into something zygomys reads:
//
//   - ;-comments become //-comments.
//   - :keyword becomes the string "__kw_keyword", so keywords never
//     collide with user variables. := is left alone.
//   - lower-divertor becomes lower_divertor, since zygomys reads a hyphen
//     as subtraction.
//
// String literals pass through untouched.
func preprocessSource(source string) string {
	p := preprocessor{src: source}
	p.out.Grow(len(source) + len(source)/4)
	for p.pos < len(p.src) {
		switch c := p.src[p.pos]; {
		case c == '"':
			p.literal('"', true)
		case c == '`':
			p.literal('`', false)
		case c == ';':
			p.comment()
		case c == ':' && p.peek(1) == '=':
			p.copy(2)
		case c == ':' && isLetter(p.peek(1)):
			p.keyword()
		case c == '-' && p.joinsWords():
			p.out.WriteByte('_')
			p.pos++
		default:
			p.copy(1)
		}
	}
	return p.out.String()
}

type preprocessor struct {
	src string
	pos int
	out strings.Builder
}

// peek returns the byte n positions ahead, or 0 past the end.
func (p *preprocessor) peek(n int) byte {
	if p.pos+n < len(p.src) {
		return p.src[p.pos+n]
	}
	return 0
}

func (p *preprocessor) copy(n int) {
	end := min(p.pos+n, len(p.src))
	p.out.WriteString(p.src[p.pos:end])
	p.pos = end
}

// literal copies a quoted literal including both delimiters. An
// unterminated literal runs to the end of the source.
func (p *preprocessor) literal(quote byte, escapes bool) {
	start := p.pos
	p.pos++
	for p.pos < len(p.src) && p.src[p.pos] != quote {
		if escapes && p.src[p.pos] == '\\' {
			p.pos++
		}
		p.pos++
	}
	p.pos = min(p.pos+1, len(p.src))
	p.out.WriteString(p.src[start:p.pos])
}

// comment turns a run of semicolons into // and copies the rest of the line.
func (p *preprocessor) comment() {
	for p.pos < len(p.src) && p.src[p.pos] == ';' {
		p.pos++
	}
	p.out.WriteString("//")
	end := strings.IndexByte(p.src[p.pos:], '\n')
	if end < 0 {
		end = len(p.src) - p.pos
	}
	p.copy(end)
}

func (p *preprocessor) keyword() {
	end := p.pos + 1
	for end < len(p.src) && isKeywordByte(p.src[end]) {
		end++
	}
	p.out.WriteString(`"` + kwPrefix + p.src[p.pos+1:end] + `"`)
	p.pos = end
}

// joinsWords reports whether the hyphen at pos sits inside an identifier
// rather than acting as a minus sign or a negative literal.
func (p *preprocessor) joinsWords() bool {
	if p.pos == 0 {
		return false
	}
	prev := p.src[p.pos-1]
	return (isLetter(prev) || isDigit(prev) || prev == '_') && isLetter(p.peek(1))
}

func isLetter(c byte) bool { return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' }

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isKeywordByte(c byte) bool { return isLetter(c) || isDigit(c) || c == '-' || c == '_' }
