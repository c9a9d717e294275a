package imports

import "strings"

type tokenKind uint8

const (
	tokIdent tokenKind = iota
	tokString
	tokPunct
	tokOther
)

type token struct {
	kind tokenKind
	text string // identifier, unquoted string body, or punctuation byte
	end  int    // offset just past the token in its line
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// tokenize splits a single source line into coarse tokens. Comments end
// the line; an unterminated string or comment swallows the remainder.
func tokenize(line string) []token {
	var toks []token
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			i++
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return toks
		case c == '/' && i+1 < len(line) && line[i+1] == '*':
			end := strings.Index(line[i+2:], "*/")
			if end < 0 {
				return toks
			}
			i += end + 4
		case c == '"' || c == '\'' || c == '`':
			body, next := readString(line, i)
			toks = append(toks, token{kind: tokString, text: body, end: next})
			i = next
		case isIdentStart(c):
			j := i + 1
			for j < len(line) && isIdentPart(line[j]) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: line[i:j], end: j})
			i = j
		case c == '{' || c == '}' || c == ',' || c == ';' || c == '*' || c == '(' || c == ')':
			toks = append(toks, token{kind: tokPunct, text: line[i : i+1], end: i + 1})
			i++
		default:
			j := i + 1
			for j < len(line) && !isIdentStart(line[j]) && !isBoundary(line[j]) {
				j++
			}
			toks = append(toks, token{kind: tokOther, text: line[i:j], end: j})
			i = j
		}
	}
	return toks
}

func isBoundary(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '"', '\'', '`', '{', '}', ',', ';', '*', '(', ')', '/':
		return true
	}
	return false
}

// readString reads a quoted literal starting at line[start]. It returns the
// body with simple escapes resolved and the index just past the closing
// quote.
func readString(line string, start int) (string, int) {
	quote := line[start]
	buf := make([]byte, 0, 16)
	i := start + 1
	for i < len(line) {
		c := line[i]
		if c == '\\' && i+1 < len(line) {
			buf = append(buf, line[i+1])
			i += 2
			continue
		}
		if c == quote {
			return string(buf), i + 1
		}
		buf = append(buf, c)
		i++
	}
	return string(buf), len(line)
}
