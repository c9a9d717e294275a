// Package imports finds capability import declarations in script source and
// resolves them against the static module catalog.
//
// Scanning works line by line. A declaration starts at the first token of a
// line when that token is the import keyword, and runs to the first
// semicolon or the end of the line; it counts only if a bare from keyword
// appears within it. Declarations are always removed before evaluation, and
// code after a declaration's semicolon stays in place. Declarations that do
// not have the shape
//
//	import { Name [as Alias], ... } from "module/path" [;]
//
// are skipped without error.
package imports

import (
	"strings"
)

// Import is one imported name.
type Import struct {
	Name   string // exported name looked up in the module
	Local  string // global the script sees; equals Name unless aliased
	Module string
	Line   int // 1-based source line
}

// Scan returns every import found in source, in order of appearance.
func Scan(source string) []Import {
	imports, _ := ScanAndStrip(source)
	return imports
}

// Strip removes import declaration lines from source. All other lines are
// kept byte for byte, in order.
func Strip(source string) string {
	_, cleaned := ScanAndStrip(source)
	return cleaned
}

// ScanAndStrip does Scan and Strip in one pass. Several declarations may
// share a line; whatever follows the last one is kept as its own line.
func ScanAndStrip(source string) ([]Import, string) {
	lines := strings.Split(source, "\n")
	kept := make([]string, 0, len(lines))
	var found []Import
	for i, line := range lines {
		rest := line
		stripped := false
		for {
			decl, end, ok := nextDeclaration(rest)
			if !ok {
				break
			}
			found = append(found, parseDeclaration(decl, i+1)...)
			rest = rest[end:]
			stripped = true
		}
		switch {
		case !stripped:
			kept = append(kept, line)
		case strings.TrimSpace(rest) != "":
			kept = append(kept, rest)
		}
	}
	return found, strings.Join(kept, "\n")
}

// nextDeclaration reports whether line starts with a declaration. It
// returns the declaration's tokens and the offset just past it.
func nextDeclaration(line string) ([]token, int, bool) {
	toks := tokenize(line)
	if len(toks) == 0 || toks[0].kind != tokIdent || toks[0].text != "import" {
		return nil, 0, false
	}
	decl := toks
	end := len(line)
	for i, t := range toks {
		if t.kind == tokPunct && t.text == ";" {
			decl = toks[:i+1]
			end = t.end
			break
		}
	}
	for _, t := range decl[1:] {
		if t.kind == tokIdent && t.text == "from" {
			return decl, end, true
		}
	}
	return nil, 0, false
}

// parseDeclaration matches the brace form. Anything else yields nothing.
func parseDeclaration(toks []token, line int) []Import {
	p := parser{toks: toks[1:]}
	if !p.punct('{') {
		return nil
	}
	type pair struct{ name, local string }
	var names []pair
	for {
		if p.punct('}') {
			break
		}
		name, ok := p.ident()
		if !ok {
			return nil
		}
		local := name
		if p.keyword("as") {
			if local, ok = p.ident(); !ok {
				return nil
			}
		}
		names = append(names, pair{name, local})
		if p.punct(',') {
			continue
		}
		if !p.punct('}') {
			return nil
		}
		break
	}
	if !p.keyword("from") {
		return nil
	}
	module, ok := p.str()
	if !ok || module == "" {
		return nil
	}
	p.punct(';')
	if !p.done() {
		return nil
	}
	out := make([]Import, 0, len(names))
	for _, n := range names {
		out = append(out, Import{Name: n.name, Local: n.local, Module: module, Line: line})
	}
	return out
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) punct(c byte) bool {
	t, ok := p.peek()
	if ok && t.kind == tokPunct && t.text[0] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) keyword(kw string) bool {
	t, ok := p.peek()
	if ok && t.kind == tokIdent && t.text == kw {
		p.pos++
		return true
	}
	return false
}

func (p *parser) ident() (string, bool) {
	t, ok := p.peek()
	if !ok || t.kind != tokIdent {
		return "", false
	}
	p.pos++
	return t.text, true
}

func (p *parser) str() (string, bool) {
	t, ok := p.peek()
	if !ok || t.kind != tokString {
		return "", false
	}
	p.pos++
	return t.text, true
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }
