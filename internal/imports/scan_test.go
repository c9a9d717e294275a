package imports

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScan_BraceForm(t *testing.T) {
	src := `import { KV } from "raven/kv";
import { UserManager as Users, GroupManager } from 'raven/identity'
const x = 1;`

	got := Scan(src)
	assert.Equal(t, []Import{
		{Name: "KV", Local: "KV", Module: "raven/kv", Line: 1},
		{Name: "UserManager", Local: "Users", Module: "raven/identity", Line: 2},
		{Name: "GroupManager", Local: "GroupManager", Module: "raven/identity", Line: 2},
	}, got)
}

func TestScan_TrailingCommaAndComments(t *testing.T) {
	got := Scan(`  import { A, } from "m" // trailing note`)
	assert.Equal(t, []Import{{Name: "A", Local: "A", Module: "m", Line: 1}}, got)

	got = Scan(`import /* lead */ { B } from "m";`)
	assert.Equal(t, []Import{{Name: "B", Local: "B", Module: "m", Line: 1}}, got)
}

func TestScan_IgnoresOtherShapes(t *testing.T) {
	tests := []string{
		`import KV from "raven/kv"`,
		`import * as kv from "raven/kv"`,
		`import { KV } from "raven/kv" extra`,
		`import { KV } from ""`,
		`import { 1bad } from "m"`,
		`import "side-effect"`,
		`const p = import("raven/kv")`,
		`// import { KV } from "raven/kv"`,
	}
	for _, src := range tests {
		assert.Empty(t, Scan(src), src)
	}
}

func TestStrip_RemovesDeclarationLinesOnly(t *testing.T) {
	src := "import { KV } from \"raven/kv\";\nimport Default from \"x\"\nconst importer = 1;\nimport('dyn');\nreturn KV;"
	assert.Equal(t, "const importer = 1;\nimport('dyn');\nreturn KV;", Strip(src))
}

func TestStrip_PreservesBytes(t *testing.T) {
	src := "a \t\r\nimport { X } from 'm'\r\n  b  "
	assert.Equal(t, "a \t\r\n  b  ", Strip(src))
}

func TestScanAndStrip_NoImports(t *testing.T) {
	src := "return 1 + 1;"
	found, cleaned := ScanAndStrip(src)
	assert.Empty(t, found)
	assert.Equal(t, src, cleaned)
}

func TestScan_EscapedQuotes(t *testing.T) {
	got := Scan(`import { A } from "we\"ird"`)
	assert.Equal(t, []Import{{Name: "A", Local: "A", Module: `we"ird`, Line: 1}}, got)
}

func TestScanAndStrip_CodeAfterDeclaration(t *testing.T) {
	found, cleaned := ScanAndStrip(`import { KV } from "raven/kv"; await KV.put("a", "1"); return KV.get("a");`)
	assert.Equal(t, []Import{{Name: "KV", Local: "KV", Module: "raven/kv", Line: 1}}, found)
	assert.Equal(t, ` await KV.put("a", "1"); return KV.get("a");`, cleaned)

	found, cleaned = ScanAndStrip("const a = 1;\nimport { KV } from \"raven/kv\"; doWork();\nreturn a;")
	assert.Equal(t, []Import{{Name: "KV", Local: "KV", Module: "raven/kv", Line: 2}}, found)
	assert.Equal(t, "const a = 1;\n doWork();\nreturn a;", cleaned)
}

func TestScanAndStrip_SeveralDeclarationsOnOneLine(t *testing.T) {
	found, cleaned := ScanAndStrip(`import { KV } from "raven/kv"; import { UTILS } from 'raven/utils'; return 1;`)
	assert.Equal(t, []Import{
		{Name: "KV", Local: "KV", Module: "raven/kv", Line: 1},
		{Name: "UTILS", Local: "UTILS", Module: "raven/utils", Line: 1},
	}, found)
	assert.Equal(t, " return 1;", cleaned)
}

func TestScanAndStrip_SemicolonInsideString(t *testing.T) {
	found, cleaned := ScanAndStrip(`import { A } from "odd;path"; go();`)
	assert.Equal(t, []Import{{Name: "A", Local: "A", Module: "odd;path", Line: 1}}, found)
	assert.Equal(t, " go();", cleaned)
}

func TestScanAndStrip_MalformedDeclarationAfterCode(t *testing.T) {
	src := "doWork();\nimport KV from \"raven/kv\"; after();\nfinish();"
	found, cleaned := ScanAndStrip(src)
	assert.Empty(t, found)
	assert.Equal(t, "doWork();\n after();\nfinish();", cleaned)

	// An import keyword that does not start the line is not a declaration.
	src = `doWork(); import { KV } from "raven/kv";`
	found, cleaned = ScanAndStrip(src)
	assert.Empty(t, found)
	assert.Equal(t, src, cleaned)
}

func TestScanAndStrip_FromOutsideDeclaration(t *testing.T) {
	src := `import "side-effect"; from("x");`
	found, cleaned := ScanAndStrip(src)
	assert.Empty(t, found)
	assert.Equal(t, src, cleaned)
}
