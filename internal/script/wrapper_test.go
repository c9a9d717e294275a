package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorWrap(t *testing.T) {
	out, err := Operator.Wrap("return 1;")
	require.NoError(t, err)
	assert.Equal(t, "(async function() {\nreturn 1;\n})();", out)
	assert.False(t, Operator.Module)
}

func TestWorkerWrap_CapturesDefaultExport(t *testing.T) {
	out, err := Worker.Wrap("export default { fetch() { return 1; } };")
	require.NoError(t, err)
	assert.Contains(t, out, moduleGlobal)
	assert.Contains(t, out, ".default")
	assert.NotContains(t, out, "export default")
	assert.True(t, Worker.Module)
}

func TestWorkerWrap_SyntaxError(t *testing.T) {
	_, err := Worker.Wrap("export default { fetch( }")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing worker module")
	assert.Contains(t, err.Error(), "1:")
}

func TestLoadError(t *testing.T) {
	err := &LoadError{Stage: StageResolve, Err: ErrNotLoaded}
	assert.Equal(t, "script load failed (resolve): no script loaded", err.Error())
	assert.ErrorIs(t, err, ErrNotLoaded)
}
