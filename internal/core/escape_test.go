package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJsEscape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", `"plain"`},
		{`say "hi"\`, `"say \"hi\"\\"`},
		{"line\nbreak\ttab", `"line\nbreak\ttab"`},
		{"\U0001F600", "\"\U0001F600\""},
		{"\u2028\u2029", `"\u2028\u2029"`},
		{"\x01", `"\u0001"`},
		{"\xff", `"\ufffd"`},
		{"</script>", `"\u003c/script\u003e"`},
	}
	for _, tt := range tests {
		got := JsEscape(tt.in)
		assert.Equal(t, tt.want, got, "%q", tt.in)
		assert.NotContains(t, got, `\U`)
		assert.NotContains(t, got, `\x`)
	}
}

func TestJsEscape_RoundTripsThroughJSON(t *testing.T) {
	for _, s := range []string{"", "héllo", "a\"b", "\U0001F600 smile", "tab\there"} {
		var back string
		require.NoError(t, json.Unmarshal([]byte(JsEscape(s)), &back))
		assert.Equal(t, s, back)
	}
}
