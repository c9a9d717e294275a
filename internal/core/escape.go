package core

import "encoding/json"

// JsEscape returns s as a double-quoted JavaScript string literal. JSON
// string syntax is a subset of JavaScript's, and the encoder also escapes
// U+2028 and U+2029. Invalid UTF-8 becomes U+FFFD.
func JsEscape(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
