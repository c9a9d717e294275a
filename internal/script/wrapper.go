package script

import (
	"fmt"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"
)

// Wrapper is an entry-point convention: it turns a cleaned script body into
// source whose evaluation yields the script's entry handle.
type Wrapper struct {
	Name string
	Wrap func(body string) (string, error)

	// Module marks conventions whose evaluation only defines the entry
	// object, so the wrapped source may be evaluated again after the
	// runtime is rebuilt.
	Module bool
}

// Operator runs the body as an async function so top-level await is legal.
// The entry handle is the promise of the function's return value.
var Operator = Wrapper{Name: "operator", Wrap: wrapOperator}

// Worker treats the body as a module and captures its default export, the
// object carrying the fetch handler.
var Worker = Wrapper{Name: "worker", Wrap: wrapWorker, Module: true}

// moduleGlobal is the IIFE result name esbuild assigns inside the worker
// wrapper function. It never leaks to the real global scope.
const moduleGlobal = "__raven_module"

func wrapOperator(body string) (string, error) {
	return "(async function() {\n" + body + "\n})();", nil
}

func wrapWorker(body string) (string, error) {
	result := esbuild.Transform(body, esbuild.TransformOptions{
		Loader:     esbuild.LoaderJS,
		Format:     esbuild.FormatIIFE,
		GlobalName: moduleGlobal,
		Target:     esbuild.ES2020,
		Sourcefile: "worker.js",
	})
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			if e.Location != nil {
				msgs = append(msgs, fmt.Sprintf("%d:%d: %s", e.Location.Line, e.Location.Column, e.Text))
			} else {
				msgs = append(msgs, e.Text)
			}
		}
		return "", fmt.Errorf("parsing worker module: %s", strings.Join(msgs, "; "))
	}
	return "(function() {\n" + string(result.Code) +
		"\nreturn (" + moduleGlobal + " && " + moduleGlobal + ".default);\n})();", nil
}
