//go:build !v8

package raven

import (
	"github.com/cryguy/raven/internal/core"
	"github.com/cryguy/raven/internal/quickjs"
)

// Engine names the guest engine compiled into this build.
const Engine = "quickjs"

func newRuntime(cfg core.HostConfig) (core.JSRuntime, error) {
	return quickjs.New(cfg)
}
