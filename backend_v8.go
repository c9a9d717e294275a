//go:build v8

package raven

import (
	"github.com/cryguy/raven/internal/core"
	"github.com/cryguy/raven/internal/v8engine"
)

// Engine names the guest engine compiled into this build.
const Engine = "v8"

func newRuntime(cfg core.HostConfig) (core.JSRuntime, error) {
	return v8engine.New(cfg)
}
