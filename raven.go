// Package raven embeds a capability-restricted script host. Scripts see only
// the bindings their imports resolve to and the ones the embedder registers.
//
//	host, err := raven.NewHost(raven.Options{})
//	if err != nil { ... }
//	defer host.Close()
//	res, err := host.Run(`import { KV } from "raven/kv"; await KV.put("a", "1"); return KV.get("a");`)
package raven

import (
	"github.com/cryguy/raven/internal/binding"
	"github.com/cryguy/raven/internal/bridge"
	"github.com/cryguy/raven/internal/core"
	"github.com/cryguy/raven/internal/imports"
	"github.com/cryguy/raven/internal/script"
	"github.com/cryguy/raven/internal/server"
	"go.uber.org/zap"
)

type (
	Value        = binding.Value
	Kind         = binding.Kind
	Method       = binding.Method
	Binding      = binding.Binding
	Registry     = binding.Registry
	Params       = binding.Params
	HostConfig   = core.HostConfig
	HTTPRequest  = core.HTTPRequest
	HTTPResponse = core.HTTPResponse
	LogEntry     = core.LogEntry
	Host         = script.Host
	LoadedScript = script.LoadedScript
	LoadError    = script.LoadError
	RunResult    = script.RunResult
	Wrapper      = script.Wrapper
	Catalog      = imports.Catalog
	CatalogOpts  = imports.Options
	Bridge       = bridge.Bridge
	Func         = binding.Func
	Server       = server.Server
	ServerConfig = server.Config
)

var (
	Null   = binding.Null
	Bool   = binding.Bool
	Int    = binding.Int
	Float  = binding.Float
	String = binding.String
	Bytes  = binding.Bytes
	JSON   = binding.JSON
	Array  = binding.Array
	Object = binding.Object
	Error  = binding.Error
	Errorf = binding.Errorf
	Sync   = binding.Sync
	Async  = binding.Async

	Operator = script.Operator
	Worker   = script.Worker

	ErrNotLoaded = script.ErrNotLoaded
	ErrTimeout   = script.ErrTimeout
)

// Options configures NewHost.
type Options struct {
	Config  HostConfig
	Catalog CatalogOpts
}

// DefaultRuntime creates a runtime on the engine compiled into this build.
func DefaultRuntime(cfg HostConfig) (core.JSRuntime, error) {
	return newRuntime(cfg)
}

// NewHost creates a Host on the default engine with the built-in catalog.
func NewHost(opts Options) (*Host, error) {
	return script.New(newRuntime, opts.Config, imports.NewCatalog(opts.Catalog))
}

// NewBridge creates a host for worker scripts and the request bridge in
// front of it. addr is used in request URLs when a request has no Host
// header.
func NewBridge(opts Options, addr string) (*Host, *Bridge, error) {
	host, err := NewHost(opts)
	if err != nil {
		return nil, nil, err
	}
	b, err := bridge.New(host, addr)
	if err != nil {
		host.Close()
		return nil, nil, err
	}
	return host, b, nil
}

// NewServer creates the connection loop for cfg in front of b.
func NewServer(cfg ServerConfig, b *Bridge) *Server {
	return server.New(cfg, b)
}

// SetLogger installs the logger used by the host and its bindings.
func SetLogger(l *zap.Logger) { core.SetLogger(l) }
