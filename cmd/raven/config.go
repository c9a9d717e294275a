package main

import (
	"github.com/cryguy/raven"
	"github.com/cryguy/raven/internal/imports"
	"github.com/cryguy/raven/internal/server"
	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	d := server.DefaultConfig()
	v.SetDefault("server.host", d.Host)
	v.SetDefault("server.port", d.Port)
	v.SetDefault("server.script", d.ScriptPath)
	v.SetDefault("server.read_timeout", d.ReadTimeout)
	v.SetDefault("server.write_timeout", d.WriteTimeout)
	v.SetDefault("server.max_header_bytes", d.MaxHeaderBytes)
	v.SetDefault("server.max_body_bytes", d.MaxBodyBytes)

	v.SetDefault("engine.memory_limit_mb", 0)
	v.SetDefault("engine.execution_timeout", 0)
	v.SetDefault("engine.await_timeout", raven.HostConfig{}.WithDefaults().AwaitTimeout)
	v.SetDefault("engine.max_log_entries", raven.HostConfig{}.WithDefaults().MaxLogEntries)

	v.SetDefault("kv.backend", imports.BackendMemory)
	v.SetDefault("kv.path", ":memory:")
	v.SetDefault("db.path", ":memory:")
}

func hostOptions(v *viper.Viper) raven.Options {
	return raven.Options{
		Config: raven.HostConfig{
			MemoryLimitMB:    v.GetInt("engine.memory_limit_mb"),
			ExecutionTimeout: v.GetDuration("engine.execution_timeout"),
			AwaitTimeout:     v.GetDuration("engine.await_timeout"),
			MaxLogEntries:    v.GetInt("engine.max_log_entries"),
		},
		Catalog: raven.CatalogOpts{
			KVBackend: v.GetString("kv.backend"),
			KVPath:    v.GetString("kv.path"),
			DBPath:    v.GetString("db.path"),
			Vars:      v.GetStringMapString("vars"),
		},
	}
}

func serverConfig(v *viper.Viper) server.Config {
	return server.Config{
		Host:           v.GetString("server.host"),
		Port:           v.GetInt("server.port"),
		ScriptPath:     v.GetString("server.script"),
		ReadTimeout:    v.GetDuration("server.read_timeout"),
		WriteTimeout:   v.GetDuration("server.write_timeout"),
		MaxHeaderBytes: v.GetInt("server.max_header_bytes"),
		MaxBodyBytes:   v.GetInt64("server.max_body_bytes"),
	}.WithDefaults()
}
