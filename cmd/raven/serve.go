package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cryguy/raven"
	"github.com/cryguy/raven/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve [script.js]",
	Short: "Serve a worker script over HTTP",
	Long: `Serve loads a worker script whose default export carries a fetch handler
and answers HTTP requests with it, one connection at a time. The script path
defaults to server.script from the config.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			viper.Set("server.script", args[0])
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serveWorker(ctx, serverConfig(viper.GetViper()))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", server.DefaultHost, "address to bind")
	serveCmd.Flags().Int("port", server.DefaultPort, "port to listen on")
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func serveWorker(ctx context.Context, cfg server.Config) error {
	source, err := os.ReadFile(cfg.ScriptPath)
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}
	host, bridge, err := raven.NewBridge(hostOptions(viper.GetViper()), cfg.Addr())
	if err != nil {
		return fmt.Errorf("creating host: %w", err)
	}
	defer host.Close()

	loaded, err := host.Load(string(source), raven.Worker)
	if err != nil {
		return err
	}
	zap.L().Info("worker ready",
		zap.String("script", cfg.ScriptPath),
		zap.Strings("bindings", loaded.Bindings),
		zap.String("engine", raven.Engine))

	return raven.NewServer(cfg, bridge).ListenAndServe(ctx)
}
