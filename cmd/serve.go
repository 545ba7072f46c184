package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Bradley1112/nurture/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session engine over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := rt.cfg
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := openEngine(ctx, cfg, rt.log)
	if err != nil {
		return err
	}
	defer eng.Close()

	srv := server.New(server.Options{
		Config:   cfg.Server,
		Engine:   eng.svc,
		Logger:   rt.log,
		Metrics:  eng.metrics,
		Gatherer: eng.registry,
		Ping:     eng.ping,
	})
	return srv.Run(ctx)
}

