package cmd

import (
	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/focusflow/pkg/logging"
	"github.com/otherjamesbrown/focusflow/pkg/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis HTTP API",
		Long: `Run the FocusFlow HTTP API.

Endpoints:
  POST /api/analyze        multipart form: agenda plus one of audio, subtitles,
                           transcript or text; optional mode and title
  GET  /api/reports        recent reports (?limit=N)
  GET  /api/reports/{id}   a stored report
  GET  /healthz            liveness and database check
  GET  /version            build info and enabled features
  GET  /metrics            Prometheus metrics

Reports are kept in Postgres when database.url is configured and in memory
otherwise.`,
		Example: `  focusflow serve
  focusflow serve --addr 127.0.0.1:9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, rt, err := deps.runtime(ctx, RuntimeOptions{
				ServiceName:     server.ServiceName,
				Store:           true,
				MemoryStore:     true,
				WaitForDatabase: true,
			})
			if err != nil {
				return err
			}
			defer rt.Close()

			srvCfg := server.DefaultConfig()
			srvCfg.Addr = cfg.Server.Addr
			if addr != "" {
				srvCfg.Addr = addr
			}
			if len(cfg.Server.AllowedOrigins) > 0 {
				srvCfg.AllowedOrigins = cfg.Server.AllowedOrigins
			}

			logger := deps.Logger()
			srv := server.New(srvCfg, rt.Analyzer,
				server.WithStore(rt.Store),
				server.WithPool(rt.Pool),
				server.WithMetrics(rt.Metrics, rt.Registry),
				server.WithLogger(logger),
				server.WithFeatures(rt.Features...))

			logger.Info("Starting server",
				logging.F("addr", srvCfg.Addr),
				logging.F("features", rt.Features))
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr from config)")
	return cmd
}
