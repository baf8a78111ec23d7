package main

import (
	"github.com/spf13/cobra"

	"github.com/1ureka/blockwire/internal/app"
)

func serveCmd(g *globalFlags) *cobra.Command {
	var (
		listen     string
		httpListen string
		maxPlayers int
		autoStart  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host a game session",
		Long: `Host a game session on a TCP port.

Console commands: start (begin a game), players, quit.
With --http, the same game is also reachable over websocket at /ws
and Prometheus metrics are served at /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("listen") {
				cfg.Server.Listen = listen
			}
			if flags.Changed("http") {
				cfg.Server.HTTPListen = httpListen
			}
			if flags.Changed("max-players") {
				cfg.Server.MaxPlayers = maxPlayers
			}
			if flags.Changed("auto-start") {
				cfg.Server.AutoStart = autoStart
			}

			printBanner()
			host, err := app.NewHost(cfg)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return host.Run(ctx, app.ReadCommands(ctx, cmd.InOrStdin()))
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "TCP game listen address (default from config, :2247)")
	cmd.Flags().StringVar(&httpListen, "http", "", "HTTP listen address for /ws and /metrics")
	cmd.Flags().IntVar(&maxPlayers, "max-players", 0, "Maximum number of connected sessions")
	cmd.Flags().BoolVar(&autoStart, "auto-start", false, "Start a game as soon as every player is ready")

	return cmd
}
