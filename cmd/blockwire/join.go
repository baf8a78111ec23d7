package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/1ureka/blockwire/internal/app"
	"github.com/1ureka/blockwire/internal/util"
)

func joinCmd(g *globalFlags) *cobra.Command {
	var (
		addr string
		name string
	)

	cmd := &cobra.Command{
		Use:   "join [address]",
		Short: "Join a game session as a player",
		Long: `Join a game session. The address is host:port for TCP, or a
ws:// or wss:// URL for the websocket endpoint.

Console commands: ready, unready, rows <n>, clear <row>..., die, players, quit.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				addr = args[0]
			}
			if addr != "" {
				cfg.Client.Address = addr
			}
			if cfg.Client.Address, err = normalizeAddress(cfg.Client.Address); err != nil {
				return err
			}
			if name == "" {
				name = cfg.Client.Name
			}

			printBanner()
			if strings.TrimSpace(name) == "" {
				name = askName()
			}

			ctx := cmd.Context()
			err = app.RunPlayer(ctx, cfg, name, app.ReadCommands(ctx, cmd.InOrStdin()))
			if reason, ok := app.DropReasonOf(err); ok {
				return fmt.Errorf("the server disconnected you: %v", reason)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Server address (default from config)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Player name (prompted when empty)")

	return cmd
}

// normalizeAddress accepts host:port or a websocket URL, adding the /ws
// path to a bare websocket host.
func normalizeAddress(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "ws://") && !strings.HasPrefix(raw, "wss://") {
		if !strings.Contains(raw, ":") {
			return "", fmt.Errorf("invalid address %q: want host:port or a ws:// URL", raw)
		}
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid WebSocket URL: %s", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

// askName prompts for a player name until a non-blank one is entered.
func askName() string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("Player name").
			Show()

		name := strings.TrimSpace(raw)
		if name != "" {
			pterm.Println()
			return name
		}

		util.LogWarning("player name must not be empty")
		pterm.Println()
	}
}
