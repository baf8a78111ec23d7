// Blockwire: network core for a multiplayer falling-block puzzle game.
//
// "blockwire serve" hosts a game session over TCP (and optionally websocket);
// "blockwire join" connects to one as a player, driven from the console.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/1ureka/blockwire/internal/config"
	"github.com/1ureka/blockwire/internal/util"
)

var version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	debug      bool
}

func main() {
	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var g globalFlags
	rootCmd := &cobra.Command{
		Use:           "blockwire",
		Short:         "Multiplayer falling-block game server and client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.debug {
				util.EnableDebug()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", config.DefaultPath(), "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		serveCmd(&g),
		joinCmd(&g),
		configCmd(&g),
		versionCmd(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		util.LogError("%v", err)
		stop()
		os.Exit(1)
	}
}

// loadConfig reads the config file named by the global flags.
func loadConfig(g *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.debug {
		cfg.Log.Debug = true
	}
	if cfg.Log.Debug {
		util.EnableDebug()
	}
	return cfg, nil
}

func printBanner() {
	pterm.Info.Printfln("Blockwire v%s", version)
	pterm.Println()
}
