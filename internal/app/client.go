package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/1ureka/blockwire/internal/client"
	"github.com/1ureka/blockwire/internal/config"
	"github.com/1ureka/blockwire/internal/message"
	"github.com/1ureka/blockwire/internal/util"
)

// consoleObserver logs game events and remembers how the session ended.
type consoleObserver struct {
	client.NopObserver
	ended bool
	err   error
}

func (o *consoleObserver) OnRoster(local client.LocalPlayer, opponents []client.Opponent) {
	names := make([]string, 0, len(opponents))
	for _, op := range opponents {
		mark := ""
		if op.IsReady {
			mark = " (ready)"
		}
		names = append(names, op.Name+mark)
	}
	util.LogEvent("roster", "you", local.Name, "ready", local.IsReady, "opponents", strings.Join(names, ", "))
}

func (o *consoleObserver) OnPrepare() { util.LogInfo("Preparing game...") }

func (o *consoleObserver) OnRowsIncoming(from, count uint32) {
	util.LogEvent("rows incoming", "from", from, "count", count)
}

func (o *consoleObserver) OnGameOver(won bool, winner uint32) {
	if won {
		pterm.Success.Println("You won!")
		return
	}
	pterm.Info.Printfln("Game over, winner: %d", winner)
}

func (o *consoleObserver) OnReturnToLobby() { util.LogInfo("Back in the lobby") }

func (o *consoleObserver) OnDisconnected(err error) {
	o.ended = true
	o.err = err
}

// RunPlayer joins the server in cfg.Client as name and plays from console
// commands until the session ends, ctx is done, or a quit command arrives.
func RunPlayer(ctx context.Context, cfg *config.Config, name string, commands <-chan string) error {
	obs := &consoleObserver{}
	c, err := client.New(cfg.Client, client.WithObserver(obs))
	if err != nil {
		return err
	}
	return runPlayer(ctx, c, obs, cfg.Client, name, commands)
}

func runPlayer(ctx context.Context, c *client.Client, obs *consoleObserver, cfg config.ClientConfig, name string, commands <-chan string) error {
	var connectErr error
	err := c.Connect(ctx, cfg.Address, name, func(err error) { connectErr = err })
	if err != nil {
		return err
	}

	ticker := time.NewTicker(config.TickInterval(cfg.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Disconnect()
			return nil
		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			quit, err := playerCommand(c, cmd)
			if err != nil {
				util.LogWarning("%v", err)
			}
			if quit {
				c.Disconnect()
				return nil
			}
		case <-ticker.C:
			c.Update()
			if connectErr != nil {
				return fmt.Errorf("failed to connect to %s: %w", cfg.Address, connectErr)
			}
			if obs.ended {
				return obs.err
			}
		}
	}
}

// playerCommand runs one console command and reports whether to quit.
func playerCommand(c *client.Client, line string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "ready":
		return false, c.SetReady(true)
	case "unready":
		return false, c.SetReady(false)
	case "rows":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: rows <count>")
		}
		n, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return false, fmt.Errorf("invalid row count %q", fields[1])
		}
		return false, c.SendTransferRows(uint32(n))
	case "clear":
		rows := make([]uint32, 0, len(fields)-1)
		for _, f := range fields[1:] {
			n, err := strconv.ParseUint(f, 10, 32)
			if err != nil {
				return false, fmt.Errorf("invalid row %q", f)
			}
			rows = append(rows, uint32(n))
		}
		return false, c.SendCompletedRows(rows)
	case "die":
		return false, c.SendPlayerDied()
	case "players":
		printOpponents(c)
		return false, nil
	case "quit", "exit":
		return true, nil
	case "help":
		pterm.Println("commands: ready, unready, rows <n>, clear <row>..., die, players, quit")
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %q (try help)", fields[0])
	}
}

func printOpponents(c *client.Client) {
	local := c.Local()
	rows := [][]string{
		{"ID", "Name", "Ready", "Alive", "Rows"},
		{strconv.FormatUint(uint64(local.ClientID), 10), local.Name + " (you)",
			strconv.FormatBool(local.IsReady), strconv.FormatBool(local.IsAlive), "-"},
	}
	for _, op := range c.Opponents() {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(op.ClientID), 10),
			op.Name,
			strconv.FormatBool(op.IsReady),
			strconv.FormatBool(op.IsAlive),
			strconv.Itoa(op.RowsCleared),
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	pterm.Printfln("status: %v, phase: %v", c.Status(), c.Phase())
}

// DropReasonOf extracts the server's drop reason from a RunPlayer error.
func DropReasonOf(err error) (message.DropReason, bool) {
	var drop *message.DropError
	if !errors.As(err, &drop) {
		return 0, false
	}
	return drop.Reason, true
}
