// Package app wires the game server and client into runnable processes:
// listeners, the tick loop, console commands, and the HTTP endpoints.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/pterm/pterm"

	"github.com/1ureka/blockwire/internal/config"
	"github.com/1ureka/blockwire/internal/metrics"
	"github.com/1ureka/blockwire/internal/server"
	"github.com/1ureka/blockwire/internal/transport"
	"github.com/1ureka/blockwire/internal/util"
)

// stopGrace bounds how long shutdown waits for drop notices to flush.
const stopGrace = 500 * time.Millisecond

// Host runs a game server.
type Host struct {
	cfg      *config.Config
	srv      *server.Server
	registry *prometheus.Registry

	// Connections live on their own context so that they outlast the
	// caller's long enough to deliver the shutdown notice.
	connCancel context.CancelFunc

	tcp     *transport.Listener
	ws      *transport.Listener
	httpSrv *http.Server
	httpLn  net.Listener
}

// NewHost opens the game listeners described by cfg.
func NewHost(cfg *config.Config) (*Host, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(metrics.WithRegistry(reg))

	srv, err := server.New(cfg.Server, server.WithMetrics(m))
	if err != nil {
		return nil, err
	}

	connCtx, connCancel := context.WithCancel(context.Background())
	h := &Host{cfg: cfg, srv: srv, registry: reg, connCancel: connCancel}

	h.tcp, err = transport.Listen(connCtx, cfg.Server.Listen)
	if err != nil {
		connCancel()
		return nil, err
	}
	srv.Start(h.tcp)

	if cfg.Server.HTTPListen != "" {
		h.httpLn, err = net.Listen("tcp", cfg.Server.HTTPListen)
		if err != nil {
			h.tcp.Close()
			connCancel()
			return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Server.HTTPListen, err)
		}
		h.ws = transport.NewAdoptListener(connCtx)
		srv.Start(h.ws)
		h.httpSrv = &http.Server{
			Handler:           NewRouter(h.ws, reg),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return h, nil
}

// Addr returns the TCP game address.
func (h *Host) Addr() net.Addr { return h.tcp.Addr() }

// HTTPAddr returns the HTTP address, or nil when HTTP is disabled.
func (h *Host) HTTPAddr() net.Addr {
	if h.httpLn == nil {
		return nil
	}
	return h.httpLn.Addr()
}

// Registry returns the registry behind /metrics.
func (h *Host) Registry() *prometheus.Registry { return h.registry }

// Server returns the game server. It must only be used from the Run
// goroutine's callbacks or after Run returns.
func (h *Host) Server() *server.Server { return h.srv }

// Run ticks the server until ctx is done or a quit command arrives, then
// drops every session and closes the listeners.
func (h *Host) Run(ctx context.Context, commands <-chan string) error {
	util.LogSuccess("Game server listening on %s", h.tcp.Addr())
	if h.httpSrv != nil {
		util.LogSuccess("HTTP endpoints (/ws, /metrics) on %s", h.httpLn.Addr())
		go func() {
			if err := h.httpSrv.Serve(h.httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				util.LogError("HTTP server failed: %v", err)
			}
		}()
	}
	if h.cfg.Log.StatsInterval > 0 {
		util.StartStatsReporter(ctx, h.cfg.Log.StatsInterval)
	}

	ticker := time.NewTicker(config.TickInterval(h.cfg.Server.TickRate))
	defer ticker.Stop()

	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			if quit := h.command(cmd); quit {
				return nil
			}
		case <-ticker.C:
			h.srv.Update()
			h.autoStart()
		}
	}
}

func (h *Host) autoStart() {
	if !h.cfg.Server.AutoStart || h.srv.Phase() != server.PhaseLobby || !h.srv.AllReady() {
		return
	}
	if err := h.srv.StartGame(); err != nil {
		util.LogWarning("Auto start failed: %v", err)
	}
}

// command runs one console command and reports whether to quit.
func (h *Host) command(line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "start":
		if err := h.srv.StartGame(); err != nil {
			util.LogWarning("Cannot start: %v", err)
		}
	case "players":
		h.printPlayers()
	case "quit", "exit":
		return true
	case "help":
		pterm.Println("commands: start, players, quit")
	default:
		util.LogWarning("Unknown command %q (try help)", fields[0])
	}
	return false
}

func (h *Host) printPlayers() {
	rows := [][]string{{"ID", "Name", "Status", "Ready", "Alive", "Score"}}
	for _, s := range h.srv.Sessions() {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(s.ClientID), 10),
			s.Player.Name,
			s.Status.String(),
			strconv.FormatBool(s.Player.IsReady),
			strconv.FormatBool(s.Player.IsAlive),
			strconv.Itoa(s.Player.Score),
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	pterm.Printfln("phase: %v", h.srv.Phase())
}

func (h *Host) shutdown() {
	h.srv.Stop()
	h.tcp.Close()
	if h.ws != nil {
		h.ws.Close()
	}
	if h.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), stopGrace)
		defer cancel()
		_ = h.httpSrv.Shutdown(ctx)
	}
	// Dropped connections close themselves once flushed.
	time.Sleep(stopGrace)
	h.connCancel()
	util.LogInfo("Game server stopped")
}
