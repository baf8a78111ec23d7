package app_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/1ureka/blockwire/internal/app"
	"github.com/1ureka/blockwire/internal/client"
	"github.com/1ureka/blockwire/internal/config"
	"github.com/1ureka/blockwire/internal/message"
	"github.com/1ureka/blockwire/internal/metrics"
	"github.com/1ureka/blockwire/internal/transport"
	"github.com/1ureka/blockwire/internal/util"
)

func init() { util.DisableOutput() }

// TestReadCommands verifies blank lines are skipped and the channel closes
// at end of input.
func TestReadCommands(t *testing.T) {
	in := strings.NewReader("start\n\n   players  \nquit")
	var got []string
	for cmd := range app.ReadCommands(t.Context(), in) {
		got = append(got, cmd)
	}
	want := []string{"start", "players", "quit"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("got %q, want %q", got, want)
	}
}

// TestRouter verifies the health and metrics endpoints.
func TestRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegistry(reg))
	m.ObserveGameStart()

	ln := transport.NewAdoptListener(t.Context())
	t.Cleanup(func() { ln.Close() })
	ts := httptest.NewServer(app.NewRouter(ln, reg))
	t.Cleanup(ts.Close)

	for path, want := range map[string]string{
		"/healthz": "ok",
		"/metrics": "blockwire_games_started_total 1",
	} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: status %d", path, resp.StatusCode)
		}
		if !strings.Contains(string(body), want) {
			t.Errorf("GET %s: body lacks %q", path, want)
		}
	}
}

// TestHostGame runs a host with auto start and plays a solo game against it
// over TCP, then quits the host and checks the client hears why.
func TestHostGame(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Listen = "127.0.0.1:0"
	cfg.Server.HTTPListen = "127.0.0.1:0"
	cfg.Server.AutoStart = true
	cfg.Server.Cooldown = time.Hour
	cfg.Log.StatsInterval = 0

	host, err := app.NewHost(cfg)
	if err != nil {
		t.Fatal(err)
	}
	commands := make(chan string)
	runErr := make(chan error, 1)
	go func() { runErr <- host.Run(context.Background(), commands) }()

	rec := &observer{}
	c, err := client.New(cfg.Client, client.WithObserver(rec))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Connect(t.Context(), host.Addr().String(), "Alice", nil); err != nil {
		t.Fatal(err)
	}
	until := func(what string, cond func() bool) {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for !cond() {
			if time.Now().After(deadline) {
				t.Fatalf("timed out waiting for %s", what)
			}
			c.Update()
			time.Sleep(time.Millisecond)
		}
	}

	until("join", func() bool { return c.Status() == client.StatusJoined })
	if err := c.SetReady(true); err != nil {
		t.Fatal(err)
	}
	until("auto start", func() bool { return c.Status() == client.StatusActive })
	if err := c.SendPlayerDied(); err != nil {
		t.Fatal(err)
	}
	until("game over", func() bool { return c.Phase() == client.PhaseGameOver })

	resp, err := http.Get("http://" + host.HTTPAddr().String() + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, want := range []string{
		"blockwire_games_started_total 1",
		`blockwire_phase{phase="gameOver"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics lack %q", want)
		}
	}

	commands <- "quit"
	until("shutdown notice", func() bool { return rec.err != nil })
	if reason, ok := app.DropReasonOf(rec.err); !ok || reason != message.ReasonServerShuttingDown {
		t.Errorf("disconnect error %v, want server shutting down", rec.err)
	}
	select {
	case err := <-runErr:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

// TestRunPlayerConnectFailure verifies a refused connection ends RunPlayer
// with the dial error.
func TestRunPlayerConnectFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Client.Address = "127.0.0.1:1"
	cfg.Client.ConnectTimeout = time.Second

	err := app.RunPlayer(t.Context(), cfg, "Alice", nil)
	if err == nil {
		t.Fatal("RunPlayer succeeded against a closed port")
	}
	if _, ok := app.DropReasonOf(err); ok {
		t.Errorf("dial failure reported as a drop: %v", err)
	}
}

type observer struct {
	client.NopObserver
	err error
}

func (o *observer) OnDisconnected(err error) {
	if err == nil {
		err = errors.New("closed without reason")
	}
	o.err = err
}
