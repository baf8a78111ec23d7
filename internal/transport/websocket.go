package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1ureka/blockwire/internal/util"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsStream presents a websocket as a byte stream. Every Write becomes one
// binary message; Read concatenates incoming binary messages.
type wsStream struct {
	ws *websocket.Conn
	r  io.Reader
}

// NewWebSocketStream wraps an established websocket connection.
func NewWebSocketStream(ws *websocket.Conn) io.ReadWriteCloser {
	return &wsStream{ws: ws}
}

func (s *wsStream) Read(p []byte) (int, error) {
	for {
		if s.r == nil {
			mt, r, err := s.ws.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			if mt != websocket.BinaryMessage {
				continue
			}
			s.r = r
		}

		n, err := s.r.Read(p)
		if errors.Is(err, io.EOF) {
			s.r = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

func (s *wsStream) Write(p []byte) (int, error) {
	if err := s.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *wsStream) Close() error {
	_ = s.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return s.ws.Close()
}

// DialWebSocket connects to a websocket game endpoint, e.g.
//
//	ws://example.com:8080/ws
//
// It behaves like Dial.
func DialWebSocket(ctx context.Context, url string, timeout time.Duration) *Conn {
	return dialAsync(ctx, url, func(ctx context.Context) (io.ReadWriteCloser, net.Addr, error) {
		dialer := websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: timeout,
		}
		dCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		ws, _, err := dialer.DialContext(dCtx, url, nil)
		if err != nil {
			return nil, nil, err
		}
		return NewWebSocketStream(ws), ws.LocalAddr(), nil
	})
}

// WebSocketHandler upgrades requests and hands the resulting streams to l
// as accepted connections.
func (l *Listener) WebSocketHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			util.LogDebug("websocket upgrade from %s failed: %v", r.RemoteAddr, err)
			return
		}
		if l.Adopt(NewWebSocketStream(ws), ws.RemoteAddr().String()) == nil {
			util.LogDebug("websocket from %s refused: listener closed", r.RemoteAddr)
		}
	}
}
