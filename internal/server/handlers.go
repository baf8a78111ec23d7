package server

import (
	"strings"

	"github.com/1ureka/blockwire/internal/gameplay"
	"github.com/1ureka/blockwire/internal/message"
	"github.com/1ureka/blockwire/internal/util"
)

// handler processes one decoded message from sess. A returned error aborts
// that message only.
type handler func(sess *Session, msg message.Message) error

func (s *Server) newHandlers() *message.Table[handler] {
	return message.NewTable[handler]().
		Handle(message.Request, s.handleRequest).
		Handle(message.ChangedReady, s.playersOnly(s.handleChangedReady)).
		Handle(message.IsPrepared, s.playersOnly(s.handleIsPrepared)).
		Handle(message.PlayerDied, s.playersOnly(s.handlePlayerDied)).
		Handle(message.Shapes, s.playersOnly(s.handleShapes)).
		Handle(message.EmbedShape, s.playersOnly(s.handleRelay)).
		Handle(message.CompletedRows, s.playersOnly(s.handleCompletedRows)).
		Handle(message.TransferRows, s.playersOnly(s.handleRelay))
}

// playersOnly ignores messages from sessions that have not joined.
func (s *Server) playersOnly(h handler) handler {
	return func(sess *Session, msg message.Message) error {
		if !sess.IsPlayer() {
			util.LogDebug("client %d: %v before joining, ignored", sess.ClientID, msg.Key)
			return nil
		}
		return h(sess, msg)
	}
}

func (s *Server) handleRequest(sess *Session, msg message.Message) error {
	raw, err := message.ParseRequest(msg)
	if err != nil {
		return err
	}
	if sess.Status != StatusDisconnected {
		util.LogDebug("client %d: repeated join request, ignored", sess.ClientID)
		return nil
	}

	if s.phase != PhaseLobby {
		s.drop(sess, message.ReasonGameInProgress)
		return nil
	}
	name := strings.TrimSpace(raw)
	if name == "" || len(name) > s.maxNameBytes {
		s.drop(sess, message.ReasonPlayerNameInvalid)
		return nil
	}
	for _, p := range s.Players() {
		if p.Player.Name == name {
			s.drop(sess, message.ReasonPlayerNameNotUnique)
			return nil
		}
	}

	sess.Player = Player{Name: name}
	sess.Status = StatusJoined
	s.send(sess, message.NewGranted(sess.ClientID))
	s.broadcastRoster()
	util.LogEvent("player joined", "client", sess.ClientID, "name", name)
	return nil
}

func (s *Server) handleChangedReady(sess *Session, msg message.Message) error {
	ready, err := message.ParseReadyRequest(msg)
	if err != nil {
		return err
	}
	sess.Player.IsReady = ready
	s.broadcastRoster()
	s.relay(sess, msg.Key, message.NewReadyChanged(sess.ClientID, ready))
	util.LogEvent("ready changed", "client", sess.ClientID, "ready", ready)
	return nil
}

func (s *Server) handleIsPrepared(sess *Session, _ message.Message) error {
	if s.phase != PhasePrepping {
		util.LogDebug("client %d: prepared outside preparation, ignored", sess.ClientID)
		return nil
	}
	sess.Player.GameIsPrepared = true
	s.startIfPrepared()
	return nil
}

func (s *Server) handlePlayerDied(sess *Session, msg message.Message) error {
	sess.Player.IsAlive = false
	s.relay(sess, msg.Key, msg.Payload)
	util.LogEvent("player died", "client", sess.ClientID, "name", sess.Player.Name)
	s.gameOverIfNeeded()
	return nil
}

func (s *Server) handleShapes(sess *Session, msg message.Message) error {
	sess.Player.LastShapes = append(sess.Player.LastShapes[:0], msg.Body()...)
	return s.handleRelay(sess, msg)
}

func (s *Server) handleCompletedRows(sess *Session, msg message.Message) error {
	s.relay(sess, msg.Key, msg.Payload)
	rows, err := gameplay.ParseCompletedRows(msg)
	if err != nil {
		return err
	}
	sess.Player.Score += len(rows.Rows)
	return nil
}

func (s *Server) handleRelay(sess *Session, msg message.Message) error {
	s.relay(sess, msg.Key, msg.Payload)
	return nil
}
