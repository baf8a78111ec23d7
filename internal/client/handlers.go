package client

import (
	"github.com/1ureka/blockwire/internal/gameplay"
	"github.com/1ureka/blockwire/internal/message"
	"github.com/1ureka/blockwire/internal/util"
)

type handler func(msg message.Message) error

func (c *Client) newHandlers() *message.Table[handler] {
	return message.NewTable[handler]().
		Handle(message.Granted, c.handleGranted).
		Handle(message.Denied, c.handleDenied).
		Handle(message.PlayersInfo, c.handlePlayersInfo).
		Handle(message.ChangedReady, c.handleChangedReady).
		Handle(message.Prepare, c.handlePrepare).
		Handle(message.Start, c.handleStart).
		Handle(message.GameOver, c.handleGameOver).
		Handle(message.ReturnToLobby, c.handleReturnToLobby).
		Handle(message.PlayerDied, c.handlePlayerDied).
		Handle(message.Shapes, c.handleShapes).
		Handle(message.EmbedShape, c.handleEmbedShape).
		Handle(message.CompletedRows, c.handleCompletedRows).
		Handle(message.TransferRows, c.handleTransferRows)
}

func (c *Client) handleGranted(msg message.Message) error {
	id, err := message.ParseGranted(msg)
	if err != nil {
		return err
	}
	c.local.ClientID = id
	c.status = StatusJoined
	c.phase = PhaseLobby
	util.LogSuccess("Joined as %q (client %d)", c.local.Name, id)
	c.observer.OnJoined(id)
	return nil
}

func (c *Client) handleDenied(msg message.Message) error {
	reason, err := message.ParseDenied(msg)
	if err != nil {
		return err
	}
	c.dropErr = &message.DropError{Reason: reason}
	util.LogWarning("Server refused the connection: %v", reason)
	c.observer.OnDenied(reason)
	c.Disconnect()
	return nil
}

// handlePlayersInfo rebuilds the opponent table. Known opponents keep their
// gameplay state; the local player only takes the ready and alive flags.
func (c *Client) handlePlayersInfo(msg message.Message) error {
	players, err := message.ParsePlayersInfo(msg)
	if err != nil {
		return err
	}
	opponents := make([]*Opponent, 0, len(players))
	for _, p := range players {
		if p.ClientID == c.local.ClientID {
			c.local.IsReady = p.IsReady
			c.local.IsAlive = p.IsAlive
			continue
		}
		op := c.opponent(p.ClientID)
		if op == nil {
			op = &Opponent{ClientID: p.ClientID}
		}
		op.Name = p.Name
		op.IsReady = p.IsReady
		op.IsAlive = p.IsAlive
		opponents = append(opponents, op)
	}
	c.opponents = opponents
	c.observer.OnRoster(c.local, c.Opponents())
	return nil
}

func (c *Client) handleChangedReady(msg message.Message) error {
	rc, err := message.ParseReadyChanged(msg)
	if err != nil {
		return err
	}
	if op := c.opponent(rc.ClientID); op != nil {
		op.IsReady = rc.IsReady
		c.observer.OnOpponentUpdate(*op)
	}
	return nil
}

func (c *Client) handlePrepare(message.Message) error {
	c.status = StatusPrimed
	c.phase = PhasePrepping
	c.winner = 0
	c.local.IsAlive = true
	c.local.IncomingRows = 0
	for _, op := range c.opponents {
		op.resetGame()
	}
	c.observer.OnPrepare()
	return c.send(message.Empty(message.IsPrepared))
}

func (c *Client) handleStart(message.Message) error {
	c.status = StatusActive
	c.phase = PhasePlaying
	util.LogInfo("Game started")
	c.observer.OnStart()
	return nil
}

func (c *Client) handleGameOver(msg message.Message) error {
	winner, err := message.ParseGameOver(msg)
	if err != nil {
		return err
	}
	c.winner = winner
	c.phase = PhaseGameOver
	won := winner != 0 && winner == c.local.ClientID
	util.LogInfo("Game over, winner %d", winner)
	c.observer.OnGameOver(won, winner)
	return nil
}

func (c *Client) handleReturnToLobby(message.Message) error {
	c.status = StatusJoined
	c.phase = PhaseLobby
	c.observer.OnReturnToLobby()
	return nil
}

// relayed returns the opponent a gameplay message is about. Messages about
// the local player or unknown clients are ignored.
func (c *Client) relayed(clientID uint32) *Opponent {
	if clientID == c.local.ClientID {
		return nil
	}
	return c.opponent(clientID)
}

func (c *Client) handlePlayerDied(msg message.Message) error {
	v, err := gameplay.ParsePlayerDied(msg)
	if err != nil {
		return err
	}
	if op := c.relayed(v.ClientID); op != nil {
		op.IsAlive = false
		c.observer.OnOpponentUpdate(*op)
	}
	return nil
}

func (c *Client) handleShapes(msg message.Message) error {
	v, err := gameplay.ParseShapes(msg)
	if err != nil {
		return err
	}
	if op := c.relayed(v.ClientID); op != nil {
		op.Current = v.Current
		op.NextShape = v.NextShape
		c.observer.OnOpponentUpdate(*op)
	}
	return nil
}

func (c *Client) handleEmbedShape(msg message.Message) error {
	v, err := gameplay.ParseEmbed(msg)
	if err != nil {
		return err
	}
	if op := c.relayed(v.ClientID); op != nil {
		op.Embedded = append(op.Embedded, v.Piece)
		c.observer.OnOpponentUpdate(*op)
	}
	return nil
}

func (c *Client) handleCompletedRows(msg message.Message) error {
	v, err := gameplay.ParseCompletedRows(msg)
	if err != nil {
		return err
	}
	if op := c.relayed(v.ClientID); op != nil {
		op.RowsCleared += len(v.Rows)
		c.observer.OnOpponentUpdate(*op)
	}
	return nil
}

func (c *Client) handleTransferRows(msg message.Message) error {
	v, err := gameplay.ParseTransferRows(msg)
	if err != nil {
		return err
	}
	if c.relayed(v.ClientID) == nil {
		return nil
	}
	c.local.IncomingRows += v.Count
	c.observer.OnRowsIncoming(v.ClientID, v.Count)
	return nil
}
