package client

import (
	"fmt"

	"github.com/1ureka/blockwire/internal/gameplay"
	"github.com/1ureka/blockwire/internal/message"
)

func (c *Client) requireJoined(what string) error {
	if c.status < StatusJoined {
		return fmt.Errorf("%s while %v: %w", what, c.status, ErrNotJoined)
	}
	return nil
}

// SetReady records and announces the local ready flag.
func (c *Client) SetReady(ready bool) error {
	if err := c.requireJoined("set ready"); err != nil {
		return err
	}
	c.local.IsReady = ready
	return c.send(message.NewReadyRequest(ready))
}

// SendShapes announces the local falling piece and the next shape.
func (c *Client) SendShapes(current gameplay.Piece, nextShape uint32) error {
	if err := c.requireJoined("send shapes"); err != nil {
		return err
	}
	return c.send(gameplay.Shapes{ClientID: c.local.ClientID, Current: current, NextShape: nextShape}.Encode())
}

// SendEmbedShape announces a piece locked into the local board.
func (c *Client) SendEmbedShape(p gameplay.Piece) error {
	if err := c.requireJoined("send embed"); err != nil {
		return err
	}
	return c.send(gameplay.Embed{ClientID: c.local.ClientID, Piece: p}.Encode())
}

// SendCompletedRows announces rows cleared from the local board.
func (c *Client) SendCompletedRows(rows []uint32) error {
	if err := c.requireJoined("send completed rows"); err != nil {
		return err
	}
	return c.send(gameplay.CompletedRows{ClientID: c.local.ClientID, Rows: rows}.Encode())
}

// SendTransferRows sends count garbage rows to the opponents.
func (c *Client) SendTransferRows(count uint32) error {
	if err := c.requireJoined("send transfer rows"); err != nil {
		return err
	}
	return c.send(gameplay.TransferRows{ClientID: c.local.ClientID, Count: count}.Encode())
}

// SendPlayerDied marks the local player dead and tells the server.
func (c *Client) SendPlayerDied() error {
	if err := c.requireJoined("send player died"); err != nil {
		return err
	}
	c.local.IsAlive = false
	return c.send(gameplay.PlayerDied{ClientID: c.local.ClientID}.Encode())
}
