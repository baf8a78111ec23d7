package client

import (
	"github.com/1ureka/blockwire/internal/message"
)

// Observer is notified from Update as the session progresses. Opponent
// values are copies.
type Observer interface {
	OnJoined(clientID uint32)
	OnDenied(reason message.DropReason)
	OnRoster(local LocalPlayer, opponents []Opponent)
	OnPrepare()
	OnStart()
	OnOpponentUpdate(op Opponent)
	OnRowsIncoming(from, count uint32)
	OnGameOver(won bool, winner uint32)
	OnReturnToLobby()
	OnDisconnected(err error)
}

// NopObserver ignores every event. Embed it to implement only some hooks.
type NopObserver struct{}

func (NopObserver) OnJoined(uint32)                  {}
func (NopObserver) OnDenied(message.DropReason)      {}
func (NopObserver) OnRoster(LocalPlayer, []Opponent) {}
func (NopObserver) OnPrepare()                       {}
func (NopObserver) OnStart()                         {}
func (NopObserver) OnOpponentUpdate(Opponent)        {}
func (NopObserver) OnRowsIncoming(uint32, uint32)    {}
func (NopObserver) OnGameOver(bool, uint32)          {}
func (NopObserver) OnReturnToLobby()                 {}
func (NopObserver) OnDisconnected(error)             {}
