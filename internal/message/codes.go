// Package message defines the typed envelope carried in a frame payload and
// the bodies of the lobby and session messages.
package message

import "fmt"

// Type is the first field of every message.
type Type int16

const (
	TypeGeneric          Type = 0
	TypePlayerConnection Type = 1
	TypeGeneral          Type = 2
	TypeLobby            Type = 3
	TypeGame             Type = 4
	TypeClientMessage    Type = 5
)

// Subtype is interpreted relative to its Type.
type Subtype int16

// playerConnection
const (
	SubtypeRequest Subtype = 0
	SubtypeGranted Subtype = 1
	SubtypeDenied  Subtype = 2
)

// general
const SubtypePlayersInfo Subtype = 0

// lobby
const SubtypeChangedReady Subtype = 0

// game
const (
	SubtypePrepare       Subtype = 0
	SubtypeIsPrepared    Subtype = 1
	SubtypeStart         Subtype = 2
	SubtypeGameOver      Subtype = 3
	SubtypePlayerDied    Subtype = 4
	SubtypeShapes        Subtype = 5
	SubtypeEmbedShape    Subtype = 6
	SubtypeCompletedRows Subtype = 7
	SubtypeTransferRows  Subtype = 8
	SubtypeReturnToLobby Subtype = 9
)

// Key identifies a message kind.
type Key struct {
	Type    Type
	Subtype Subtype
}

var (
	Request       = Key{TypePlayerConnection, SubtypeRequest}
	Granted       = Key{TypePlayerConnection, SubtypeGranted}
	Denied        = Key{TypePlayerConnection, SubtypeDenied}
	PlayersInfo   = Key{TypeGeneral, SubtypePlayersInfo}
	ChangedReady  = Key{TypeLobby, SubtypeChangedReady}
	Prepare       = Key{TypeGame, SubtypePrepare}
	IsPrepared    = Key{TypeGame, SubtypeIsPrepared}
	Start         = Key{TypeGame, SubtypeStart}
	GameOver      = Key{TypeGame, SubtypeGameOver}
	PlayerDied    = Key{TypeGame, SubtypePlayerDied}
	Shapes        = Key{TypeGame, SubtypeShapes}
	EmbedShape    = Key{TypeGame, SubtypeEmbedShape}
	CompletedRows = Key{TypeGame, SubtypeCompletedRows}
	TransferRows  = Key{TypeGame, SubtypeTransferRows}
	ReturnToLobby = Key{TypeGame, SubtypeReturnToLobby}
)

// ServerBound lists every key a server must handle.
var ServerBound = []Key{
	Request, ChangedReady, IsPrepared,
	PlayerDied, Shapes, EmbedShape, CompletedRows, TransferRows,
}

// ClientBound lists every key a client must handle.
var ClientBound = []Key{
	Granted, Denied, PlayersInfo, ChangedReady,
	Prepare, Start, GameOver, ReturnToLobby,
	PlayerDied, Shapes, EmbedShape, CompletedRows, TransferRows,
}

var keyNames = map[Key]string{
	Request:       "playerConnection/request",
	Granted:       "playerConnection/granted",
	Denied:        "playerConnection/denied",
	PlayersInfo:   "general/playersInfo",
	ChangedReady:  "lobby/changedReady",
	Prepare:       "game/prepare",
	IsPrepared:    "game/isPrepared",
	Start:         "game/start",
	GameOver:      "game/gameOver",
	PlayerDied:    "game/playerDied",
	Shapes:        "game/shapes",
	EmbedShape:    "game/embedShape",
	CompletedRows: "game/completedRows",
	TransferRows:  "game/transferRows",
	ReturnToLobby: "game/returnToLobby",
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return fmt.Sprintf("%d/%d", k.Type, k.Subtype)
}

// DropReason tells a client why the server is disconnecting it.
type DropReason int8

const (
	ReasonServerIsFull        DropReason = 1
	ReasonServerShuttingDown  DropReason = 2
	ReasonGameInProgress      DropReason = 3
	ReasonClientLost          DropReason = 4
	ReasonPlayerNameNotUnique DropReason = 5
	ReasonPlayerNameInvalid   DropReason = 6
)

func (r DropReason) String() string {
	switch r {
	case ReasonServerIsFull:
		return "server is full"
	case ReasonServerShuttingDown:
		return "server is shutting down"
	case ReasonGameInProgress:
		return "game in progress"
	case ReasonClientLost:
		return "client lost"
	case ReasonPlayerNameNotUnique:
		return "player name not unique"
	case ReasonPlayerNameInvalid:
		return "player name invalid"
	default:
		return fmt.Sprintf("unknown reason %d", int8(r))
	}
}

// DropError carries a DropReason as an error value.
type DropError struct {
	Reason DropReason
}

func (e *DropError) Error() string {
	return "dropped by server: " + e.Reason.String()
}
