// Package game implements the turn state machine: dice movement, tile
// resolution, the decision protocol, and the replayable event stream.
// The machine is the single writer over the game aggregate; everything
// else reads snapshots.
package game

import (
	"fmt"

	"github.com/talgya/streetsim/internal/ownership"
)

// PlayerKind distinguishes human-driven players from bot-driven ones.
// The engine treats both identically; the runner only uses the kind to
// pick an actor.
type PlayerKind uint8

const (
	KindHuman PlayerKind = iota
	KindBot
)

// String returns the kind name.
func (k PlayerKind) String() string {
	switch k {
	case KindHuman:
		return "human"
	case KindBot:
		return "bot"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps a kind name to its value.
func ParseKind(name string) (PlayerKind, error) {
	switch name {
	case "human":
		return KindHuman, nil
	case "bot":
		return KindBot, nil
	}
	return 0, fmt.Errorf("unknown player kind %q", name)
}

// Player is one participant's identity and board position. Cash,
// level, and holdings live in the ledger; suits in the registry.
type Player struct {
	ID       ownership.PlayerID
	Name     string
	Kind     PlayerKind
	Position int
}
