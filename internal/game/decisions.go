package game

import (
	"errors"

	"github.com/talgya/streetsim/internal/ownership"
)

// ErrOutOfTurn rejects a stimulus that does not match the machine's
// current phase or pending request. The game state is never mutated.
var ErrOutOfTurn = errors.New("out of turn")

// RequestKind names the decision a suspended turn is waiting on.
type RequestKind string

const (
	// RequestPurchase offers an unowned shop; the response accepts or
	// declines.
	RequestPurchase RequestKind = "purchase"
	// RequestFee announces a fee owed to another player's shop; the
	// response acknowledges it.
	RequestFee RequestKind = "fee"
	// RequestBank announces a bank visit; the response acknowledges
	// it.
	RequestBank RequestKind = "bank"
	// RequestChance announces a drawn chance effect; the response
	// acknowledges it.
	RequestChance RequestKind = "chance"
)

// DecisionRequest is the typed request the core emits when a turn
// suspends. Exactly one matching Decision advances the machine.
type DecisionRequest struct {
	Kind   RequestKind        `json:"kind"`
	Player ownership.PlayerID `json:"player"`
	Tile   int                `json:"tile"`

	// Purchase: asking price.
	Price int `json:"price,omitempty"`
	// Fee: amount owed and the owning player.
	Fee   int                `json:"fee,omitempty"`
	Owner ownership.PlayerID `json:"owner,omitempty"`
	// Bank: whether the suit set is complete (level-up will happen).
	SuitsComplete bool `json:"suits_complete,omitempty"`
	// Chance: the drawn signed cash delta.
	Delta int `json:"delta,omitempty"`
}

// Decision is the typed response from the acting player. Accept is
// meaningful only for purchase requests; the other kinds are
// acknowledgments.
type Decision struct {
	Player ownership.PlayerID `json:"player"`
	Kind   RequestKind        `json:"kind"`
	Accept bool               `json:"accept"`
}
