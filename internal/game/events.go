package game

import (
	"github.com/talgya/streetsim/internal/board"
	"github.com/talgya/streetsim/internal/ownership"
)

// EventType tags an entry in the turn event stream.
type EventType string

const (
	EventDiceRolled       EventType = "dice_rolled"
	EventPassedStart      EventType = "passed_start"
	EventTileLanded       EventType = "tile_landed"
	EventOwnershipChanged EventType = "ownership_changed"
	EventFeePaid          EventType = "fee_paid"
	EventSuitAwarded      EventType = "suit_awarded"
	EventSuitSetComplete  EventType = "suit_set_complete"
	EventLevelUp          EventType = "level_up"
	EventSalaryPaid       EventType = "salary_paid"
	EventChanceApplied    EventType = "chance_applied"
	EventSharesTraded     EventType = "shares_traded"
	EventBankrupt         EventType = "bankrupt"
	EventTurnSettled      EventType = "turn_settled"
	EventGameEnded        EventType = "game_ended"
)

// Event is one entry in the ordered, replayable stream the UI layer
// consumes. Fields not used by a given type stay at their zero value;
// the flat shape keeps serialized streams byte-comparable across
// replays.
type Event struct {
	Seq    int       `json:"seq"`
	Round  int       `json:"round"`
	Type   EventType `json:"type"`
	Player ownership.PlayerID `json:"player"`

	// Tile index for movement and shop events.
	Tile int `json:"tile"`
	// Die value for dice_rolled.
	Die int `json:"die"`
	// Amount is the cash moved: positive toward Player except for
	// fee_paid and ownership_changed, where it is what Player paid.
	// For shares_traded it is the total trade value.
	Amount int `json:"amount"`
	// To is the receiving player for fee_paid.
	To ownership.PlayerID `json:"to"`
	// District and Count describe share trades; Count is negative for
	// sales.
	District board.DistrictID `json:"district"`
	Count    int              `json:"count"`
	// Suit name for suit_awarded.
	Suit string `json:"suit"`
	// Level reached for level_up.
	Level int `json:"level"`
}
