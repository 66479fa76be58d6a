// Package bot provides the deterministic accept/decline policy used
// for bot players. Everything beyond the binary purchase choice is an
// acknowledgment, so the policy stays trivially replayable.
package bot

import (
	"github.com/talgya/streetsim/internal/game"
)

// Policy buys any affordable shop while keeping a cash reserve.
type Policy struct {
	// CashReserve is the minimum cash the bot keeps after a purchase.
	CashReserve int
}

// Decide answers a pending decision request.
func (p Policy) Decide(m *game.Machine, req game.DecisionRequest) game.Decision {
	d := game.Decision{Player: req.Player, Kind: req.Kind}
	if req.Kind == game.RequestPurchase {
		d.Accept = m.Ledger().Cash(req.Player)-req.Price >= p.CashReserve
	}
	return d
}
