// Package ownership tracks which player owns each shop, per-district
// owned-member counts, and per-player suit sets. All ownership changes
// route through Transfer, which is what keeps the one-owner-per-shop
// invariant.
package ownership

import (
	"fmt"
	"sort"

	"github.com/talgya/streetsim/internal/board"
)

// PlayerID identifies a player. Zero is reserved for "no owner".
type PlayerID int

// NoOwner marks an unowned shop.
const NoOwner PlayerID = 0

// Registry is the mutable ownership state for one game.
type Registry struct {
	b      *board.Board
	owners map[int]PlayerID
	// ownedCount counts member shops with any owner, per district.
	ownedCount map[board.DistrictID]int
	suits      map[PlayerID]map[board.Suit]bool
}

// NewRegistry returns an empty registry over the given board.
func NewRegistry(b *board.Board) *Registry {
	return &Registry{
		b:          b,
		owners:     make(map[int]PlayerID),
		ownedCount: make(map[board.DistrictID]int),
		suits:      make(map[PlayerID]map[board.Suit]bool),
	}
}

// OwnerOf returns the owner of the shop at the given tile index.
// ok is false when the shop is unowned.
func (r *Registry) OwnerOf(shopIndex int) (PlayerID, bool) {
	p, ok := r.owners[shopIndex]
	return p, ok
}

// Transfer sets the shop's owner unconditionally; callers validate the
// game rules first. Passing NoOwner releases the shop. District owned
// counts are updated so share prices see the change immediately.
func (r *Registry) Transfer(shopIndex int, newOwner PlayerID) error {
	shop, ok := r.b.ShopAt(shopIndex)
	if !ok {
		return fmt.Errorf("ownership: tile %d is not a shop", shopIndex)
	}

	prev, wasOwned := r.owners[shopIndex]
	if wasOwned && prev == newOwner {
		return nil
	}

	if newOwner == NoOwner {
		if wasOwned {
			delete(r.owners, shopIndex)
			r.ownedCount[shop.District]--
		}
		return nil
	}

	r.owners[shopIndex] = newOwner
	if !wasOwned {
		r.ownedCount[shop.District]++
	}
	return nil
}

// AwardSuit adds a suit to the player's set. Awarding a held suit is a
// no-op. It reports whether the set is now complete.
func (r *Registry) AwardSuit(p PlayerID, s board.Suit) (complete bool) {
	set := r.suits[p]
	if set == nil {
		set = make(map[board.Suit]bool, board.NumSuits)
		r.suits[p] = set
	}
	set[s] = true
	return len(set) == board.NumSuits
}

// HasSuit reports whether the player holds the given suit.
func (r *Registry) HasSuit(p PlayerID, s board.Suit) bool {
	return r.suits[p][s]
}

// Suits returns the player's suit set in symbol order.
func (r *Registry) Suits(p PlayerID) []board.Suit {
	var out []board.Suit
	for s := board.Suit(0); s < board.NumSuits; s++ {
		if r.suits[p][s] {
			out = append(out, s)
		}
	}
	return out
}

// SuitSetComplete reports whether the player holds all four suits.
func (r *Registry) SuitSetComplete(p PlayerID) bool {
	return len(r.suits[p]) == board.NumSuits
}

// ResetSuits empties the player's suit set, as the bank does on
// level-up.
func (r *Registry) ResetSuits(p PlayerID) {
	delete(r.suits, p)
}

// ShopsOwnedBy returns the tile indices of the player's shops in board
// order.
func (r *Registry) ShopsOwnedBy(p PlayerID) []int {
	var out []int
	for idx, owner := range r.owners {
		if owner == p {
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out
}

// OwnedCount returns how many of the district's shops have an owner.
func (r *Registry) OwnedCount(id board.DistrictID) int {
	return r.ownedCount[id]
}

// OwnedFraction returns the fraction of the district's member shops
// that are player-owned, in 0..1.
func (r *Registry) OwnedFraction(id board.DistrictID) float64 {
	d, ok := r.b.District(id)
	if !ok || len(d.Shops) == 0 {
		return 0
	}
	return float64(r.ownedCount[id]) / float64(len(d.Shops))
}
