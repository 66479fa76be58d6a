// Package board provides the static board model: an ordered cycle of
// typed tiles plus the districts that group shop tiles into a share
// economy. Boards are validated at construction and never mutated.
package board

import (
	"fmt"
	"sort"
)

// Suit is one of the four collectible symbols.
type Suit uint8

const (
	SuitSpade Suit = iota
	SuitHeart
	SuitDiamond
	SuitClub

	// NumSuits is the size of a complete suit set.
	NumSuits = 4
)

// String returns the lowercase suit name.
func (s Suit) String() string {
	switch s {
	case SuitSpade:
		return "spade"
	case SuitHeart:
		return "heart"
	case SuitDiamond:
		return "diamond"
	case SuitClub:
		return "club"
	}
	return fmt.Sprintf("suit(%d)", uint8(s))
}

// Icon returns the card symbol for UI layers.
func (s Suit) Icon() string {
	switch s {
	case SuitSpade:
		return "♠"
	case SuitHeart:
		return "♥"
	case SuitDiamond:
		return "♦"
	case SuitClub:
		return "♣"
	}
	return "?"
}

// ParseSuit maps a suit name to its symbol.
func ParseSuit(name string) (Suit, error) {
	switch name {
	case "spade":
		return SuitSpade, nil
	case "heart":
		return SuitHeart, nil
	case "diamond":
		return SuitDiamond, nil
	case "club":
		return SuitClub, nil
	}
	return 0, fmt.Errorf("unknown suit %q", name)
}

// DistrictID names a district.
type DistrictID string

// TileKind is the closed set of tile variants. Tile resolution is an
// exhaustive switch over these values.
type TileKind uint8

const (
	TileNeutral TileKind = iota
	TileShop
	TileChance
	TileBank
)

// String returns the tile kind name.
func (k TileKind) String() string {
	switch k {
	case TileNeutral:
		return "neutral"
	case TileShop:
		return "shop"
	case TileChance:
		return "chance"
	case TileBank:
		return "bank"
	}
	return fmt.Sprintf("tile(%d)", uint8(k))
}

// Shop is the payload carried by a shop tile.
type Shop struct {
	BasePrice int
	// FeeMult scales the fee charged to visitors, as a fraction of
	// the shop's current valuation.
	FeeMult  float64
	Suit     Suit
	District DistrictID
}

// Tile is one position on the board cycle. Shop is non-nil exactly when
// Kind is TileShop.
type Tile struct {
	Index int
	Kind  TileKind
	Shop  *Shop
}

// District groups shop tiles whose collective ownership drives a
// tradeable share price.
type District struct {
	ID DistrictID
	// Shops lists the member shop tile indices in board order.
	Shops []int
	// SharePool is the fixed total share capacity.
	SharePool int
	// BasePrice is the share price when no member shop is owned.
	BasePrice int
}

// Board is the immutable topology for one game.
type Board struct {
	tiles     []Tile
	districts map[DistrictID]*District
	order     []DistrictID
}

// New validates tiles and districts and assembles a board. It fails on
// an empty cycle, a shop referencing an unknown district, a district
// member that is out of range or not a shop, or a non-positive share
// pool or base price.
func New(tiles []Tile, districts []District) (*Board, error) {
	if len(tiles) == 0 {
		return nil, fmt.Errorf("board: empty tile cycle")
	}

	byID := make(map[DistrictID]*District, len(districts))
	order := make([]DistrictID, 0, len(districts))
	for i := range districts {
		d := districts[i]
		if d.ID == "" {
			return nil, fmt.Errorf("board: district %d has no id", i)
		}
		if _, dup := byID[d.ID]; dup {
			return nil, fmt.Errorf("board: duplicate district %q", d.ID)
		}
		if d.SharePool <= 0 {
			return nil, fmt.Errorf("board: district %q share pool must be positive, got %d", d.ID, d.SharePool)
		}
		if d.BasePrice <= 0 {
			return nil, fmt.Errorf("board: district %q base share price must be positive, got %d", d.ID, d.BasePrice)
		}
		cp := d
		cp.Shops = nil
		byID[d.ID] = &cp
		order = append(order, d.ID)
	}

	// The board owns its tiles: copy the slice and every shop payload
	// so later caller mutations cannot reach them.
	tiles = append([]Tile(nil), tiles...)
	for i := range tiles {
		t := &tiles[i]
		if t.Shop != nil {
			shop := *t.Shop
			t.Shop = &shop
		}
		t.Index = i
		if (t.Kind == TileShop) != (t.Shop != nil) {
			return nil, fmt.Errorf("board: tile %d kind %s with mismatched shop payload", i, t.Kind)
		}
		if t.Kind != TileShop {
			continue
		}
		if t.Shop.BasePrice <= 0 {
			return nil, fmt.Errorf("board: shop %d base price must be positive, got %d", i, t.Shop.BasePrice)
		}
		if t.Shop.FeeMult < 0 {
			return nil, fmt.Errorf("board: shop %d negative fee multiplier %v", i, t.Shop.FeeMult)
		}
		if t.Shop.Suit >= NumSuits {
			return nil, fmt.Errorf("board: shop %d has invalid suit %d", i, t.Shop.Suit)
		}
		d, ok := byID[t.Shop.District]
		if !ok {
			return nil, fmt.Errorf("board: shop %d references unknown district %q", i, t.Shop.District)
		}
		d.Shops = append(d.Shops, i)
	}

	for _, id := range order {
		d := byID[id]
		if len(d.Shops) == 0 {
			return nil, fmt.Errorf("board: district %q has no member shops", id)
		}
		sort.Ints(d.Shops)
	}

	return &Board{tiles: tiles, districts: byID, order: order}, nil
}

// CycleLength returns the number of tiles in the loop.
func (b *Board) CycleLength() int { return len(b.tiles) }

// TileAt returns the tile at index i. i must be in 0..CycleLength-1.
func (b *Board) TileAt(i int) Tile { return b.tiles[i] }

// ShopAt returns the shop payload at tile i, or false for non-shop
// tiles.
func (b *Board) ShopAt(i int) (*Shop, bool) {
	if i < 0 || i >= len(b.tiles) || b.tiles[i].Kind != TileShop {
		return nil, false
	}
	return b.tiles[i].Shop, true
}

// District returns the district with the given id.
func (b *Board) District(id DistrictID) (*District, bool) {
	d, ok := b.districts[id]
	return d, ok
}

// Districts returns all districts in definition order.
func (b *Board) Districts() []*District {
	out := make([]*District, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.districts[id])
	}
	return out
}
