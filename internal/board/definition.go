package board

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON string

var defSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("board.schema.json", strings.NewReader(schemaJSON)); err != nil {
		panic(err)
	}
	return c.MustCompile("board.schema.json")
}

// Definition is the serialized form of a board, as found in board
// definition files and game archives.
type Definition struct {
	Name      string               `json:"name,omitempty"`
	Tiles     []TileDefinition     `json:"tiles"`
	Districts []DistrictDefinition `json:"districts"`
}

// TileDefinition describes one tile. The shop fields are required for
// kind "shop" and forbidden otherwise.
type TileDefinition struct {
	Kind     string  `json:"kind"`
	Price    int     `json:"price,omitempty"`
	FeeMult  float64 `json:"fee_mult,omitempty"`
	Suit     string  `json:"suit,omitempty"`
	District string  `json:"district,omitempty"`
}

// DistrictDefinition describes one district's share pool.
type DistrictDefinition struct {
	ID         string `json:"id"`
	SharePool  int    `json:"share_pool"`
	SharePrice int    `json:"share_price"`
}

// LoadDefinition reads, schema-validates, and constructs a board from a
// JSON definition file.
func LoadDefinition(path string) (*Board, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("board definition: %w", err)
	}
	return ParseDefinition(raw)
}

// ParseDefinition validates raw JSON against the board schema and
// constructs a board from it.
func ParseDefinition(raw []byte) (*Board, error) {
	var loose any
	if err := json.Unmarshal(raw, &loose); err != nil {
		return nil, fmt.Errorf("board definition: %w", err)
	}
	if err := defSchema.Validate(loose); err != nil {
		return nil, fmt.Errorf("board definition: %w", err)
	}

	var def Definition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("board definition: %w", err)
	}
	return FromDefinition(def)
}

// FromDefinition constructs a board from an already-decoded definition.
func FromDefinition(def Definition) (*Board, error) {
	tiles := make([]Tile, 0, len(def.Tiles))
	for i, td := range def.Tiles {
		var kind TileKind
		switch td.Kind {
		case "neutral":
			kind = TileNeutral
		case "chance":
			kind = TileChance
		case "bank":
			kind = TileBank
		case "shop":
			kind = TileShop
		default:
			return nil, fmt.Errorf("board definition: tile %d has unknown kind %q", i, td.Kind)
		}

		t := Tile{Kind: kind}
		if kind == TileShop {
			suit, err := ParseSuit(td.Suit)
			if err != nil {
				return nil, fmt.Errorf("board definition: tile %d: %w", i, err)
			}
			if td.District == "" {
				return nil, fmt.Errorf("board definition: shop tile %d has no district", i)
			}
			feeMult := td.FeeMult
			if feeMult == 0 {
				feeMult = DefaultFeeMult
			}
			t.Shop = &Shop{
				BasePrice: td.Price,
				FeeMult:   feeMult,
				Suit:      suit,
				District:  DistrictID(td.District),
			}
		} else if td.Price != 0 || td.Suit != "" || td.District != "" {
			return nil, fmt.Errorf("board definition: tile %d kind %q carries shop fields", i, td.Kind)
		}
		tiles = append(tiles, t)
	}

	districts := make([]District, 0, len(def.Districts))
	for _, dd := range def.Districts {
		districts = append(districts, District{
			ID:        DistrictID(dd.ID),
			SharePool: dd.SharePool,
			BasePrice: dd.SharePrice,
		})
	}

	return New(tiles, districts)
}

// DefaultFeeMult is the fee multiplier assumed when a shop definition
// omits one.
const DefaultFeeMult = 0.25

// Definition serializes the board back into its definition form, used
// when archiving games for replay.
func (b *Board) Definition() Definition {
	def := Definition{
		Tiles:     make([]TileDefinition, 0, len(b.tiles)),
		Districts: make([]DistrictDefinition, 0, len(b.order)),
	}
	for _, t := range b.tiles {
		td := TileDefinition{Kind: t.Kind.String()}
		if t.Kind == TileShop {
			td.Price = t.Shop.BasePrice
			td.FeeMult = t.Shop.FeeMult
			td.Suit = t.Shop.Suit.String()
			td.District = string(t.Shop.District)
		}
		def.Tiles = append(def.Tiles, td)
	}
	for _, id := range b.order {
		d := b.districts[id]
		def.Districts = append(def.Districts, DistrictDefinition{
			ID:         string(d.ID),
			SharePool:  d.SharePool,
			SharePrice: d.BasePrice,
		})
	}
	return def
}
