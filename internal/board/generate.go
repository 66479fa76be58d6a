// Procedural board generation: a square loop with noise-jittered shop
// prices, deterministic from a seed.
package board

import (
	"fmt"
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds board generation parameters.
type GenConfig struct {
	Seed int64
	// DistrictCount districts of ShopsPerDistrict shops each are laid
	// around the loop, separated by chance and neutral tiles, with a
	// single bank at index 0.
	DistrictCount    int
	ShopsPerDistrict int
	// MeanPrice is the price a flat noise field would produce;
	// PriceSpread is the maximum deviation either way.
	MeanPrice   int
	PriceSpread int
	SharePool   int
}

// DefaultGenConfig is the standard board shape: four districts of two
// shops around a sixteen-tile loop.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Seed:             0,
		DistrictCount:    4,
		ShopsPerDistrict: 2,
		MeanPrice:        300,
		PriceSpread:      60,
		SharePool:        50,
	}
}

var districtNames = []string{
	"Downtown", "Plaza", "Harbor", "Grove",
	"Foundry", "Meadow", "Summit", "Canal",
}

// Generate builds a board from the configuration. The same seed always
// yields the same board.
func Generate(cfg GenConfig) (*Board, error) {
	if cfg.DistrictCount < 1 || cfg.DistrictCount > len(districtNames) {
		return nil, fmt.Errorf("generate: district count %d out of range 1..%d", cfg.DistrictCount, len(districtNames))
	}
	if cfg.ShopsPerDistrict < 1 {
		return nil, fmt.Errorf("generate: shops per district %d must be positive", cfg.ShopsPerDistrict)
	}
	if cfg.MeanPrice <= cfg.PriceSpread {
		return nil, fmt.Errorf("generate: mean price %d must exceed spread %d", cfg.MeanPrice, cfg.PriceSpread)
	}

	priceNoise := opensimplex.NewNormalized(cfg.Seed)

	var tiles []Tile
	tiles = append(tiles, Tile{Kind: TileBank})

	districts := make([]District, 0, cfg.DistrictCount)
	for d := 0; d < cfg.DistrictCount; d++ {
		id := DistrictID(districtNames[d])
		suit := Suit(d % NumSuits)

		for s := 0; s < cfg.ShopsPerDistrict; s++ {
			// Sample the noise field along the loop so neighboring
			// shops get correlated prices.
			x := float64(len(tiles)) * 0.35
			n := priceNoise.Eval2(x, float64(d))
			price := cfg.MeanPrice + int(math.Round((n*2-1)*float64(cfg.PriceSpread)))
			price = (price / 10) * 10

			tiles = append(tiles, Tile{Kind: TileShop, Shop: &Shop{
				BasePrice: price,
				FeeMult:   DefaultFeeMult,
				Suit:      suit,
				District:  id,
			}})
		}
		tiles = append(tiles, Tile{Kind: TileChance})

		// Share price tracks the district's shop prices.
		districts = append(districts, District{
			ID:        id,
			SharePool: cfg.SharePool,
			BasePrice: cfg.MeanPrice / 15,
		})
	}

	// Pad with neutral tiles so the loop length is a multiple of four,
	// keeping the loop square.
	for len(tiles)%4 != 0 {
		tiles = append(tiles, Tile{Kind: TileNeutral})
	}

	return New(tiles, districts)
}
