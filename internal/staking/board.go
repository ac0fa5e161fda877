package staking

import (
	"fmt"

	"hashstake/dashboard/internal/models"
)

// Board is the stake board: one TierCard per tier, all reading the panel's
// decoded stake records
type Board struct {
	panel *Panel
	cards [3]*TierCard
}

func newBoard(p *Panel) *Board {
	b := &Board{panel: p}
	for _, tier := range models.Tiers {
		b.cards[tier.Index()] = newTierCard(tier, p)
	}
	return b
}

// Card returns the card of a tier
func (b *Board) Card(tier models.TierID) (*TierCard, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("unknown tier %d", tier)
	}
	return b.cards[tier.Index()], nil
}

// Cards returns the cards in tier order
func (b *Board) Cards() [3]*TierCard {
	return b.cards
}
