package config

import (
	"fmt"

	"github.com/iwvelando/hitas-engine/internal/improvements"
	"github.com/iwvelando/hitas-engine/internal/maxprice"
	"github.com/iwvelando/hitas-engine/pkg/datetime"
)

// Thresholds converts the excess settings into the improvement valuation form.
func (r RulesConfig) Thresholds() (improvements.Thresholds, error) {
	cutoff, err := datetime.ParseDate(r.ImprovementCutoffDate)
	if err != nil {
		return improvements.Thresholds{}, fmt.Errorf("rules.improvementCutoffDate: %w", err)
	}
	return improvements.Thresholds{
		Cutoff:            datetime.MonthOf(cutoff),
		BeforeCutoffPerM2: r.ExcessBefore2010PerM2,
		AfterCutoffPerM2:  r.ExcessAfter2010PerM2,
		Rules2011PerM2:    r.Excess2011PerM2,
	}, nil
}

// ToMaxPriceRules converts the rules section into the engine's Rules.
func (r RulesConfig) ToMaxPriceRules() (maxprice.Rules, error) {
	thresholds, err := r.Thresholds()
	if err != nil {
		return maxprice.Rules{}, err
	}
	return maxprice.Rules{
		Thresholds:                            thresholds,
		IndexValidityMonths:                   r.IndexValidityMonths,
		SurfaceAreaPriceCeilingValidityMonths: r.SurfaceAreaPriceCeilingValidityMonths,
	}, nil
}
