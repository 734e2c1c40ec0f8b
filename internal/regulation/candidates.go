package regulation

import (
	"github.com/iwvelando/hitas-engine/internal/domain"
	"github.com/iwvelando/hitas-engine/pkg/constants"
	"github.com/iwvelando/hitas-engine/pkg/datetime"
)

// SelectCandidates returns the regulated companies completed exactly thirty
// years before the calculation month that have not been decided yet.
func SelectCandidates(companies []CompanyFacts, calculation datetime.Month, decided map[string]bool) []CompanyFacts {
	target := calculation.AddMonths(-constants.RegulationYears * constants.MonthsPerYear)

	var candidates []CompanyFacts
	for _, c := range companies {
		if c.HousingCompany.RegulationStatus != domain.Regulated || decided[c.HousingCompany.ID] {
			continue
		}
		completion := c.CompletionDate()
		if completion == nil || datetime.MonthOf(*completion) != target {
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates
}
