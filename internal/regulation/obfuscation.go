package regulation

import (
	"sort"

	"github.com/iwvelando/hitas-engine/internal/domain"
)

// ownersToObfuscate returns the owners of the released companies' apartments
// who own no apartment in a company that is still regulated.
func ownersToObfuscate(released map[string]bool, ownerships []domain.Ownership, statuses map[string]domain.RegulationStatus) []string {
	affected := make(map[string]bool)
	stillRegulated := make(map[string]bool)
	for _, o := range ownerships {
		switch {
		case released[o.HousingCompanyID]:
			affected[o.OwnerID] = true
		case statuses[o.HousingCompanyID] == domain.Regulated:
			stillRegulated[o.OwnerID] = true
		}
	}

	owners := make([]string, 0, len(affected))
	for owner := range affected {
		if !stillRegulated[owner] {
			owners = append(owners, owner)
		}
	}
	sort.Strings(owners)
	return owners
}
