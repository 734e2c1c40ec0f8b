package regulation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iwvelando/hitas-engine/pkg/datetime"
)

// ErrMissingExternalSalesData is returned when no external sales data has
// been stored for the calculation quarter.
var ErrMissingExternalSalesData = errors.New("external sales data missing for the calculation quarter")

// ZeroSurfaceAreaError is returned when a compared housing company has no
// surface area to divide its acquisition price by.
type ZeroSurfaceAreaError struct {
	HousingCompany string
}

func (e *ZeroSurfaceAreaError) Error() string {
	return fmt.Sprintf("housing company %s has zero surface area", e.HousingCompany)
}

// ZeroAveragePriceError lists the housing companies whose average price per
// square meter came out as zero.
type ZeroAveragePriceError struct {
	HousingCompanies []string
}

func (e *ZeroAveragePriceError) Error() string {
	return fmt.Sprintf("average price per square meter is zero for housing companies: %s", strings.Join(e.HousingCompanies, ", "))
}

// DuplicateRegulationError is returned when a quarter has already been run.
type DuplicateRegulationError struct {
	Quarter datetime.Quarter
}

func (e *DuplicateRegulationError) Error() string {
	return fmt.Sprintf("regulation already made for %s", e.Quarter)
}
