package maxprice

import (
	"fmt"
	"time"

	"github.com/iwvelando/hitas-engine/pkg/constants"
)

// InvalidLoanDateError is returned when the housing company loans are valued
// before the apartment was first sold.
type InvalidLoanDateError struct {
	LoanDate      time.Time
	FirstSaleDate time.Time
}

func (e *InvalidLoanDateError) Error() string {
	return fmt.Sprintf("loan date %s is before the first sale date %s",
		e.LoanDate.Format(constants.DateLayout), e.FirstSaleDate.Format(constants.DateLayout))
}
