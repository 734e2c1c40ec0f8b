package domain

import "fmt"

// MissingDataReason says which apartment data a calculation could not find.
type MissingDataReason string

const (
	ReasonNoPrices               = MissingDataReason("no sales or catalog prices")
	ReasonNoSurfaceArea          = MissingDataReason("no surface area")
	ReasonNoPricesNorSurfaceArea = MissingDataReason("no sales, catalog prices, or surface area")
)

// MissingApartmentDataError is returned when an apartment lacks the data its
// price contribution needs.
type MissingApartmentDataError struct {
	Apartment string
	Reason    MissingDataReason
}

func (e *MissingApartmentDataError) Error() string {
	return fmt.Sprintf("apartment %s has %s", e.Apartment, e.Reason)
}
