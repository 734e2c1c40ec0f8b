package maxprice

import (
	"context"

	"github.com/iwvelando/hitas-engine/internal/indices"
	"github.com/iwvelando/hitas-engine/pkg/mathutil"
)

// surfaceAreaCeiling is the surface area price ceiling figure, shared by both
// rule sets.
type surfaceAreaCeiling struct{}

// SurfaceAreaPriceCeiling is the calculation month ceiling value times the
// apartment surface area, less the loans. It is valid until the end of the
// calculation month plus the configured months.
func (surfaceAreaCeiling) SurfaceAreaPriceCeiling(ctx context.Context, in Inputs) (IndexResult, error) {
	value, err := in.index(ctx, indices.SurfaceAreaPriceCeiling, in.CalculationMonth)
	if err != nil {
		return IndexResult{}, err
	}

	debtFree := mathutil.Round(value.Mul(in.Apartment.SurfaceArea))
	maximum := debtFree.Sub(in.LoanAmount)

	return IndexResult{
		MaximumPrice: maximum,
		ValidUntil:   in.CalculationMonth.AddMonths(in.Rules.SurfaceAreaPriceCeilingValidityMonths).LastDay(),
		CalculationVariables: SurfaceAreaPriceCeilingVariables{
			CalculationMonth:             in.CalculationMonth.String(),
			SurfaceAreaPriceCeilingValue: value,
			SurfaceArea:                  in.Apartment.SurfaceArea,
			DebtFreePrice:                debtFree,
			Loans:                        in.loans(),
			MaximumPrice:                 maximum,
		},
	}, nil
}
