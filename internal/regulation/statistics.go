package regulation

import (
	"github.com/iwvelando/hitas-engine/pkg/constants"
	"github.com/iwvelando/hitas-engine/pkg/datetime"
	"github.com/iwvelando/hitas-engine/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// areaTotal accumulates a sale count weighted price sum.
type areaTotal struct {
	count int64
	sum   decimal.Decimal
}

func (t *areaTotal) add(count int64, pricePerM2 decimal.Decimal) {
	t.count += count
	t.sum = t.sum.Add(pricePerM2.Mul(decimal.NewFromInt(count)))
}

// AreaStatistics holds the average sale price per square meter of each postal
// code over the quarters preceding a calculation quarter, combining internal
// resales and the external market statistics.
type AreaStatistics struct {
	Quarters []datetime.Quarter
	totals   map[string]*areaTotal
}

// NewAreaStatistics builds the statistics for the quarters preceding
// calculation. Internal first sales and sales excluded from statistics are
// left out.
func NewAreaStatistics(calculation datetime.Quarter, sales []Sale, external *ExternalSalesData) *AreaStatistics {
	s := &AreaStatistics{
		Quarters: calculation.PrecedingQuarters(constants.QuartersInStatistics),
		totals:   make(map[string]*areaTotal),
	}

	for _, sale := range sales {
		if sale.FirstSale || sale.ExcludeFromStatistics || !sale.SurfaceArea.IsPositive() {
			continue
		}
		if !s.covers(datetime.MonthOf(sale.PurchaseDate).Quarter()) {
			continue
		}
		s.total(sale.PostalCode).add(1, sale.PricePerM2())
	}

	if external != nil {
		for _, quarter := range external.Quarters {
			if !s.covers(quarter.Quarter) {
				continue
			}
			for postalCode, area := range quarter.Areas {
				if area.SaleCount <= 0 {
					continue
				}
				s.total(postalCode).add(int64(area.SaleCount), area.Price)
			}
		}
	}
	return s
}

func (s *AreaStatistics) covers(q datetime.Quarter) bool {
	for _, covered := range s.Quarters {
		if covered == q {
			return true
		}
	}
	return false
}

func (s *AreaStatistics) total(postalCode string) *areaTotal {
	t, ok := s.totals[postalCode]
	if !ok {
		t = &areaTotal{}
		s.totals[postalCode] = t
	}
	return t
}

// AveragePrice returns the sale count weighted average price per square meter
// over the given postal codes, rounded to cents. ok is false when none of
// them has any sales.
func (s *AreaStatistics) AveragePrice(postalCodes ...string) (price decimal.Decimal, ok bool) {
	var combined areaTotal
	for _, code := range postalCodes {
		if t, found := s.totals[code]; found {
			combined.count += t.count
			combined.sum = combined.sum.Add(t.sum)
		}
	}
	if combined.count == 0 {
		return decimal.Zero, false
	}
	return mathutil.Round(combined.sum.Div(decimal.NewFromInt(combined.count))), true
}
