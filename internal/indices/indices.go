// Package indices defines the month-keyed price index series consumed by the
// calculations and the lookups used to read them.
package indices

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/iwvelando/hitas-engine/pkg/datetime"
	"github.com/shopspring/decimal"
)

// Series names one of the five independent index series.
type Series string

const (
	ConstructionPriceIndex             Series = "construction_price_index"
	MarketPriceIndex                   Series = "market_price_index"
	ConstructionPriceIndex2005Equal100 Series = "construction_price_index_2005_equal_100"
	MarketPriceIndex2005Equal100       Series = "market_price_index_2005_equal_100"
	SurfaceAreaPriceCeiling            Series = "surface_area_price_ceiling"
)

// AllSeries lists every known series.
var AllSeries = []Series{
	ConstructionPriceIndex,
	MarketPriceIndex,
	ConstructionPriceIndex2005Equal100,
	MarketPriceIndex2005Equal100,
	SurfaceAreaPriceCeiling,
}

// ParseSeries validates a series name.
func ParseSeries(value string) (Series, error) {
	for _, s := range AllSeries {
		if string(s) == value {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown index series %q", value)
}

// MissingIndexError is returned when a calculation needs a (series, month)
// pair that has no stored value.
type MissingIndexError struct {
	Series Series
	Month  datetime.Month
}

func (e *MissingIndexError) Error() string {
	return fmt.Sprintf("missing index value: %s for %s", e.Series, e.Month)
}

// IsMissingIndex reports whether err is or wraps a MissingIndexError.
func IsMissingIndex(err error) bool {
	var missing *MissingIndexError
	return errors.As(err, &missing)
}

// Value is one stored index value.
type Value struct {
	Series Series
	Month  datetime.Month
	Value  decimal.Decimal
}

// Request identifies one (series, month) lookup.
type Request struct {
	Series Series
	Month  datetime.Month
}

// Repository looks up index values. Implementations return a
// *MissingIndexError when no value is stored for the pair.
type Repository interface {
	Get(ctx context.Context, series Series, month datetime.Month) (decimal.Decimal, error)
}

type key struct {
	series Series
	month  datetime.Month
}

// MemoryRepository is a Repository backed by a map. It is safe for concurrent
// reads once populated.
type MemoryRepository struct {
	mu     sync.RWMutex
	values map[key]decimal.Decimal
}

// NewMemoryRepository creates a repository holding the given values.
func NewMemoryRepository(values ...Value) *MemoryRepository {
	r := &MemoryRepository{values: make(map[key]decimal.Decimal, len(values))}
	for _, v := range values {
		r.values[key{v.Series, v.Month}] = v.Value
	}
	return r
}

// Set stores a value, replacing any previous one.
func (r *MemoryRepository) Set(series Series, month datetime.Month, value decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key{series, month}] = value
}

// Get implements Repository.
func (r *MemoryRepository) Get(_ context.Context, series Series, month datetime.Month) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[key{series, month}]
	if !ok {
		return decimal.Zero, &MissingIndexError{Series: series, Month: month}
	}
	return v, nil
}

// Values returns every stored value ordered by series then month.
func (r *MemoryRepository) Values() []Value {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Value, 0, len(r.values))
	for k, v := range r.values {
		out = append(out, Value{Series: k.series, Month: k.month, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Series != out[j].Series {
			return out[i].Series < out[j].Series
		}
		return out[i].Month.Before(out[j].Month)
	})
	return out
}

// Snapshot is a read-only set of index values fetched once up front, so every
// consumer of one run sees identical reference data.
type Snapshot struct {
	values map[key]decimal.Decimal
}

// Prefetch reads every requested pair from repo. The first missing pair fails
// the whole fetch.
func Prefetch(ctx context.Context, repo Repository, requests []Request) (*Snapshot, error) {
	s := &Snapshot{values: make(map[key]decimal.Decimal, len(requests))}
	for _, req := range requests {
		k := key{req.Series, req.Month}
		if _, ok := s.values[k]; ok {
			continue
		}
		v, err := repo.Get(ctx, req.Series, req.Month)
		if err != nil {
			return nil, err
		}
		s.values[k] = v
	}
	return s, nil
}

// Get implements Repository over the prefetched values only.
func (s *Snapshot) Get(_ context.Context, series Series, month datetime.Month) (decimal.Decimal, error) {
	v, ok := s.values[key{series, month}]
	if !ok {
		return decimal.Zero, &MissingIndexError{Series: series, Month: month}
	}
	return v, nil
}

// Must returns a prefetched value. It panics when the pair was not
// prefetched, which is a programming error in the caller.
func (s *Snapshot) Must(series Series, month datetime.Month) decimal.Decimal {
	v, ok := s.values[key{series, month}]
	if !ok {
		panic(fmt.Sprintf("index %s for %s was not prefetched", series, month))
	}
	return v
}
