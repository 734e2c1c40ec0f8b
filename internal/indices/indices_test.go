package indices

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/iwvelando/hitas-engine/pkg/datetime"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepositoryGet(t *testing.T) {
	month := datetime.MustParseMonth("2022-07")
	repo := NewMemoryRepository(Value{Series: ConstructionPriceIndex2005Equal100, Month: month, Value: decimal.RequireFromString("146.4")})

	v, err := repo.Get(context.Background(), ConstructionPriceIndex2005Equal100, month)
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.RequireFromString("146.4")))

	_, err = repo.Get(context.Background(), MarketPriceIndex2005Equal100, month)
	require.Error(t, err)

	var missing *MissingIndexError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, MarketPriceIndex2005Equal100, missing.Series)
	assert.Equal(t, month, missing.Month)
	assert.Equal(t, "missing index value: market_price_index_2005_equal_100 for 2022-07", err.Error())
}

func TestIsMissingIndexWrapped(t *testing.T) {
	err := fmt.Errorf("calculation failed: %w", &MissingIndexError{Series: SurfaceAreaPriceCeiling, Month: datetime.MustParseMonth("2022-07")})
	assert.True(t, IsMissingIndex(err))
	assert.False(t, IsMissingIndex(errors.New("other")))
}

func TestPrefetch(t *testing.T) {
	jul := datetime.MustParseMonth("2022-07")
	nov := datetime.MustParseMonth("2019-11")
	repo := NewMemoryRepository(
		Value{Series: MarketPriceIndex, Month: jul, Value: decimal.NewFromInt(200)},
		Value{Series: MarketPriceIndex, Month: nov, Value: decimal.NewFromInt(180)},
	)

	snapshot, err := Prefetch(context.Background(), repo, []Request{
		{Series: MarketPriceIndex, Month: jul},
		{Series: MarketPriceIndex, Month: nov},
		{Series: MarketPriceIndex, Month: jul},
	})
	require.NoError(t, err)
	assert.True(t, snapshot.Must(MarketPriceIndex, nov).Equal(decimal.NewFromInt(180)))

	// later changes to the repository do not leak into the snapshot
	repo.Set(MarketPriceIndex, jul, decimal.NewFromInt(999))
	v, err := snapshot.Get(context.Background(), MarketPriceIndex, jul)
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.NewFromInt(200)))

	_, err = Prefetch(context.Background(), repo, []Request{{Series: SurfaceAreaPriceCeiling, Month: jul}})
	assert.True(t, IsMissingIndex(err))
}

func TestParseSeries(t *testing.T) {
	s, err := ParseSeries("surface_area_price_ceiling")
	require.NoError(t, err)
	assert.Equal(t, SurfaceAreaPriceCeiling, s)

	_, err = ParseSeries("consumer_price_index")
	assert.Error(t, err)
}

func TestValuesOrdered(t *testing.T) {
	repo := NewMemoryRepository(
		Value{Series: MarketPriceIndex, Month: datetime.MustParseMonth("2022-07"), Value: decimal.NewFromInt(2)},
		Value{Series: ConstructionPriceIndex, Month: datetime.MustParseMonth("2022-07"), Value: decimal.NewFromInt(3)},
		Value{Series: MarketPriceIndex, Month: datetime.MustParseMonth("2021-07"), Value: decimal.NewFromInt(1)},
	)
	values := repo.Values()
	require.Len(t, values, 3)
	assert.Equal(t, ConstructionPriceIndex, values[0].Series)
	assert.Equal(t, "2021-07", values[1].Month.String())
	assert.Equal(t, "2022-07", values[2].Month.String())
}
