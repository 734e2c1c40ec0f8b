package maxprice

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CalculateAll runs independent calculations on at most workers goroutines.
// Results are returned in request order. The first failure cancels the rest
// and is returned alone. With a recorder set, results are recorded only after
// every calculation of the batch has succeeded.
func (e *Engine) CalculateAll(ctx context.Context, reqs []Request, workers int) ([]*Result, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]*Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range reqs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := e.calculate(gctx, reqs[i])
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch calculation failed: %w", err)
	}
	for _, result := range results {
		if err := e.record(ctx, result); err != nil {
			return nil, err
		}
	}

	e.logger.Info(fmt.Sprintf("calculated %d maximum prices", len(results)),
		zap.String("op", "maxprice.CalculateAll"),
		zap.Int("workers", workers),
	)
	return results, nil
}
