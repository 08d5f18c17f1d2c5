package datasource

import (
	"iter"
	"sort"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// InMemoryDataSource serves bars from a slice. It backs provider-fetched
// runs (bars downloaded once, simulated immediately) and synthetic series in
// tests.
type InMemoryDataSource struct {
	bars []types.Bar
}

// NewInMemoryDataSource creates a data source over the given bars. The bars
// are sorted by time once and never mutated afterwards.
func NewInMemoryDataSource(bars []types.Bar) DataSource {
	sorted := make([]types.Bar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	return &InMemoryDataSource{bars: sorted}
}

// Initialize implements DataSource. The in-memory source is constructed from
// bars directly and has nothing to load.
func (d *InMemoryDataSource) Initialize(path string) error {
	return nil
}

// ReadAll implements DataSource.
func (d *InMemoryDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) iter.Seq2[types.Bar, error] {
	return func(yield func(types.Bar, error) bool) {
		for _, bar := range d.bars {
			if !inRange(bar.Time, start, end) {
				continue
			}

			if !yield(bar, nil) {
				return
			}
		}
	}
}

// ReadLastData implements DataSource.
func (d *InMemoryDataSource) ReadLastData(symbol string) (types.Bar, error) {
	for i := len(d.bars) - 1; i >= 0; i-- {
		if d.bars[i].Symbol == symbol {
			return d.bars[i], nil
		}
	}

	return types.Bar{}, errors.Newf(errors.ErrCodeDataNotFound, "no bars found for symbol %s", symbol)
}

// Count implements DataSource.
func (d *InMemoryDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	count := 0

	for _, bar := range d.bars {
		if inRange(bar.Time, start, end) {
			count++
		}
	}

	return count, nil
}

// Close implements DataSource.
func (d *InMemoryDataSource) Close() error {
	return nil
}

func inRange(t time.Time, start optional.Option[time.Time], end optional.Option[time.Time]) bool {
	if start.IsSome() && t.Before(start.Unwrap()) {
		return false
	}

	if end.IsSome() && t.After(end.Unwrap()) {
		return false
	}

	return true
}
