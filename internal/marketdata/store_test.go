package marketdata

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/statarb/pairbt/internal/core"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "prices.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_UpsertAndPrices(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	start := core.Day(2020, time.March, 2)

	if err := s.Upsert(ctx, "KO", points(start, 47.5, 47.9, 48.1)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Prices(ctx, "KO", start, start.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("Prices: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d points, want 3", len(got))
	}
	if !got[0].Date.Equal(start) || got[0].Price != 47.5 {
		t.Errorf("first point = %+v", got[0])
	}
	if got[2].Price != 48.1 {
		t.Errorf("last point = %+v", got[2])
	}
}

func TestStore_UpsertReplacesExistingDay(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	day := core.Day(2020, time.March, 2)

	if err := s.Upsert(ctx, "KO", []core.PricePoint{{Date: day, Price: 47.5}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	// a corrected adjusted close overwrites the prior value
	if err := s.Upsert(ctx, "KO", []core.PricePoint{{Date: day, Price: 46.8}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Prices(ctx, "KO", day, day)
	if err != nil {
		t.Fatalf("Prices: %v", err)
	}
	if len(got) != 1 || got[0].Price != 46.8 {
		t.Fatalf("got %+v, want single corrected point", got)
	}
}

func TestStore_PricesRangeIsInclusive(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	start := core.Day(2020, time.March, 2)

	if err := s.Upsert(ctx, "KO", points(start, 1, 2, 3, 4, 5)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Prices(ctx, "KO", start.AddDate(0, 0, 1), start.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("Prices: %v", err)
	}
	if len(got) != 3 || got[0].Price != 2 || got[2].Price != 4 {
		t.Fatalf("got %+v, want days 2 through 4", got)
	}
}

func TestStore_PricesNoData(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	start := core.Day(2020, time.March, 2)

	// unknown ticker
	if _, err := s.Prices(ctx, "XXX", start, start); !errors.Is(err, core.ErrNoData) {
		t.Errorf("unknown ticker err = %v, want ErrNoData", err)
	}

	// known ticker, empty range
	if err := s.Upsert(ctx, "KO", points(start, 47.5)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, err := s.Prices(ctx, "KO", start.AddDate(0, 0, 10), start.AddDate(0, 0, 20)); !errors.Is(err, core.ErrNoData) {
		t.Errorf("empty range err = %v, want ErrNoData", err)
	}
}

func TestStore_LoadPair(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	start := core.Day(2020, time.March, 2)
	pair := core.Pair{Ticker1: "KO", Ticker2: "PEP"}

	if err := s.Upsert(ctx, "KO", points(start, 47.5, 47.9, 48.1)); err != nil {
		t.Fatalf("Upsert KO: %v", err)
	}
	if err := s.Upsert(ctx, "PEP", points(start, 132.3, 133.1, 132.8)); err != nil {
		t.Fatalf("Upsert PEP: %v", err)
	}

	pp, err := s.LoadPair(ctx, pair, start, start.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("LoadPair: %v", err)
	}
	if pp.Len() != 3 {
		t.Fatalf("Len = %d, want 3", pp.Len())
	}
	if pp.Pair != pair {
		t.Errorf("Pair = %+v, want %+v", pp.Pair, pair)
	}
	if pp.P1[0] != 47.5 || pp.P2[0] != 132.3 {
		t.Errorf("first row = %v/%v", pp.P1[0], pp.P2[0])
	}

	if _, err := s.LoadPair(ctx, core.Pair{Ticker1: "KO", Ticker2: "XXX"}, start, start); !errors.Is(err, core.ErrNoData) {
		t.Errorf("missing leg err = %v, want ErrNoData", err)
	}
}
