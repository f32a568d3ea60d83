package core

import (
	"errors"
	"testing"
	"time"
)

func TestPricePairValidate(t *testing.T) {
	good := PricePair{
		Pair:  Pair{Ticker1: "KO", Ticker2: "PEP"},
		Dates: []time.Time{Day(2020, 3, 2), Day(2020, 3, 3), Day(2020, 3, 4)},
		P1:    []float64{47.5, 47.9, 48.1},
		P2:    []float64{132.3, 133.1, 132.8},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	short := good
	short.P2 = short.P2[:2]
	if err := short.Validate(); !errors.Is(err, ErrDataAlignment) {
		t.Errorf("length mismatch err = %v, want ErrDataAlignment", err)
	}

	dup := good
	dup.Dates = []time.Time{Day(2020, 3, 2), Day(2020, 3, 2), Day(2020, 3, 4)}
	if err := dup.Validate(); !errors.Is(err, ErrDataAlignment) {
		t.Errorf("duplicate date err = %v, want ErrDataAlignment", err)
	}

	if err := (PricePair{}).Validate(); err != nil {
		t.Errorf("empty pair Validate: %v", err)
	}
}

func TestPairString(t *testing.T) {
	p := Pair{Ticker1: "KO", Ticker2: "PEP"}
	if p.String() != "KO_PEP" {
		t.Errorf("String = %q, want KO_PEP", p.String())
	}
}

func TestDateKey(t *testing.T) {
	if k := DateKey(Day(2019, time.June, 3)); k != "20190603" {
		t.Errorf("DateKey = %q, want 20190603", k)
	}
}

func TestErrorMatching(t *testing.T) {
	wrapped := WrapError(ErrStorageFailed, errors.New("disk full"))
	if !errors.Is(wrapped, ErrStorageFailed) {
		t.Error("wrapped error does not match its base")
	}
	if errors.Is(wrapped, ErrTradeNotFound) {
		t.Error("wrapped error matches an unrelated base")
	}
	if got := wrapped.Error(); got != "[STORAGE_FAILED] ledger storage failed: disk full" {
		t.Errorf("Error() = %q", got)
	}
}
