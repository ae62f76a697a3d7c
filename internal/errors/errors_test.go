package errors

import (
	"fmt"
	"math"
	"testing"
)

func TestInvalidRecordErrorMatchesSentinels(t *testing.T) {
	err := fmt.Errorf("aggregating: %w", NewInvalidRecordError("t1", "exit_price", "closed trade without exit price"))
	if !Is(err, ErrInvalidRecord) {
		t.Error("expected ErrInvalidRecord in chain")
	}
	if Is(err, ErrNonFinite) {
		t.Error("did not expect ErrNonFinite")
	}

	nf := NewNonFiniteError("t2", "pnl", math.NaN())
	if !Is(nf, ErrNonFinite) || !Is(nf, ErrInvalidRecord) {
		t.Errorf("non-finite error should match both sentinels: %v", nf)
	}

	var rec *InvalidRecordError
	if !As(err, &rec) || rec.RecordID != "t1" {
		t.Errorf("As failed: %+v", rec)
	}
}

func TestConfigurationError(t *testing.T) {
	err := NewConfigurationError("rules", 0, "rule enumeration must not be empty")
	if !Is(err, ErrConfigInvalid) {
		t.Error("expected ErrConfigInvalid")
	}
	want := "configuration error: rules (0): rule enumeration must not be empty"
	if err.Error() != want {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}
}
