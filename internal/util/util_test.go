package util_test

import (
	"errors"
	"testing"
	"time"

	"github.com/derickschaefer/stockcast/internal/util"
)

func TestParseDate(t *testing.T) {
	got, err := util.ParseDate("2025-03-04")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if !got.Equal(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("got %v", got)
	}

	got, err = util.ParseDate("2025-03-04T10:00:00+02:00")
	if err != nil {
		t.Fatalf("ParseDate RFC3339: %v", err)
	}
	if got.Hour() != 8 || got.Location() != time.UTC {
		t.Errorf("expected 08:00 UTC, got %v", got)
	}

	if _, err := util.ParseDate("03/04/2025"); err == nil {
		t.Error("expected error for unsupported layout")
	}
}

func TestFormatDateUndated(t *testing.T) {
	if got := util.FormatDate(time.Time{}); got != "-" {
		t.Errorf("FormatDate(zero) = %q, want -", got)
	}
}

func TestParseQuantity(t *testing.T) {
	if v, err := util.ParseQuantity(" 12.5 "); err != nil || v != 12.5 {
		t.Errorf("ParseQuantity: got %v, %v", v, err)
	}
	for _, bad := range []string{"", "x", "NaN", "Inf"} {
		if _, err := util.ParseQuantity(bad); err == nil {
			t.Errorf("ParseQuantity(%q) should fail", bad)
		}
	}
}

func TestFormatQuantity(t *testing.T) {
	if got := util.FormatQuantity(3.14159); got != "3.14" {
		t.Errorf("got %q, want 3.14", got)
	}
	if got := util.FormatQuantity(7); got != "7" {
		t.Errorf("got %q, want 7", got)
	}
}

func TestMultiError(t *testing.T) {
	var m util.MultiError
	if m.Err() != nil {
		t.Error("empty MultiError should be nil")
	}
	sentinel := errors.New("boom")
	m.Add(nil)
	m.Add(sentinel)
	m.Add(errors.New("bang"))
	err := m.Err()
	if err == nil || err.Error() != "boom; bang" {
		t.Errorf("unexpected error: %v", err)
	}
	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should see collected errors")
	}
}
