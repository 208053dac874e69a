package fixedpoint

import (
	"errors"
	"math"
	"testing"

	"github.com/holiman/uint256"

	"ammcore/internal/ammerr"
)

func TestSqrt(t *testing.T) {
	cases := map[uint64]uint64{
		0:                  0,
		1:                  1,
		2:                  1,
		3:                  1,
		4:                  2,
		8:                  2,
		9:                  3,
		1_000_000_000_000:  1_000_000,
		999_999_999_999:    999_999,
		math.MaxUint64:     4294967295,
	}
	for in, want := range cases {
		got := Sqrt(uint256.NewInt(in))
		if got.Uint64() != want {
			t.Fatalf("sqrt(%d) = %d, want %d", in, got.Uint64(), want)
		}
	}
}

func TestSqrtProductMaxInputs(t *testing.T) {
	got := SqrtProduct(math.MaxUint64, math.MaxUint64)
	// (2^64-1)^2 is a perfect square.
	if got != math.MaxUint64 {
		t.Fatalf("sqrt(max*max) = %d", got)
	}
}

func TestMulDiv(t *testing.T) {
	got, err := MulDiv(math.MaxUint64, math.MaxUint64, math.MaxUint64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != math.MaxUint64 {
		t.Fatalf("mul_div = %d", got)
	}

	got, err = MulDiv(7, 3, 2)
	if err != nil || got != 10 {
		t.Fatalf("mul_div floor = %d, %v", got, err)
	}

	if _, err := MulDiv(math.MaxUint64, 2, 1); !errors.Is(err, ammerr.ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := MulDiv(1, 1, 0); !errors.Is(err, ammerr.ErrZeroAmount) {
		t.Fatalf("expected zero amount, got %v", err)
	}
}

func TestMulDivUp(t *testing.T) {
	got, err := MulDivUp(7, 3, 2)
	if err != nil || got != 11 {
		t.Fatalf("mul_div_up = %d, %v", got, err)
	}
	got, err = MulDivUp(8, 3, 2)
	if err != nil || got != 12 {
		t.Fatalf("mul_div_up exact = %d, %v", got, err)
	}
}

func TestQuote(t *testing.T) {
	got, err := Quote(100, 1_000, 3_000)
	if err != nil || got != 300 {
		t.Fatalf("quote = %d, %v", got, err)
	}

	zeroCases := [][3]uint64{{0, 1, 1}, {1, 0, 1}, {1, 1, 0}}
	for _, c := range zeroCases {
		if _, err := Quote(c[0], c[1], c[2]); !errors.Is(err, ammerr.ErrZeroAmount) {
			t.Fatalf("quote%v expected zero amount, got %v", c, err)
		}
	}
}

func TestApplyBps(t *testing.T) {
	got, err := ApplyBps(1_000, 30)
	if err != nil || got != 3 {
		t.Fatalf("apply bps = %d, %v", got, err)
	}
	if _, err := ApplyBps(1, 10_001); !errors.Is(err, ammerr.ErrInvalidParameter) {
		t.Fatalf("expected invalid parameter, got %v", err)
	}
}
