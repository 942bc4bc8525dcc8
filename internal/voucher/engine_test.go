package voucher

import (
	"errors"
	"testing"
	"time"
)

func TestDiscountPercentageClampedToCap(t *testing.T) {
	v := &Voucher{Code: "SALE20", DiscountType: TypePercentage, DiscountValue: 20, MaxDiscount: 200_000}
	discount := Discount(v, 2_000_000, time.Now())
	if discount != 200_000 {
		t.Fatalf("expected discount clamped to 200000, got %d", discount)
	}
}

func TestDiscountPercentageUncapped(t *testing.T) {
	v := &Voucher{Code: "SALE20", DiscountType: TypePercentage, DiscountValue: 20}
	discount := Discount(v, 2_000_000, time.Now())
	if discount != 400_000 {
		t.Fatalf("expected 400000, got %d", discount)
	}
}

func TestDiscountFixedClampedToSubtotal(t *testing.T) {
	v := &Voucher{Code: "MINUS50", DiscountType: TypeFixed, DiscountValue: 50_000}
	discount := Discount(v, 30_000, time.Now())
	if discount != 30_000 {
		t.Fatalf("expected discount clamped to subtotal 30000, got %d", discount)
	}
}

func TestDiscountBelowMinimumSpend(t *testing.T) {
	v := &Voucher{Code: "BIG", DiscountType: TypeFixed, DiscountValue: 100_000, MinOrderAmount: 500_000}
	if got := Discount(v, 400_000, time.Now()); got != 0 {
		t.Fatalf("expected 0 below minimum spend, got %d", got)
	}
	if err := v.Validate(time.Now(), 400_000); !errors.Is(err, ErrMinimumSpendUnmet) {
		t.Fatalf("expected ErrMinimumSpendUnmet, got %v", err)
	}
}

func TestDiscountOutsideValidityWindow(t *testing.T) {
	now := time.Now()
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)

	expired := &Voucher{Code: "OLD", DiscountType: TypeFixed, DiscountValue: 10_000, ValidUntil: &past}
	if got := Discount(expired, 100_000, now); got != 0 {
		t.Fatalf("expected 0 for expired voucher, got %d", got)
	}

	upcoming := &Voucher{Code: "SOON", DiscountType: TypeFixed, DiscountValue: 10_000, ValidFrom: &future}
	if got := Discount(upcoming, 100_000, now); got != 0 {
		t.Fatalf("expected 0 before validity window, got %d", got)
	}
}

func TestDiscountNilVoucher(t *testing.T) {
	if got := Discount(nil, 100_000, time.Now()); got != 0 {
		t.Fatalf("expected 0 without a voucher, got %d", got)
	}
}

func TestFindCaseInsensitive(t *testing.T) {
	pool := []Voucher{
		{Code: "WELCOME10", DiscountType: TypePercentage, DiscountValue: 10},
		{Code: "FREESHIP", DiscountType: TypeFixed, DiscountValue: 30_000},
	}
	found, err := Find(pool, "  welcome10 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.Code != "WELCOME10" {
		t.Fatalf("expected WELCOME10, got %s", found.Code)
	}
	if _, err := Find(pool, "NOPE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
