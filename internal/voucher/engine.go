package voucher

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no voucher in the pool matches the code.
	ErrNotFound = errors.New("voucher not found")
	// ErrVoucherInactive is returned when attempting to use a voucher before its active window.
	ErrVoucherInactive = errors.New("voucher not active")
	// ErrVoucherExpired is returned when the voucher has already expired.
	ErrVoucherExpired = errors.New("voucher expired")
	// ErrMinimumSpendUnmet indicates the order subtotal did not meet the voucher requirement.
	ErrMinimumSpendUnmet = errors.New("voucher minimum spend not met")
)

// Discount types supported by the evaluator.
const (
	TypePercentage = "percentage"
	TypeFixed      = "fixed"
)

// Voucher captures the runtime constraints of a discount code.
type Voucher struct {
	Code           string     `json:"code"`
	DiscountType   string     `json:"discountType"`
	DiscountValue  int64      `json:"discountValue"`
	MinOrderAmount int64      `json:"minOrderAmount"`
	// MaxDiscount caps a percentage discount; zero means uncapped.
	MaxDiscount int64      `json:"maxDiscount"`
	ValidFrom   *time.Time `json:"validFrom,omitempty"`
	ValidUntil  *time.Time `json:"validUntil,omitempty"`
}

// Validate ensures the voucher can contribute a discount at the provided
// instant and subtotal. An ineligible voucher stays selected, it just
// contributes nothing; callers decide whether to surface the reason.
func (v Voucher) Validate(now time.Time, subtotal int64) error {
	if subtotal < v.MinOrderAmount {
		return ErrMinimumSpendUnmet
	}
	if v.ValidFrom != nil && now.Before(*v.ValidFrom) {
		return ErrVoucherInactive
	}
	if v.ValidUntil != nil && now.After(*v.ValidUntil) {
		return ErrVoucherExpired
	}
	return nil
}

// Discount computes the amount the voucher contributes for the given subtotal.
// Ineligible or expired vouchers contribute zero. The result never exceeds the
// subtotal so the discount alone can never drive a total negative.
func Discount(v *Voucher, subtotal int64, now time.Time) int64 {
	if v == nil || subtotal <= 0 {
		return 0
	}
	if err := v.Validate(now, subtotal); err != nil {
		return 0
	}
	var discount int64
	switch strings.ToLower(strings.TrimSpace(v.DiscountType)) {
	case TypePercentage:
		if v.DiscountValue <= 0 {
			return 0
		}
		discount = subtotal * v.DiscountValue / 100
		if v.MaxDiscount > 0 && discount > v.MaxDiscount {
			discount = v.MaxDiscount
		}
	case TypeFixed:
		discount = v.DiscountValue
	default:
		return 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		return 0
	}
	return discount
}

// Find locates a voucher in the pool by case-insensitive exact code match.
func Find(pool []Voucher, code string) (Voucher, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return Voucher{}, ErrNotFound
	}
	for _, v := range pool {
		if strings.EqualFold(v.Code, trimmed) {
			return v, nil
		}
	}
	return Voucher{}, ErrNotFound
}
