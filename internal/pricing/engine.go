package pricing

// Money represents a monetary value stored in minor units.
type Money = int64

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty       int
	UnitPrice Money
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money
	Discount Money
	Shipping Money
	Tax      Money
	Total    Money
}

// SumAmount reduces line items into a subtotal. Lines with a non-positive
// quantity or a negative unit price contribute nothing.
func SumAmount(items []Item) Money {
	var subtotal Money
	for _, it := range items {
		if it.Qty <= 0 || it.UnitPrice < 0 {
			continue
		}
		subtotal += Money(it.Qty) * it.UnitPrice
	}
	return subtotal
}

// SumQuantity returns the total number of units across all line items.
func SumQuantity(items []Item) int {
	var qty int
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		qty += it.Qty
	}
	return qty
}

// ShippingFee returns the flat fee below the free-shipping threshold and zero
// at or above it. Hitting the threshold exactly ships free.
func ShippingFee(subtotal, threshold, flatFee Money) Money {
	if flatFee < 0 {
		flatFee = 0
	}
	if threshold > 0 && subtotal >= threshold {
		return 0
	}
	return flatFee
}

// Tax applies the rate (in basis points) to the taxable amount, rounding half
// away from zero to the nearest minor unit.
func Tax(taxable Money, rateBps int) Money {
	if taxable <= 0 || rateBps <= 0 {
		return 0
	}
	return (taxable*Money(rateBps) + 5000) / 10000
}

// Compute calculates cart totals given the provided inputs. The discount is
// clamped to the subtotal so it can never push the total negative on its own,
// and tax is charged on the discounted subtotal, not the raw one.
func Compute(items []Item, discount Money, taxRateBps int, shipping Money) Summary {
	subtotal := SumAmount(items)
	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	if shipping < 0 {
		shipping = 0
	}
	taxable := subtotal - discount
	tax := Tax(taxable, taxRateBps)
	return Summary{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Tax:      tax,
		Total:    taxable + shipping + tax,
	}
}
