package order

// Address carries the shipping destination for an order.
type Address struct {
	ReceiverName string `json:"receiverName" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
	AddressLine1 string `json:"addressLine1" validate:"required"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city" validate:"required"`
	Province     string `json:"province" validate:"required"`
	PostalCode   string `json:"postalCode,omitempty"`
	Country      string `json:"country,omitempty"`
}

// LineItem is an order line with the unit price snapshot taken at
// add-to-cart time. Once part of a request it is immutable.
type LineItem struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Title     string `json:"title"`
	Qty       int    `json:"qty"`
	UnitPrice int64  `json:"unitPrice"`
	Subtotal  int64  `json:"subtotal"`
}

// Totals is the derived pricing breakdown attached to the order request. It is
// never persisted on its own; it travels with the order it describes.
type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Discount int64 `json:"discount"`
	Shipping int64 `json:"shippingFee"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`
}

// Request is the snapshot handed to the order-creation service.
type Request struct {
	SessionID     string     `json:"sessionId"`
	Address       Address    `json:"address"`
	PaymentMethod string     `json:"paymentMethod"`
	Note          string     `json:"note,omitempty"`
	VoucherCode   string     `json:"voucherCode,omitempty"`
	Currency      string     `json:"currency"`
	Items         []LineItem `json:"items"`
	Totals        Totals     `json:"totals"`
}

// Placed identifies a successfully created order.
type Placed struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}
