package events

// Topic constants for domain events emitted by the storefront.
const (
	TopicCartUpdated      = "cart.updated"
	TopicOrderPlaced      = "order.placed"
	TopicPaymentConfirmed = "payment.confirmed"
	TopicPaymentFailed    = "payment.failed"
)

// DefaultTopics returns the canonical list of topics subscribers may attach to.
func DefaultTopics() []string {
	return []string{
		TopicCartUpdated,
		TopicOrderPlaced,
		TopicPaymentConfirmed,
		TopicPaymentFailed,
	}
}
