package webhook

import "strings"

// Topics the service itself subscribes to. Handlers may register for any
// platform topic; these are just the ones wired at install time.
const (
	TopicAppUninstalled     = "app/uninstalled"
	TopicOrdersCreate       = "orders/create"
	TopicOrdersPaid         = "orders/paid"
	TopicSubscriptionUpdate = "app_subscriptions/update"
	TopicOneTimePurchase    = "app_purchases_one_time/update"
)

// WildcardTopic matches every delivery when used as a registration pattern.
const WildcardTopic = "*"

// CanonicalTopic trims and lowercases a topic so header and registration
// spellings compare equal.
func CanonicalTopic(topic string) string {
	return strings.ToLower(strings.TrimSpace(topic))
}
