package template

import (
	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/domain"
)

// Defaults returns the builtin Zipzy template catalog, registered at startup.
// Channel sets are defaults only; per-send overrides and user preferences
// narrow them at dispatch time.
func Defaults() []*domain.Template {
	return []*domain.Template{
		{
			ID:        "order_placed",
			Name:      "Order placed",
			Category:  domain.CategoryOrder,
			Priority:  domain.PriorityMedium,
			Title:     "Order confirmed",
			Body:      "Your order #{orderNumber} has been placed. We'll let you know when {storeName} starts preparing it.",
			Channels:  []string{domain.ChannelPush, domain.ChannelInApp, domain.ChannelEmail},
			Variables: []string{"orderNumber", "storeName"},
		},
		{
			ID:        "order_preparing",
			Name:      "Order preparing",
			Category:  domain.CategoryOrder,
			Priority:  domain.PriorityMedium,
			Title:     "Order update",
			Body:      "{storeName} is preparing your order #{orderNumber}.",
			Channels:  []string{domain.ChannelPush, domain.ChannelInApp},
			Variables: []string{"orderNumber", "storeName"},
		},
		{
			ID:        "order_ready",
			Name:      "Order ready",
			Category:  domain.CategoryOrder,
			Priority:  domain.PriorityMedium,
			Title:     "Order ready",
			Body:      "Your order #{orderNumber} is packed and waiting for pickup.",
			Channels:  []string{domain.ChannelPush, domain.ChannelInApp},
			Variables: []string{"orderNumber"},
		},
		{
			ID:        "order_cancelled",
			Name:      "Order cancelled",
			Category:  domain.CategoryOrder,
			Priority:  domain.PriorityHigh,
			Title:     "Order cancelled",
			Body:      "Your order #{orderNumber} was cancelled. {reason}",
			Channels:  []string{domain.ChannelPush, domain.ChannelInApp, domain.ChannelEmail},
			Variables: []string{"orderNumber", "reason"},
		},
		{
			ID:        "partner_assigned",
			Name:      "Delivery partner assigned",
			Category:  domain.CategoryDelivery,
			Priority:  domain.PriorityMedium,
			Title:     "Courier on the way",
			Body:      "{partnerName} is heading to {storeName} to pick up your order #{orderNumber}.",
			Channels:  []string{domain.ChannelPush, domain.ChannelInApp},
			Variables: []string{"partnerName", "storeName", "orderNumber"},
		},
		{
			ID:        "order_picked_up",
			Name:      "Order picked up",
			Category:  domain.CategoryDelivery,
			Priority:  domain.PriorityMedium,
			Title:     "Order picked up",
			Body:      "{partnerName} has picked up your order #{orderNumber} and is on the way.",
			Channels:  []string{domain.ChannelPush, domain.ChannelInApp},
			Variables: []string{"partnerName", "orderNumber"},
		},
		{
			ID:        "order_arriving",
			Name:      "Order arriving",
			Category:  domain.CategoryDelivery,
			Priority:  domain.PriorityHigh,
			Title:     "Arriving now",
			Body:      "{partnerName} is arriving with your order #{orderNumber}. Meet them at the door.",
			Channels:  []string{domain.ChannelPush, domain.ChannelInApp, domain.ChannelSMS},
			Variables: []string{"partnerName", "orderNumber"},
		},
		{
			ID:        "order_delivered",
			Name:      "Order delivered",
			Category:  domain.CategoryDelivery,
			Priority:  domain.PriorityMedium,
			Title:     "Delivered",
			Body:      "Your order #{orderNumber} has been delivered. Enjoy!",
			Channels:  []string{domain.ChannelPush, domain.ChannelInApp},
			Variables: []string{"orderNumber"},
		},
		{
			ID:        "payment_received",
			Name:      "Payment received",
			Category:  domain.CategoryPayment,
			Priority:  domain.PriorityMedium,
			Title:     "Payment received",
			Body:      "We received your payment of {amount} for order #{orderNumber}.",
			Channels:  []string{domain.ChannelInApp, domain.ChannelEmail},
			Variables: []string{"amount", "orderNumber"},
		},
		{
			ID:        "payment_failed",
			Name:      "Payment failed",
			Category:  domain.CategoryPayment,
			Priority:  domain.PriorityUrgent,
			Title:     "Payment failed",
			Body:      "Your payment of {amount} for order #{orderNumber} failed. {reason}",
			Channels:  []string{domain.ChannelPush, domain.ChannelInApp, domain.ChannelEmail},
			Variables: []string{"amount", "orderNumber", "reason"},
		},
		{
			ID:        "refund_processed",
			Name:      "Refund processed",
			Category:  domain.CategoryPayment,
			Priority:  domain.PriorityMedium,
			Title:     "Refund processed",
			Body:      "Your refund of {amount} for order #{orderNumber} is on its way to your account.",
			Channels:  []string{domain.ChannelInApp, domain.ChannelEmail},
			Variables: []string{"amount", "orderNumber"},
		},
		{
			ID:        "password_changed",
			Name:      "Password changed",
			Category:  domain.CategorySystem,
			Priority:  domain.PriorityHigh,
			Title:     "Password changed",
			Body:      "The password for your Zipzy account was changed. If this wasn't you, contact support immediately.",
			Channels:  []string{domain.ChannelEmail, domain.ChannelInApp},
			Variables: nil,
		},
		{
			ID:        "promo_offer",
			Name:      "Promotional offer",
			Category:  domain.CategoryPromotion,
			Priority:  domain.PriorityLow,
			Title:     "Offer for you",
			Body:      "{discount}% off your next order with code {code}. Valid until {expiry}.",
			Channels:  []string{domain.ChannelPush, domain.ChannelInApp},
			Variables: []string{"discount", "code", "expiry"},
		},
	}
}
