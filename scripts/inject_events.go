// Package main implements a standalone injector that produces realistic
// Zipzy platform events onto Kafka, driving the notification engine's
// consumer path end to end: order lifecycle, delivery tracking, and payment
// outcomes for a roster of demo users.
//
// Run: go run scripts/inject_events.go
//   (from the repo root, or: cd scripts && go run inject_events.go)
package main

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// ---------------------------------------------------------------------------
// Constants
// ---------------------------------------------------------------------------

const (
	defaultEvents = 500
	defaultUsers  = 20
	batchSize     = 50
)

// Topics the notification engine consumes.
const (
	topicOrderCreated     = "zipzy.order.created"
	topicOrderStatus      = "zipzy.order.status_changed"
	topicPartnerAssigned  = "zipzy.delivery.partner_assigned"
	topicDeliveryStatus   = "zipzy.delivery.status_changed"
	topicPaymentSucceeded = "zipzy.payment.succeeded"
	topicPaymentFailed    = "zipzy.payment.failed"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// ---------------------------------------------------------------------------
// Event envelope
// ---------------------------------------------------------------------------

// envelope mirrors the platform-wide Kafka event format.
type envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int             `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        string          `json:"source"`
	Data          json.RawMessage `json:"data"`
}

// uniqueUUID produces a UUID-shaped id from a run nonce and an index, unique
// per run so the engine's dedup store does not swallow repeated injections.
func uniqueUUID(nonce int64, index int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("inject:%d:%d", nonce, index)))
	hex := fmt.Sprintf("%x", h[:16])
	return fmt.Sprintf("%s-%s-4%s-%x%s-%s",
		hex[0:8],
		hex[8:12],
		hex[13:16],
		0x8|(h[8]&0x3),
		hex[17:20],
		hex[20:32],
	)
}

// ---------------------------------------------------------------------------
// Demo data
// ---------------------------------------------------------------------------

var storeNames = []string{
	"Campus Cafe", "Midnight Munchies", "Green Bowl", "Chai Point",
	"The Sandwich Stop", "Wok This Way", "Pizza Republic", "Juice Junction",
}

var partnerNames = []string{
	"Ravi", "Priya", "Arjun", "Sneha", "Karan", "Divya", "Rahul", "Ananya",
}

var orderStatuses = []string{"preparing", "ready", "cancelled"}

var deliveryStatuses = []string{"picked_up", "arriving", "delivered"}

var failureReasons = []string{
	"Card declined by issuer",
	"Insufficient balance",
	"UPI request timed out",
}

func userID(index int) string {
	return fmt.Sprintf("usr-%04d", index+1)
}

func orderNumber(index int) string {
	return fmt.Sprintf("ZP-%05d", 10000+index)
}

// ---------------------------------------------------------------------------
// Event builders
// ---------------------------------------------------------------------------

type builtEvent struct {
	topic string
	key   string
	env   envelope
}

func buildEvent(nonce int64, i, users int) (builtEvent, error) {
	user := userID(rand.Intn(users))
	orderID := uniqueUUID(nonce, 1_000_000+i)
	orderNo := orderNumber(i)
	store := storeNames[i%len(storeNames)]

	var (
		topic string
		aggID string
		aggTy string
		data  any
	)

	switch i % 6 {
	case 0:
		topic, aggID, aggTy = topicOrderCreated, orderID, "order"
		data = map[string]any{
			"order_id":     orderID,
			"order_number": orderNo,
			"user_id":      user,
			"store_name":   store,
			"status":       "placed",
		}
	case 1:
		status := orderStatuses[i%len(orderStatuses)]
		topic, aggID, aggTy = topicOrderStatus, orderID, "order"
		payload := map[string]any{
			"order_id":     orderID,
			"order_number": orderNo,
			"user_id":      user,
			"store_name":   store,
			"status":       status,
		}
		if status == "cancelled" {
			payload["reason"] = "Store closed early today."
		}
		data = payload
	case 2:
		deliveryID := uniqueUUID(nonce, 2_000_000+i)
		topic, aggID, aggTy = topicPartnerAssigned, deliveryID, "delivery"
		data = map[string]any{
			"delivery_id":  deliveryID,
			"order_id":     orderID,
			"order_number": orderNo,
			"user_id":      user,
			"partner_name": partnerNames[i%len(partnerNames)],
			"status":       "assigned",
		}
	case 3:
		deliveryID := uniqueUUID(nonce, 2_000_000+i)
		topic, aggID, aggTy = topicDeliveryStatus, deliveryID, "delivery"
		data = map[string]any{
			"delivery_id":  deliveryID,
			"order_id":     orderID,
			"order_number": orderNo,
			"user_id":      user,
			"partner_name": partnerNames[i%len(partnerNames)],
			"status":       deliveryStatuses[i%len(deliveryStatuses)],
		}
	case 4:
		paymentID := uniqueUUID(nonce, 3_000_000+i)
		topic, aggID, aggTy = topicPaymentSucceeded, paymentID, "payment"
		data = map[string]any{
			"payment_id":   paymentID,
			"order_id":     orderID,
			"order_number": orderNo,
			"user_id":      user,
			"amount":       int64(9900 + rand.Intn(40000)),
			"currency":     "INR",
		}
	default:
		paymentID := uniqueUUID(nonce, 3_000_000+i)
		topic, aggID, aggTy = topicPaymentFailed, paymentID, "payment"
		data = map[string]any{
			"payment_id":   paymentID,
			"order_id":     orderID,
			"order_number": orderNo,
			"user_id":      user,
			"amount":       int64(9900 + rand.Intn(40000)),
			"currency":     "INR",
			"reason":       failureReasons[i%len(failureReasons)],
		}
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return builtEvent{}, fmt.Errorf("marshal event data: %w", err)
	}

	return builtEvent{
		topic: topic,
		key:   aggID,
		env: envelope{
			EventID:       uniqueUUID(nonce, i),
			EventType:     topic,
			AggregateID:   aggID,
			AggregateType: aggTy,
			Version:       1,
			Timestamp:     time.Now().UTC(),
			Source:        "event-injector",
			Data:          raw,
		},
	}, nil
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	brokers := strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	total := getEnvInt("INJECT_EVENTS", defaultEvents)
	users := getEnvInt("INJECT_USERS", defaultUsers)

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           100 * time.Millisecond,
	}
	defer writer.Close()

	ctx := context.Background()
	nonce := time.Now().UnixNano()
	perTopic := make(map[string]int)

	log.Printf("injecting %d events for %d users to %v", total, users, brokers)
	start := time.Now()

	batch := make([]kafka.Message, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := writer.WriteMessages(ctx, batch...); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for i := 0; i < total; i++ {
		evt, err := buildEvent(nonce, i, users)
		if err != nil {
			log.Fatalf("build event %d: %v", i, err)
		}

		value, err := json.Marshal(evt.env)
		if err != nil {
			log.Fatalf("marshal envelope %d: %v", i, err)
		}

		batch = append(batch, kafka.Message{
			Topic: evt.topic,
			Key:   []byte(evt.key),
			Value: value,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(evt.env.EventType)},
				{Key: "source", Value: []byte(evt.env.Source)},
			},
		})
		perTopic[evt.topic]++

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				log.Fatalf("write batch at event %d: %v", i, err)
			}
		}
	}

	if err := flush(); err != nil {
		log.Fatalf("write final batch: %v", err)
	}

	elapsed := time.Since(start)
	log.Printf("injected %d events in %s (%.0f events/sec)", total, elapsed.Round(time.Millisecond), float64(total)/elapsed.Seconds())
	for topic, n := range perTopic {
		log.Printf("  %-36s %d", topic, n)
	}
}
