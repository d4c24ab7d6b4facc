// Package main implements notifytest, a smoke and load tool that drives a
// running notification engine over its HTTP API. It rotates template sends
// and custom sends across a roster of demo users, then prints the engine's
// own delivery stats.
//
// Run: go run ./cmd/notifytest
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IntegratedRai444/zipzydeliver-sub001/pkg/httpclient"
)

const (
	defaultTarget      = "http://localhost:8012"
	defaultSends       = 100
	defaultUsers       = 10
	defaultConcurrency = 4
)

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

// sample is one request the tool can fire at the engine.
type sample struct {
	path string
	body map[string]any
}

// buildSample rotates through the template catalog plus one custom send.
// The user rotates independently of the sample so every user sees a mix.
func buildSample(i, users int) sample {
	user := fmt.Sprintf("usr-%04d", i%users+1)
	orderNo := fmt.Sprintf("ZP-%05d", 10000+i)

	switch i % 6 {
	case 0:
		return sample{
			path: "/api/v1/notifications/send/template",
			body: map[string]any{
				"user_id":     user,
				"template_id": "order_placed",
				"variables": map[string]string{
					"orderNumber": orderNo,
					"storeName":   "Campus Cafe",
				},
			},
		}
	case 1:
		return sample{
			path: "/api/v1/notifications/send/template",
			body: map[string]any{
				"user_id":     user,
				"template_id": "order_arriving",
				"variables": map[string]string{
					"partnerName": "Ravi",
					"orderNumber": orderNo,
				},
			},
		}
	case 2:
		return sample{
			path: "/api/v1/notifications/send/template",
			body: map[string]any{
				"user_id":     user,
				"template_id": "order_delivered",
				"variables": map[string]string{
					"orderNumber": orderNo,
				},
			},
		}
	case 3:
		return sample{
			path: "/api/v1/notifications/send/template",
			body: map[string]any{
				"user_id":     user,
				"template_id": "payment_failed",
				"variables": map[string]string{
					"amount":      "149.00 INR",
					"orderNumber": orderNo,
					"reason":      "Card declined by issuer.",
				},
			},
		}
	case 4:
		return sample{
			path: "/api/v1/notifications/send/template",
			body: map[string]any{
				"user_id":     user,
				"template_id": "promo_offer",
				"variables": map[string]string{
					"discount": "20",
					"code":     "ZIPZY20",
					"expiry":   "Sunday midnight",
				},
			},
		}
	default:
		return sample{
			path: "/api/v1/notifications/send",
			body: map[string]any{
				"user_id":  user,
				"title":    "Smoke check",
				"body":     fmt.Sprintf("notifytest run, send %d.", i),
				"channels": []string{"in_app"},
				"priority": "low",
			},
		}
	}
}

// counters aggregates outcomes across workers.
type counters struct {
	accepted atomic.Int64
	refused  atomic.Int64
	failed   atomic.Int64
}

func fire(ctx context.Context, client *httpclient.Client, target string, s sample, c *counters) {
	payload, err := json.Marshal(s.body)
	if err != nil {
		log.Printf("marshal %s: %v", s.path, err)
		c.failed.Add(1)
		return
	}

	resp, err := client.Post(ctx, target+s.path, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Printf("post %s: %v", s.path, err)
		c.failed.Add(1)
		return
	}
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		c.accepted.Add(1)
	case http.StatusOK:
		// Delivered a policy refusal: preferences or quiet hours said no.
		c.refused.Add(1)
	default:
		log.Printf("post %s: unexpected status %d", s.path, resp.StatusCode)
		c.failed.Add(1)
	}
}

// waitLive gates the run on the engine's liveness endpoint so the tool fails
// fast with one clear message instead of a connection error per send.
func waitLive(ctx context.Context, client *httpclient.Client, target string) error {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := client.Get(checkCtx, target+"/health/live")
	if err != nil {
		return fmt.Errorf("engine not reachable at %s: %w", target, err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("engine liveness returned %d", resp.StatusCode)
	}
	return nil
}

func printStats(ctx context.Context, client *httpclient.Client, target string) {
	resp, err := client.Get(ctx, target+"/api/v1/notifications/stats")
	if err != nil {
		log.Printf("fetch stats: %v", err)
		return
	}
	defer resp.Body.Close()

	var body struct {
		Data struct {
			Total       int     `json:"total"`
			Sent        int     `json:"sent"`
			Failed      int     `json:"failed"`
			SuccessRate float64 `json:"success_rate"`
			Templates   int     `json:"templates"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Printf("decode stats: %v", err)
		return
	}

	log.Printf("engine stats: total=%d sent=%d failed=%d success_rate=%.2f%% templates=%d",
		body.Data.Total, body.Data.Sent, body.Data.Failed, body.Data.SuccessRate, body.Data.Templates)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	target := getEnv("NOTIFY_TARGET", defaultTarget)
	total := getEnvInt("NOTIFY_SENDS", defaultSends)
	users := getEnvInt("NOTIFY_USERS", defaultUsers)
	concurrency := getEnvInt("NOTIFY_CONCURRENCY", defaultConcurrency)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := httpclient.New(httpclient.Config{
		Timeout:         10 * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    200 * time.Millisecond,
		RetryWaitMax:    time.Second,
		MaxConnsPerHost: concurrency * 2,
	})

	if err := waitLive(ctx, client, target); err != nil {
		log.Fatal(err)
	}

	log.Printf("sending %d notifications for %d users to %s (concurrency %d)", total, users, target, concurrency)
	start := time.Now()

	jobs := make(chan sample)
	var c counters
	var wg sync.WaitGroup

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range jobs {
				fire(ctx, client, target, s, &c)
			}
		}()
	}

produce:
	for i := 0; i < total; i++ {
		select {
		case jobs <- buildSample(i, users):
		case <-ctx.Done():
			log.Printf("interrupted after %d sends", i)
			break produce
		}
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(start)
	fired := c.accepted.Load() + c.refused.Load() + c.failed.Load()
	log.Printf("done in %s (%.0f sends/sec): accepted=%d refused=%d failed=%d",
		elapsed.Round(time.Millisecond), float64(fired)/elapsed.Seconds(),
		c.accepted.Load(), c.refused.Load(), c.failed.Load())

	printStats(context.Background(), client, target)

	if c.failed.Load() > 0 {
		os.Exit(1)
	}
}
