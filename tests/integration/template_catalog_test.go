package integration

import (
	"net/http"
	"testing"
	"time"
)

// TestTemplateCatalog verifies that the builtin catalog is served with every
// template fully populated.
func TestTemplateCatalog(t *testing.T) {
	skipIfNotRunning(t, notificationPort)

	status, data := httpGet(t, apiURL("/templates"))
	requireStatus(t, status, 200)

	templates := extractList(t, data, "data")
	if len(templates) != 13 {
		t.Fatalf("expected 13 builtin templates, got %d", len(templates))
	}

	byID := make(map[string]map[string]interface{}, len(templates))
	for _, raw := range templates {
		tmpl, ok := raw.(map[string]interface{})
		if !ok {
			t.Fatalf("expected template object, got %T", raw)
		}
		id, _ := tmpl["id"].(string)
		if id == "" {
			t.Fatal("expected every template to carry an id")
		}
		byID[id] = tmpl

		for _, field := range []string{"name", "category", "priority", "title", "body"} {
			if s, _ := tmpl[field].(string); s == "" {
				t.Errorf("template %s missing %s", id, field)
			}
		}
		if channels, _ := tmpl["channels"].([]interface{}); len(channels) == 0 {
			t.Errorf("template %s has no channels", id)
		}
	}

	for _, id := range []string{"order_placed", "order_delivered", "payment_failed", "promo_offer"} {
		if _, ok := byID[id]; !ok {
			t.Errorf("expected template %s in catalog", id)
		}
	}

	if promo, ok := byID["promo_offer"]; ok {
		if promo["category"] != "promotion" {
			t.Errorf("expected promo_offer category promotion, got %v", promo["category"])
		}
		if promo["priority"] != "low" {
			t.Errorf("expected promo_offer priority low, got %v", promo["priority"])
		}
	}
	if pay, ok := byID["payment_failed"]; ok && pay["priority"] != "urgent" {
		t.Errorf("expected payment_failed priority urgent, got %v", pay["priority"])
	}
}

// TestTemplateCatalogCacheable verifies that the catalog response carries the
// cache header; the catalog is immutable for a running process.
func TestTemplateCatalogCacheable(t *testing.T) {
	skipIfNotRunning(t, notificationPort)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(apiURL("/templates"))
	if err != nil {
		t.Fatalf("GET /templates failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Cache-Control"); got != "public, max-age=300" {
		t.Errorf("expected Cache-Control \"public, max-age=300\", got %q", got)
	}
}
