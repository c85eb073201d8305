//go:build integration

package integration

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"testing"
)

func preflight(t *testing.T, path, method string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodOptions, baseURL+path, nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Origin", "http://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", method)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS %s: %v", path, err)
	}

	return resp
}

func TestRequestID_Generated(t *testing.T) {
	resp := doGet(t, "/api/cart")
	defer resp.Body.Close()

	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("X-Request-ID header not present on cart response")
	}
}

func TestRequestID_Echoed(t *testing.T) {
	const id = "checkout-retry-0042"

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, baseURL+"/api/checkout", nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("X-Request-ID", id)

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("X-Request-ID"); got != id {
		t.Errorf("X-Request-ID: got %q, want %q", got, id)
	}
}

func TestCORS_CartPreflight(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		method string
	}{
		{name: "AddItem", path: "/api/cart/items/1", method: http.MethodPost},
		{name: "RemoveItem", path: "/api/cart/items/1", method: http.MethodDelete},
		{name: "ClearCart", path: "/api/cart", method: http.MethodDelete},
		{name: "Checkout", path: "/api/checkout", method: http.MethodPost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := preflight(t, tt.path, tt.method)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusNoContent {
				t.Fatalf("expected 204, got %d", resp.StatusCode)
			}
			if acao := resp.Header.Get("Access-Control-Allow-Origin"); acao == "" {
				t.Error("Access-Control-Allow-Origin header not present")
			}
			if acam := resp.Header.Get("Access-Control-Allow-Methods"); !strings.Contains(acam, tt.method) {
				t.Errorf("Access-Control-Allow-Methods %q does not list %s", acam, tt.method)
			}
			if acah := resp.Header.Get("Access-Control-Allow-Headers"); !strings.Contains(acah, "Content-Type") {
				t.Errorf("Access-Control-Allow-Headers %q does not list Content-Type", acah)
			}
		})
	}
}

func TestCORS_ExposesRequestID(t *testing.T) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, baseURL+"/api/products", nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Origin", "http://shop.example.com")

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if acao := resp.Header.Get("Access-Control-Allow-Origin"); acao == "" {
		t.Error("Access-Control-Allow-Origin header not present")
	}
	if aceh := resp.Header.Get("Access-Control-Expose-Headers"); !strings.Contains(aceh, "X-Request-ID") {
		t.Errorf("Access-Control-Expose-Headers %q does not list X-Request-ID", aceh)
	}
}

func TestRateLimit_SessionWrites(t *testing.T) {
	first := doPost(t, "/api/session/logout", nil)
	first.Body.Close()
	second := doPost(t, "/api/session/logout", nil)
	second.Body.Close()

	if limit := second.Header.Get("X-RateLimit-Limit"); limit != "10000" {
		t.Errorf("X-RateLimit-Limit: got %q, want %q", limit, "10000")
	}

	before, err := strconv.Atoi(first.Header.Get("X-RateLimit-Remaining"))
	if err != nil {
		t.Fatalf("parse first X-RateLimit-Remaining: %v", err)
	}
	after, err := strconv.Atoi(second.Header.Get("X-RateLimit-Remaining"))
	if err != nil {
		t.Fatalf("parse second X-RateLimit-Remaining: %v", err)
	}
	if after >= before {
		t.Errorf("X-RateLimit-Remaining did not drop: %d then %d", before, after)
	}
}
