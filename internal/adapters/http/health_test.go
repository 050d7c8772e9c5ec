package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestCheckAll(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name string
		list []dependency
		want string
	}{
		{"all up", []dependency{{name: "database", required: true, probe: ok}, {name: "cache", probe: ok}}, "ready"},
		{"optional not configured", []dependency{{name: "database", required: true, probe: ok}, {name: "cache"}}, "ready"},
		{"required not configured", []dependency{{name: "database", required: true}, {name: "cache", probe: ok}}, "not ready"},
		{"optional down", []dependency{{name: "database", required: true, probe: ok}, {name: "nats", probe: down}}, "not ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := checkAll(context.Background(), tt.list)
			if r.Status != tt.want {
				t.Errorf("status = %q, want %q", r.Status, tt.want)
			}
			if len(r.Checks) != len(tt.list) {
				t.Errorf("expected %d checks, got %d", len(tt.list), len(r.Checks))
			}
		})
	}

	r := checkAll(context.Background(), []dependency{{name: "nats", probe: down}})
	if got := r.Checks["nats"]; got.Status != "error" || got.Error != "connection refused" {
		t.Errorf("unexpected nats check %+v", got)
	}
}

func TestReadyHandler_NoDependencies(t *testing.T) {
	app := fiber.New()
	app.Get("/v1/ready", ReadyHandler(&Dependencies{}))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	var r readiness
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"database", "cache", "nats"} {
		if r.Checks[name].Status != "not configured" {
			t.Errorf("%s: expected not configured, got %+v", name, r.Checks[name])
		}
	}
}

func TestSetupDocs(t *testing.T) {
	app := fiber.New()
	setupDocs(app, "../../../api/openapi.yaml")

	resp, err := app.Test(httptest.NewRequest("GET", "/docs", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 || !strings.Contains(string(body), "url: '/docs/openapi.yaml'") {
		t.Errorf("unexpected docs page %d: %s", resp.StatusCode, body)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/docs/openapi.yaml", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	if resp.Header.Get("Content-Type") != "application/yaml" || !strings.Contains(string(body), "title: Mapdump API") {
		t.Errorf("unexpected document %q", resp.Header.Get("Content-Type"))
	}
}

func TestSetupDocs_MissingDocument(t *testing.T) {
	app := fiber.New()
	setupDocs(app, "does/not/exist.yaml")

	for _, path := range []string{"/docs", "/docs/openapi.yaml"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != 404 {
			t.Errorf("%s: expected 404, got %d", path, resp.StatusCode)
		}
	}
}
