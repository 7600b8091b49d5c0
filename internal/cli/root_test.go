package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"

	"github.com/imrishuroy/go-shoplist/internal/handlers"
	"github.com/imrishuroy/go-shoplist/internal/items"
	"github.com/imrishuroy/go-shoplist/internal/items/sqlstore"
	"github.com/imrishuroy/go-shoplist/internal/validation"
)

func newAPI(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := sqlstore.Open(context.Background(), sqlstore.Options{Path: filepath.Join(t.TempDir(), "cli.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(handlers.NewRouter(handlers.RouterConfig{
		HandlerConfig: handlers.HandlerConfig{
			Service: items.NewService(store, validation.New()),
			Logger:  logger,
		},
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func run(t *testing.T, url string, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(append([]string{"--api-url", url}, args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func TestCLI_Workflow(t *testing.T) {
	url := newAPI(t)

	out, _, code := run(t, url, "ls")
	if code != 0 || !strings.Contains(out, "the list is empty") {
		t.Fatalf("ls on empty list: code=%d out=%q", code, out)
	}

	out, errOut, code := run(t, url, "add", "Milk", "2", "l")
	if code != 0 {
		t.Fatalf("add failed: %s", errOut)
	}
	if !strings.Contains(out, "added #1 Milk") || !strings.Contains(out, "To buy (1)") {
		t.Fatalf("unexpected add output %q", out)
	}

	run(t, url, "add", "Bread", "1", "loaf")
	out, _, code = run(t, url, "toggle", "1")
	if code != 0 || !strings.Contains(out, "#1 Milk marked as purchased") {
		t.Fatalf("unexpected toggle output %q", out)
	}
	if !strings.Contains(out, "Purchased (1)") || !strings.Contains(out, "1/2 purchased") {
		t.Fatalf("expected grouped views, got %q", out)
	}

	out, _, code = run(t, url, "set", "1", "--quantity", "3")
	if code != 0 || !strings.Contains(out, "updated #1 Milk") {
		t.Fatalf("unexpected set output %q", out)
	}

	out, _, code = run(t, url, "ls", "-o", "json")
	if code != 0 {
		t.Fatalf("ls -o json failed")
	}
	var list []items.Item
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("ls -o json is not JSON: %v\n%s", err, out)
	}
	if len(list) != 2 || list[1].ID != 1 || list[1].Quantity != 3 || !list[1].Purchased {
		t.Fatalf("unexpected list %+v", list)
	}

	out, _, _ = run(t, url, "ls", "--purchased=false", "-o", "yaml")
	var remaining []map[string]interface{}
	if err := yaml.Unmarshal([]byte(out), &remaining); err != nil {
		t.Fatalf("ls -o yaml is not YAML: %v", err)
	}
	if len(remaining) != 1 || remaining[0]["name"] != "Bread" {
		t.Fatalf("unexpected remaining %+v", remaining)
	}

	out, _, code = run(t, url, "rm", "1")
	if code != 0 || !strings.Contains(out, "deleted #1") {
		t.Fatalf("unexpected rm output %q", out)
	}
}

func TestCLI_Errors(t *testing.T) {
	url := newAPI(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad quantity", []string{"add", "Milk", "two", "l"}, "quantity must be a number"},
		{"zero quantity", []string{"add", "Milk", "0", "l"}, "quantity must be greater than 0"},
		{"bad id", []string{"toggle", "x"}, `invalid id "x"`},
		{"missing item", []string{"rm", "99"}, "item not found"},
		{"blank name", []string{"set", "1", "--name", " "}, "item not found"},
		{"bad format", []string{"ls", "-o", "xml"}, "unknown output format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, errOut, code := run(t, url, tc.args...)
			if code != 1 || !strings.Contains(errOut, tc.want) {
				t.Fatalf("expected exit 1 with %q, got %d %q", tc.want, code, errOut)
			}
		})
	}
}

func TestCLI_Unreachable(t *testing.T) {
	_, errOut, code := run(t, "http://127.0.0.1:1", "ls")
	if code != 1 || !strings.Contains(errOut, "cannot reach http://127.0.0.1:1") {
		t.Fatalf("expected unreachable error, got %d %q", code, errOut)
	}
}
