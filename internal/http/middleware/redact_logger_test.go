package middleware

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRedact(t *testing.T) {
	in := "mail=ada@example.com&id=123e4567-e89b-42d3-a456-426614174000&tel=+1 212-555-1212"
	out := redact(in)
	for _, leaked := range []string{"ada@example.com", "123e4567", "555-1212"} {
		if strings.Contains(out, leaked) {
			t.Fatalf("%q leaked in %q", leaked, out)
		}
	}
	for _, tag := range []string{"[REDACTED:email]", "[REDACTED:id]", "[REDACTED:phone]"} {
		if !strings.Contains(out, tag) {
			t.Fatalf("%s missing in %q", tag, out)
		}
	}
	if redact("") != "" || redact("status=pending") != "status=pending" {
		t.Fatal("clean input must pass unchanged")
	}
}

func TestRedactingLogger_MasksAndAttachesLogger(t *testing.T) {
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), Identity(), RedactingLogger(RedactOptions{MaskHeaders: []string{" x-api-key "}}))
	r.GET("/bots/:botId/handoffs", func(c *gin.Context) {
		LoggerFrom(c).Debug().Msg("handler")
		c.Status(http.StatusOK)
	})
	r.GET("/bots/:botId/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	do(r, http.MethodGet, "/bots/b1/handoffs?email=ada@example.com", nil, map[string]string{
		"Authorization": "Bearer secret",
		"X-Api-Key":     "k",
		HeaderAgentID:   "ada",
		"X-Note":        "call 212-555-1212",
	})
	do(r, http.MethodGet, "/bots/b1/boom", nil, nil)

	raw := buf.String()
	for _, leaked := range []string{"Bearer secret", "ada@example.com", "555-1212"} {
		if strings.Contains(raw, leaked) {
			t.Fatalf("%q leaked: %s", leaked, raw)
		}
	}
	lines := logLines(t, buf)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %s", len(lines), raw)
	}
	if lines[0]["message"] != "handler" || lines[0]["agent_id"] != "ada" || lines[0]["bot_id"] != "b1" {
		t.Fatalf("handler log lacks request fields: %v", lines[0])
	}
	access := lines[1]
	headers, _ := access["headers"].(map[string]any)
	if access["message"] != "http_request" || access["path"] != "/bots/:botId/handoffs" {
		t.Fatalf("unexpected access log: %v", access)
	}
	if headers["Authorization"] != "[REDACTED]" || headers["X-Api-Key"] != "[REDACTED]" {
		t.Fatalf("credential headers not masked: %v", headers)
	}
	if _, ok := headers["X-Agent-Id"]; ok {
		t.Fatalf("agent header should be logged as a field only: %v", headers)
	}
	if lines[2]["level"] != "error" {
		t.Fatalf("5xx should log error: %v", lines[2])
	}
}
