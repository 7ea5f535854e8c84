package middleware

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestIdentity_HeaderAndUpstream(t *testing.T) {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-Upstream") != "" {
			c.Set(ctxKeyAgentID, c.GetHeader("X-Upstream"))
		}
		c.Next()
	}, Identity())
	r.GET("/bots/:botId/me", func(c *gin.Context) {
		c.String(http.StatusOK, BotID(c)+"/"+AgentID(c))
	})

	if w := do(r, http.MethodGet, "/bots/b1/me", nil, map[string]string{HeaderAgentID: " ada "}); w.Body.String() != "b1/ada" {
		t.Fatalf("header identity: %q", w.Body.String())
	}
	w := do(r, http.MethodGet, "/bots/b1/me", nil, map[string]string{HeaderAgentID: "ada", "X-Upstream": "grace"})
	if w.Body.String() != "b1/grace" {
		t.Fatalf("upstream identity must win: %q", w.Body.String())
	}
	if w := do(r, http.MethodGet, "/bots/b1/me", nil, nil); w.Body.String() != "b1/" {
		t.Fatalf("anonymous: %q", w.Body.String())
	}
}

func TestRequireAgent(t *testing.T) {
	r := gin.New()
	r.Use(Identity(), RequireAgent())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	if w := do(r, http.MethodGet, "/x", nil, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/x", nil, map[string]string{HeaderAgentID: "ada"}); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}

func TestRequireOnline(t *testing.T) {
	captureLogger(t)
	online := map[string]bool{"b1/ada": true}
	check := func(_ context.Context, botID, agentID string) (bool, error) {
		if agentID == "broken" {
			return false, errors.New("redis down")
		}
		return online[botID+"/"+agentID], nil
	}

	r := gin.New()
	r.Use(Identity())
	r.POST("/bots/:botId/assign", RequireOnline(check), func(c *gin.Context) { c.Status(http.StatusOK) })

	cases := []struct {
		agent string
		code  int
		err   string
	}{
		{"", http.StatusUnauthorized, "unauthorized"},
		{"ada", http.StatusOK, ""},
		{"grace", http.StatusUnprocessableEntity, "agent_offline"},
		{"broken", http.StatusServiceUnavailable, "presence_unavailable"},
	}
	for _, tc := range cases {
		hdr := map[string]string{}
		if tc.agent != "" {
			hdr[HeaderAgentID] = tc.agent
		}
		w := do(r, http.MethodPost, "/bots/b1/assign", nil, hdr)
		if w.Code != tc.code {
			t.Fatalf("%q: expected %d, got %d", tc.agent, tc.code, w.Code)
		}
		if tc.err != "" && decodeEnvelope(t, w)["code"] != tc.err {
			t.Fatalf("%q: unexpected body %s", tc.agent, w.Body.String())
		}
	}
}
