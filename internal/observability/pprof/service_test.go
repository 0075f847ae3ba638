package pprof

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	logx "schedview/pkg/logx"
)

func TestNormalizePrefix(t *testing.T) {
	t.Parallel()
	tests := []struct{ in, want string }{
		{"", "/debug/pprof/"},
		{"/debug/pprof", "/debug/pprof/"},
		{"debug/", "/debug/"},
		{"/x/y/", "/x/y/"},
	}
	for _, tt := range tests {
		if got := normalizePrefix(tt.in); got != tt.want {
			t.Fatalf("normalizePrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:6060", true},
		{"localhost:6060", true},
		{"[::1]:6060", true},
		{"0.0.0.0:6060", false},
		{":6060", false},
		{"10.0.0.5:6060", false},
		{"garbage", false},
	}
	for _, tt := range tests {
		if got := isLoopbackAddr(tt.addr); got != tt.want {
			t.Fatalf("isLoopbackAddr(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestWithAuth(t *testing.T) {
	t.Parallel()
	h := withAuth("secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cases := []struct {
		name   string
		mutate func(*http.Request)
		want   int
	}{
		{"no credentials", func(r *http.Request) {}, http.StatusUnauthorized},
		{"bearer ok", func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret") }, http.StatusOK},
		{"bearer wrong", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"query ok", func(r *http.Request) { r.URL.RawQuery = "token=secret" }, http.StatusOK},
		{"query wrong", func(r *http.Request) { r.URL.RawQuery = "token=nope" }, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		tc.mutate(req)
		rec := httptest.NewRecorder()
		h(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: status = %d, want %d", tc.name, rec.Code, tc.want)
		}
	}
}

func TestStartStopRoundtrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := New(Config{Enabled: true, Addr: "127.0.0.1:0"}, logx.Nop())

	svc.Start(ctx)
	addr := svc.Addr()
	if addr == "" {
		t.Fatal("server did not bind")
	}

	resp, err := http.Get("http://" + addr + "/healthz")
	if err != nil {
		t.Fatalf("healthz request failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	svc.Stop(ctx)
	if svc.Addr() != "" {
		t.Fatal("expected cleared listener after stop")
	}
}

func TestRefusesInsecureBind(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := New(Config{Enabled: true, Addr: "0.0.0.0:0"}, logx.Nop())
	svc.Start(ctx)
	if svc.Addr() != "" {
		svc.Stop(ctx)
		t.Fatal("expected refusal to bind non-loopback without token")
	}
}
