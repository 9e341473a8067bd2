package update

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/web"
)

func releaseServer(t *testing.T, status int, tag string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"tag_name":%q}`, tag)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheck(t *testing.T) {
	client := web.New(time.Second, "newsdesk-test")
	tests := []struct {
		tag     string
		current string
		want    string
	}{
		{"v1.2.0", "1.1.0", "1.2.0"},
		{"v1.2.0", "v1.2.0", ""},
		{"1.2.0", "v1.2.0", ""},
		{"", "dev", ""},
	}
	for _, tt := range tests {
		srv := releaseServer(t, http.StatusOK, tt.tag)
		res, err := Check(context.Background(), client, srv.URL, tt.current)
		if err != nil {
			t.Fatalf("Check(%q, %q): %v", tt.tag, tt.current, err)
		}
		got := ""
		if res != nil {
			got = res.LatestVersion
		}
		if got != tt.want {
			t.Errorf("Check(%q, %q) = %q, want %q", tt.tag, tt.current, got, tt.want)
		}
	}
}

func TestCheckError(t *testing.T) {
	srv := releaseServer(t, http.StatusForbidden, "")
	_, err := Check(context.Background(), web.New(time.Second, "newsdesk-test"), srv.URL, "1.0.0")
	if err == nil {
		t.Fatal("expected an error for a non-2xx response")
	}
}
