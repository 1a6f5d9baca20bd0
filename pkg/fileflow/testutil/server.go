package testutil

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// NewTestServer serves handler on a loopback port for the duration of the
// test. Tests are skipped where the sandbox forbids listening.
func NewTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	l, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skip: cannot listen in sandbox: %v", err)
	}

	srv := &httptest.Server{
		Listener: l,
		Config: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
	srv.Start()
	t.Cleanup(srv.Close)
	return srv
}
