package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServe_ShutsDownWhenContextEnds(t *testing.T) {
	cfg := jwtConfig()
	cfg.HTTP.ShutdownTimeout = time.Second
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := NewConsole(ConsoleDeps{Config: cfg, Logger: logger})
	require.NoError(t, err)

	srvCfg := &HTTPServerConfig{Config: cfg, Console: c, Logger: logger}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, srvCfg, newHTTPServer(srvCfg), ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeWithShutdown_Errors(t *testing.T) {
	assert.Error(t, ServeWithShutdown(context.Background(), nil))

	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = busy.Close() })

	cfg := jwtConfig()
	cfg.HTTP.Addr = busy.Addr().String()
	c, err := NewConsole(ConsoleDeps{Config: cfg})
	require.NoError(t, err)
	err = ServeWithShutdown(context.Background(), &HTTPServerConfig{Config: cfg, Console: c})
	assert.ErrorContains(t, err, "listen")
}

func TestNewHTTPServer_Timeouts(t *testing.T) {
	cfg := jwtConfig()
	cfg.HTTP.ReadTimeout = 0
	c, err := NewConsole(ConsoleDeps{Config: cfg})
	require.NoError(t, err)

	srv := newHTTPServer(&HTTPServerConfig{Config: cfg, Console: c})
	assert.Equal(t, 30*time.Second, srv.ReadTimeout, "unset timeouts fall back to defaults")
	assert.NotNil(t, srv.ErrorLog)
}
