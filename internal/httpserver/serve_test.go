package httpserver

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeAndShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "pong")
	})
	listening := make(chan net.Addr, 1)
	served := make(chan error, 1)
	go func() {
		served <- Serve(ctx, "127.0.0.1:0", handler, Options{
			ShutdownTimeout: time.Second,
			Listening:       listening,
		})
	}()

	var addr net.Addr
	select {
	case addr = <-listening:
	case err := <-served:
		t.Fatal("server stopped before listening", err)
	}

	res, err := http.Get(fmt.Sprintf("http://%v/ping", addr))
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after the context was cancelled")
	}
}

func TestServeBindError(t *testing.T) {
	lst, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lst.Close()
	err = Serve(context.Background(), lst.Addr().String(), http.NotFoundHandler(), Options{})
	assert.Error(t, err)
}
