package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/shardkv/rpc/common"
	"github.com/ValentinKolb/shardkv/rpc/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer serves an echo handler that prefixes the namespace id and returns the address
func startServer(t *testing.T) (transport.IRPCServerTransport, string) {
	t.Helper()
	srv := NewTCPServerTransport(1024, 4)
	srv.RegisterHandler(func(namespace uint64, req []byte) []byte {
		return []byte(fmt.Sprintf("%d:%s", namespace, req))
	})

	done := make(chan error, 1)
	go func() {
		done <- srv.Listen(common.ServerConfig{Endpoint: "127.0.0.1:0", TimeoutSecond: 5, TCPNoDelay: true})
	}()
	t.Cleanup(func() {
		require.NoError(t, srv.Close())
		require.NoError(t, <-done)
	})

	addr := srv.(interface{ Addr() net.Addr })
	require.Eventually(t, func() bool { return addr.Addr() != nil }, 5*time.Second, 10*time.Millisecond)
	return srv, addr.Addr().String()
}

func TestSendReceive(t *testing.T) {
	_, addr := startServer(t)

	client := NewTCPClientTransport()
	require.NoError(t, client.Connect(common.ClientConfig{
		Endpoints:              []string{addr},
		TimeoutSecond:          5,
		RetryCount:             2,
		ConnectionsPerEndpoint: 2,
		TCPNoDelay:             true,
	}))
	defer client.Close()

	resp, err := client.Send(context.Background(), 7, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, "7:hello", string(resp))

	// responses are matched to their requests on shared connections
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Send(context.Background(), uint64(i), []byte(fmt.Sprint(i*i)))
			assert.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("%d:%d", i, i*i), string(resp))
		}()
	}
	wg.Wait()

	// payloads larger than the server buffer
	big := make([]byte, 4096)
	for i := range big {
		big[i] = 'x'
	}
	resp, err = client.Send(context.Background(), 1, big)
	require.NoError(t, err)
	require.Equal(t, "1:"+string(big), string(resp))
}

func TestSendAfterClose(t *testing.T) {
	_, addr := startServer(t)

	client := NewTCPClientTransport()
	require.NoError(t, client.Connect(common.ClientConfig{Endpoints: []string{addr}, TimeoutSecond: 5}))
	require.NoError(t, client.Close())

	_, err := client.Send(context.Background(), 0, []byte("x"))
	require.Error(t, err)
}

func TestSendCanceled(t *testing.T) {
	srv := NewTCPServerTransport(1024, 1)
	release := make(chan struct{})
	srv.RegisterHandler(func(_ uint64, req []byte) []byte {
		<-release
		return req
	})
	done := make(chan error, 1)
	go func() { done <- srv.Listen(common.ServerConfig{Endpoint: "127.0.0.1:0"}) }()
	defer func() {
		close(release)
		_ = srv.Close()
		<-done
	}()
	addr := srv.(interface{ Addr() net.Addr })
	require.Eventually(t, func() bool { return addr.Addr() != nil }, 5*time.Second, 10*time.Millisecond)

	client := NewTCPClientTransport()
	require.NoError(t, client.Connect(common.ClientConfig{Endpoints: []string{addr.Addr().String()}}))
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Send(ctx, 0, []byte("x"))
	require.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestConnectNoEndpoint(t *testing.T) {
	client := NewTCPClientTransport()
	require.Error(t, client.Connect(common.ClientConfig{}))

	// nothing listens on port 1
	require.Error(t, client.Connect(common.ClientConfig{Endpoints: []string{"127.0.0.1:1"}, TimeoutSecond: 1}))
}
