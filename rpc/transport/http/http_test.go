package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ValentinKolb/shardkv/rpc/common"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := NewHttpServerTransport().(*httpServerTransport)
	srv.RegisterHandler(func(namespace uint64, req []byte) []byte {
		return []byte(fmt.Sprintf("%d:%s", namespace, req))
	})
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func TestSendReceive(t *testing.T) {
	ts := newTestServer(t)

	client := NewHttpClientTransport()
	require.NoError(t, client.Connect(common.ClientConfig{Endpoints: []string{ts.URL}, TimeoutSecond: 5, RetryCount: 2}))
	defer client.Close()

	resp, err := client.Send(context.Background(), 3, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, "3:hello", string(resp))
}

func TestInvalidNamespace(t *testing.T) {
	ts := newTestServer(t)

	res, err := http.Post(ts.URL+"/abc", "application/octet-stream", nil)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	res2, err := http.Get(ts.URL + "/1")
	require.NoError(t, err)
	defer res2.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, res2.StatusCode)
}

func TestSendNotConnected(t *testing.T) {
	client := NewHttpClientTransport()
	_, err := client.Send(context.Background(), 0, []byte("x"))
	require.ErrorIs(t, err, errNotConnected)

	require.Error(t, client.Connect(common.ClientConfig{}))
}
