package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/shardkv/rpc/common"
	"github.com/ValentinKolb/shardkv/rpc/transport"
	"github.com/sethvargo/go-retry"
)

// errNotConnected is returned by Send before Connect or after Close
var errNotConnected = errors.New("http transport not initialized")

// NewHttpClientTransport creates a new HTTP client transport
func NewHttpClientTransport() transport.IRPCClientTransport {
	return &httpClientTransport{}
}

type httpClientTransport struct {
	serverURLs []*url.URL
	client     *http.Client
	counter    atomic.Uint32
	retryCount int
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *httpClientTransport) Connect(config common.ClientConfig) error {
	if len(config.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	// Parse each server URL
	parsedURLs := make([]*url.URL, len(config.Endpoints))
	for i, server := range config.Endpoints {
		if !strings.Contains(server, "://") {
			server = "http://" + server
		}
		parsedURL, err := url.Parse(server)
		if err != nil {
			return err
		}
		parsedURLs[i] = parsedURL
	}

	// Create client with default transport
	timeout := time.Duration(config.TimeoutSecond) * time.Second
	t.client = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: max(config.ConnectionsPerEndpoint, 10),
			IdleConnTimeout:     90 * time.Second,
		},
	}

	// Set the client and server URLs
	t.serverURLs = parsedURLs
	t.retryCount = config.RetryCount

	return nil
}

func (t *httpClientTransport) Send(ctx context.Context, namespace uint64, req []byte) ([]byte, error) {
	// Check if the transport is initialized
	client, serverURLs := t.client, t.serverURLs
	if client == nil || len(serverURLs) == 0 {
		return nil, errNotConnected
	}

	var resp []byte
	backoff := retry.WithMaxRetries(uint64(max(t.retryCount-1, 0)), retry.NewExponential(50*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		// Select the next server via round-robin
		serverURL := serverURLs[t.counter.Add(1)%uint32(len(serverURLs))]
		requestURL := serverURL.JoinPath(strconv.FormatUint(namespace, 10))

		// Create the request (a new one per attempt, the body is consumed)
		httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL.String(), bytes.NewReader(req))
		if err != nil {
			return err
		}
		httpRequest.Header.Set("Content-Type", "application/octet-stream")

		httpResponse, err := client.Do(httpRequest)
		if err != nil {
			// Retry only if the request never reached the server
			var urlErr *url.Error
			if errors.As(err, &urlErr) && isDialError(urlErr) {
				return retry.RetryableError(err)
			}
			return err
		}
		defer func() {
			if err := httpResponse.Body.Close(); err != nil {
				Logger.Errorf("Failed to close response body: %v", err)
			}
		}()

		// Check if the response status code is OK
		if httpResponse.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(httpResponse.Body, 512))
			return fmt.Errorf("http error: %s: %s", httpResponse.Status, strings.TrimSpace(string(body)))
		}

		// Read the response body
		resp, err = io.ReadAll(httpResponse.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *httpClientTransport) Close() error {
	// Close the client
	if t.client != nil {
		t.client.CloseIdleConnections()
	}

	// Reset the client and server URLs
	t.client = nil
	t.serverURLs = nil

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// isDialError reports whether err happened while connecting
func isDialError(err *url.Error) bool {
	return strings.Contains(err.Err.Error(), "connection refused") ||
		strings.Contains(err.Err.Error(), "no such host") ||
		strings.Contains(err.Err.Error(), "dial")
}
