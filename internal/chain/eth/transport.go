package eth

import (
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"time"
)

// NewDefaultTransport returns an HTTP transport tuned for many concurrent
// JSON-RPC calls against a handful of public RPC hosts.
func NewDefaultTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

//nolint:gochecknoglobals // one connection pool per process
var sharedTransport = sync.OnceValue(NewDefaultTransport)

// SharedTransport returns the process-wide transport every RPC client uses,
// so lookups across chains and requests reuse connections.
func SharedTransport() *http.Transport {
	return sharedTransport()
}
