package utils

import (
	"net"
	"net/http"
	"time"

	httptrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/net/http"
)

// NewCatalogClient returns the traced client used for the upstream commerce
// API. Calls fail fast and are never retried.
func NewCatalogClient() *http.Client {
	return httptrace.WrapClient(&http.Client{
		Timeout: 6 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        50,
			MaxConnsPerHost:     10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   3 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	})
}

// NewRelayClient returns the traced client used to forward analytics
// envelopes to the remote collector.
func NewRelayClient() *http.Client {
	return httptrace.WrapClient(&http.Client{
		Timeout: 8 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxConnsPerHost:     5,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     60 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	})
}
