package gitlab

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// StatusCounters tracks HTTP response status codes
type StatusCounters struct {
	Requests   int // Round trips attempted
	Success2XX int // 2XX status codes
	Error4XX   int // 4XX status codes
	Error5XX   int // 5XX status codes
	Failed     int // Round trips without a response
}

// statusTransport wraps an HTTP transport to count requests and response status codes
type statusTransport struct {
	wrapped  http.RoundTripper
	onUpdate func(StatusCounters)

	mu       sync.Mutex
	counters StatusCounters
}

func (st *statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := st.wrapped.RoundTrip(req)

	st.mu.Lock()
	st.counters.Requests++
	switch {
	case resp == nil:
		st.counters.Failed++
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		st.counters.Success2XX++
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		st.counters.Error4XX++
	case resp.StatusCode >= 500:
		st.counters.Error5XX++
	}
	snapshot := st.counters
	st.mu.Unlock()

	if st.onUpdate != nil {
		st.onUpdate(snapshot)
	}
	return resp, err
}

// NewHTTPClient returns an HTTP client that sends "Authorization: Bearer <token>"
// on every request, gives up after timeout (0 disables it) and reports status
// counters to onUpdate after each round trip.
func NewHTTPClient(ctx context.Context, token string, timeout time.Duration, onUpdate func(StatusCounters)) *http.Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = timeout

	tc.Transport = &statusTransport{
		wrapped:  tc.Transport,
		onUpdate: onUpdate,
	}
	return tc
}
