// Package gitlab talks to the GitLab GraphQL API. Each record family has its
// own Fetcher that owns its request shape, pagination loop and decoding.
package gitlab

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shurcooL/graphql"
)

// Fetcher fetches one family of records for a scope (a group path, a project
// path or a set of ids).
type Fetcher[S, T any] interface {
	Fetch(ctx context.Context, scope S) (T, error)
}

// ID is the GraphQL ID scalar. Its type name becomes the declared variable
// type in generated queries.
type ID string

// FetchError reports a response that lacks an object the query expects.
type FetchError struct {
	Op      string // e.g. "issues query"
	Missing string // path of the absent object, e.g. "data.project.issues"
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("error while fetching API: %s: no %s in response", e.Op, e.Missing)
}

// TransportError wraps a failed round trip or an undecodable response body.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client sends GraphQL queries to a single endpoint.
type Client struct {
	gql *graphql.Client
}

// NewClient returns a client posting to uri (e.g. https://gitlab.com/api/graphql)
// through httpClient, which carries authentication and timeouts.
func NewClient(uri string, httpClient *http.Client) *Client {
	return &Client{gql: graphql.NewClient(uri, httpClient)}
}

func (c *Client) query(ctx context.Context, op string, q any, vars map[string]any) error {
	if err := c.gql.Query(ctx, q, vars); err != nil {
		return &TransportError{Op: op, Err: err}
	}
	return nil
}

// Fetchers returns the four record fetchers backed by c.
func (c *Client) Fetchers() (*GroupFetcher, *IssueFetcher, *MergeRequestFetcher, *UserFetcher) {
	return &GroupFetcher{client: c}, &IssueFetcher{client: c}, &MergeRequestFetcher{client: c}, &UserFetcher{client: c}
}
