package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wham/gitlab-timereport/internal/gitlab"
)

const (
	groupResponse = `{"data":{"group":{
		"projects":{"edges":[
			{"node":{"id":"gid://gitlab/Project/10","name":"My Widgets","milestones":{"nodes":[{"id":"gid://gitlab/Milestone/2","title":"1.0"}]}}}
		]},
		"milestones":{"edges":[{"node":{"id":"gid://gitlab/Milestone/1","title":"Q1"}},{"node":{"id":"gid://gitlab/Milestone/2","title":"1.0"}}]}
	}}}`

	issuesResponse = `{"data":{"project":{"id":"gid://gitlab/Project/10","issues":{
		"pageInfo":{"hasNextPage":false,"endCursor":"c1"},
		"nodes":[
			{"id":"gid://gitlab/Issue/100","iid":"1","title":"Bug","milestone":{"id":"gid://gitlab/Milestone/1"},
			 "timelogs":{"nodes":[
				{"timeSpent":3600,"spentAt":"2024-01-01T09:00:00Z","user":{"id":"gid://gitlab/User/7"}},
				{"timeSpent":90,"spentAt":"2024-01-02T09:00:00Z","user":{"id":"gid://gitlab/User/3"}}
			 ]}}
		]}}}}`

	mergeRequestsResponse = `{"data":{"project":{"id":"gid://gitlab/Project/10","mergeRequests":{
		"pageInfo":{"hasNextPage":false,"endCursor":null},
		"nodes":[
			{"id":"gid://gitlab/MergeRequest/200","iid":"4","title":"Fix","milestone":null,
			 "timelogs":{"nodes":[{"timeSpent":600,"spentAt":"2024-01-03T09:00:00Z","user":{"id":"gid://gitlab/User/3"}}]}}
		]}}}}`

	usersResponse = `{"data":{"users":{"nodes":[
		{"id":"gid://gitlab/User/3","username":"alice"},
		{"id":"gid://gitlab/User/7","username":"bob"}
	]}}}`
)

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// gitlabServer answers each query kind with a fixed body.
type gitlabServer struct {
	mu       sync.Mutex
	bodies   map[string]string
	requests map[string][]graphqlRequest
}

func newGitlabServer(t *testing.T) (*gitlabServer, string) {
	t.Helper()
	s := &gitlabServer{
		bodies: map[string]string{
			"group":         groupResponse,
			"issues":        issuesResponse,
			"mergeRequests": mergeRequestsResponse,
			"users":         usersResponse,
		},
		requests: map[string][]graphqlRequest{},
	}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return s, srv.URL
}

func (s *gitlabServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req graphqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.Header.Get("Authorization") != "Bearer secret" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var kind string
	switch {
	case strings.Contains(req.Query, "mergeRequests("):
		kind = "mergeRequests"
	case strings.Contains(req.Query, "issues("):
		kind = "issues"
	case strings.Contains(req.Query, "users("):
		kind = "users"
	case strings.Contains(req.Query, "group("):
		kind = "group"
	}

	s.mu.Lock()
	s.requests[kind] = append(s.requests[kind], req)
	body := s.bodies[kind]
	s.mu.Unlock()

	if body == "" {
		http.Error(w, "unexpected query", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GITLAB_URI", "GITLAB_TOKEN", "GITLAB_GROUP", "GITLAB_TIMEOUT", "GITLAB_CONCURRENCY"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--home", t.TempDir()}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func queryStrings(t *testing.T, db *sql.DB, query string) []string {
	t.Helper()
	rows, err := db.Query(query)
	require.NoError(t, err)
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		require.NoError(t, rows.Scan(&s))
		out = append(out, s)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestRootCmd_WritesDatabase(t *testing.T) {
	clearEnv(t)
	api, uri := newGitlabServer(t)
	outFile := filepath.Join(t.TempDir(), "acme.sqlite")

	out, err := execute(t, "-u", uri+"/", "-t", "secret", "-g", "Acme Corp", outFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote database to file "+outFile)

	require.Len(t, api.requests["group"], 1)
	assert.Equal(t, "Acme-Corp", api.requests["group"][0].Variables["fullPath"])
	require.Len(t, api.requests["issues"], 1)
	assert.Equal(t, "Acme-Corp/My-Widgets", api.requests["issues"][0].Variables["fullPath"])
	require.Len(t, api.requests["mergeRequests"], 1)
	require.Len(t, api.requests["users"], 1)
	assert.Equal(t, []any{"gid://gitlab/User/3", "gid://gitlab/User/7"}, api.requests["users"][0].Variables["ids"])

	db, err := sql.Open("sqlite3", outFile)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, []string{"3|alice", "7|bob"},
		queryStrings(t, db, "SELECT id || '|' || username FROM User ORDER BY id"))
	assert.Equal(t, []string{"10|My Widgets"},
		queryStrings(t, db, "SELECT id || '|' || name FROM Project"))
	assert.Equal(t, []string{"1|Q1", "2|1.0"},
		queryStrings(t, db, "SELECT id || '|' || name FROM Milestone ORDER BY id"))
	assert.Equal(t, []string{"100|1|10|1|Bug"},
		queryStrings(t, db, "SELECT id || '|' || iid || '|' || project_id || '|' || milestone_id || '|' || name FROM Issue"))
	assert.Equal(t, []string{"200|4|10|NULL|Fix"},
		queryStrings(t, db, "SELECT id || '|' || iid || '|' || project_id || '|' || IFNULL(milestone_id, 'NULL') || '|' || name FROM MergeRequest"))
	assert.Equal(t, []string{
		"60|2024-01-01T09:00:00Z|7|100|NULL",
		"1|2024-01-02T09:00:00Z|3|100|NULL",
		"10|2024-01-03T09:00:00Z|3|NULL|200",
	}, queryStrings(t, db,
		"SELECT time || '|' || date || '|' || user_id || '|' || IFNULL(issue_id, 'NULL') || '|' || IFNULL(merge_request_id, 'NULL') FROM TimeLog ORDER BY date"))
}

func TestRootCmd_ExistingOutFile(t *testing.T) {
	clearEnv(t)
	api, uri := newGitlabServer(t)
	outFile := filepath.Join(t.TempDir(), "acme.sqlite")
	require.NoError(t, os.WriteFile(outFile, []byte("old"), 0o600))

	out, err := execute(t, "-u", uri, "-t", "secret", "-g", "Acme Corp", outFile)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists. Use --force to overwrite.")
	assert.Empty(t, api.requests)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestRootCmd_ForceMovesOldFile(t *testing.T) {
	clearEnv(t)
	_, uri := newGitlabServer(t)
	outFile := filepath.Join(t.TempDir(), "acme.sqlite")
	require.NoError(t, os.WriteFile(outFile, []byte("old"), 0o600))

	_, err := execute(t, "-u", uri, "-t", "secret", "-g", "Acme Corp", "--force", "--concurrency", "2", outFile)
	require.NoError(t, err)

	data, err := os.ReadFile(outFile + "~")
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
	assert.FileExists(t, outFile)
}

func TestRootCmd_FetchErrorLeavesNoFile(t *testing.T) {
	clearEnv(t)
	api, uri := newGitlabServer(t)
	api.bodies["issues"] = strings.Replace(issuesResponse, `"2024-01-01T09:00:00Z"`, `null`, 1)
	outFile := filepath.Join(t.TempDir(), "acme.sqlite")

	_, err := execute(t, "-u", uri, "-t", "secret", "-g", "Acme Corp", outFile)

	var fetchErr *gitlab.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Contains(t, fetchErr.Missing, "spentAt")
	assert.NoFileExists(t, outFile)
	assert.Empty(t, api.requests["users"])
}

func TestRootCmd_MissingGroup(t *testing.T) {
	clearEnv(t)
	_, uri := newGitlabServer(t)

	_, err := execute(t, "-u", uri, "-t", "secret")
	assert.ErrorContains(t, err, "group is required")
}

func TestRootCmd_EnvironmentConfig(t *testing.T) {
	clearEnv(t)
	_, uri := newGitlabServer(t)
	outFile := filepath.Join(t.TempDir(), "env.sqlite")
	t.Setenv("GITLAB_URI", uri)
	t.Setenv("GITLAB_TOKEN", "secret")
	t.Setenv("GITLAB_GROUP", "Acme Corp")

	out, err := execute(t, outFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote database to file "+outFile)
}
