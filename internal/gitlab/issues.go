package gitlab

import (
	"context"
	"log/slog"

	"github.com/shurcooL/graphql"

	"github.com/wham/gitlab-timereport/internal/gid"
	"github.com/wham/gitlab-timereport/internal/model"
)

// IssueSet is every issue of a project with the time logged on them.
type IssueSet struct {
	Issues   []model.Issue
	TimeLogs []model.TimeLog
}

type issuesQuery struct {
	Project *struct {
		ID     string
		Issues *struct {
			PageInfo *pageInfo
			Nodes    []*trackableNode
		} `graphql:"issues(after: $cursor)"`
	} `graphql:"project(fullPath: $fullPath)"`
}

// IssueFetcher pages through the issues of a project.
type IssueFetcher struct {
	client *Client
}

// Fetch returns all issues of the project at fullPath in server order.
func (f *IssueFetcher) Fetch(ctx context.Context, fullPath string) (IssueSet, error) {
	const op = "issues query"

	var result IssueSet
	var cursor *graphql.String
	pageNum := 1

	for {
		var query issuesQuery
		vars := map[string]any{
			"fullPath": ID(fullPath),
			"cursor":   cursor,
		}
		if err := f.client.query(ctx, op, &query, vars); err != nil {
			return IssueSet{}, err
		}

		project := query.Project
		if project == nil {
			return IssueSet{}, &FetchError{Op: op, Missing: "data.project"}
		}
		projectID, err := gid.Parse(project.ID)
		if err != nil {
			return IssueSet{}, err
		}
		if project.Issues == nil {
			return IssueSet{}, &FetchError{Op: op, Missing: "data.project.issues"}
		}
		if project.Issues.PageInfo == nil {
			return IssueSet{}, &FetchError{Op: op, Missing: "data.project.issues.pageInfo"}
		}
		if project.Issues.Nodes == nil {
			return IssueSet{}, &FetchError{Op: op, Missing: "data.project.issues.nodes"}
		}

		for _, node := range project.Issues.Nodes {
			if node == nil {
				continue
			}
			t, err := node.decode()
			if err != nil {
				return IssueSet{}, err
			}
			result.Issues = append(result.Issues, model.Issue{
				ID:          t.id,
				IID:         t.iid,
				ProjectID:   projectID,
				MilestoneID: t.milestoneID,
				Name:        t.title,
			})

			issueID := t.id
			logs, err := node.timeLogs(op, func(tl *model.TimeLog) {
				tl.IssueID = model.Ptr(issueID)
			})
			if err != nil {
				return IssueSet{}, err
			}
			result.TimeLogs = append(result.TimeLogs, logs...)
		}

		slog.Debug("Fetched issues page", "project", fullPath, "page", pageNum, "count", len(project.Issues.Nodes))

		if !project.Issues.PageInfo.HasNextPage {
			break
		}
		if project.Issues.PageInfo.EndCursor == "" {
			return IssueSet{}, &FetchError{Op: op, Missing: "data.project.issues.pageInfo.endCursor"}
		}
		cursor = &project.Issues.PageInfo.EndCursor
		pageNum++
	}

	return result, nil
}
