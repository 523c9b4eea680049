package gitlab

import (
	"context"
	"log/slog"

	"github.com/shurcooL/graphql"

	"github.com/wham/gitlab-timereport/internal/gid"
	"github.com/wham/gitlab-timereport/internal/model"
)

// MergeRequestSet is every merge request of a project with the time logged on them.
type MergeRequestSet struct {
	MergeRequests []model.MergeRequest
	TimeLogs      []model.TimeLog
}

type mergeRequestsQuery struct {
	Project *struct {
		ID            string
		MergeRequests *struct {
			PageInfo *pageInfo
			Nodes    []*trackableNode
		} `graphql:"mergeRequests(after: $cursor)"`
	} `graphql:"project(fullPath: $fullPath)"`
}

// MergeRequestFetcher pages through the merge requests of a project.
type MergeRequestFetcher struct {
	client *Client
}

// Fetch returns all merge requests of the project at fullPath in server order.
func (f *MergeRequestFetcher) Fetch(ctx context.Context, fullPath string) (MergeRequestSet, error) {
	const op = "merge requests query"

	var result MergeRequestSet
	var cursor *graphql.String
	pageNum := 1

	for {
		var query mergeRequestsQuery
		vars := map[string]any{
			"fullPath": ID(fullPath),
			"cursor":   cursor,
		}
		if err := f.client.query(ctx, op, &query, vars); err != nil {
			return MergeRequestSet{}, err
		}

		project := query.Project
		if project == nil {
			return MergeRequestSet{}, &FetchError{Op: op, Missing: "data.project"}
		}
		projectID, err := gid.Parse(project.ID)
		if err != nil {
			return MergeRequestSet{}, err
		}
		mrs := project.MergeRequests
		if mrs == nil {
			return MergeRequestSet{}, &FetchError{Op: op, Missing: "data.project.mergeRequests"}
		}
		if mrs.PageInfo == nil {
			return MergeRequestSet{}, &FetchError{Op: op, Missing: "data.project.mergeRequests.pageInfo"}
		}
		if mrs.Nodes == nil {
			return MergeRequestSet{}, &FetchError{Op: op, Missing: "data.project.mergeRequests.nodes"}
		}

		for _, node := range mrs.Nodes {
			if node == nil {
				continue
			}
			t, err := node.decode()
			if err != nil {
				return MergeRequestSet{}, err
			}
			result.MergeRequests = append(result.MergeRequests, model.MergeRequest{
				ID:          t.id,
				IID:         t.iid,
				ProjectID:   projectID,
				MilestoneID: t.milestoneID,
				Name:        t.title,
			})

			mrID := t.id
			logs, err := node.timeLogs(op, func(tl *model.TimeLog) {
				tl.MergeRequestID = model.Ptr(mrID)
			})
			if err != nil {
				return MergeRequestSet{}, err
			}
			result.TimeLogs = append(result.TimeLogs, logs...)
		}

		slog.Debug("Fetched merge requests page", "project", fullPath, "page", pageNum, "count", len(mrs.Nodes))

		if !mrs.PageInfo.HasNextPage {
			break
		}
		if mrs.PageInfo.EndCursor == "" {
			return MergeRequestSet{}, &FetchError{Op: op, Missing: "data.project.mergeRequests.pageInfo.endCursor"}
		}
		cursor = &mrs.PageInfo.EndCursor
		pageNum++
	}

	return result, nil
}
