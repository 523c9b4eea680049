package gitlab

import (
	"context"
	"fmt"

	"github.com/wham/gitlab-timereport/internal/gid"
	"github.com/wham/gitlab-timereport/internal/model"
)

// Group holds the projects of a group and every milestone visible from it.
type Group struct {
	Projects   []model.Project
	Milestones []model.Milestone // group-level first, then per project, not deduplicated
}

type milestoneNode struct {
	ID    string
	Title string
}

type groupQuery struct {
	Group *struct {
		Projects *struct {
			Edges []*struct {
				Node *struct {
					ID         string
					Name       string
					Milestones *struct {
						Nodes []*milestoneNode
					}
				}
			}
		}
		Milestones *struct {
			Edges []*struct {
				Node *milestoneNode
			}
		}
	} `graphql:"group(fullPath: $fullPath)"`
}

// GroupFetcher fetches the projects and milestones of a group in one request.
type GroupFetcher struct {
	client *Client
}

// Fetch queries the group at fullPath.
func (f *GroupFetcher) Fetch(ctx context.Context, fullPath string) (Group, error) {
	const op = "group query"

	var query groupQuery
	vars := map[string]any{
		"fullPath": ID(fullPath),
	}
	if err := f.client.query(ctx, op, &query, vars); err != nil {
		return Group{}, err
	}

	group := query.Group
	if group == nil {
		return Group{}, &FetchError{Op: op, Missing: "data.group"}
	}
	if group.Projects == nil || group.Projects.Edges == nil {
		return Group{}, &FetchError{Op: op, Missing: "data.group.projects.edges"}
	}

	var result Group
	if group.Milestones != nil {
		for _, edge := range group.Milestones.Edges {
			if edge == nil || edge.Node == nil {
				continue
			}
			m, err := decodeMilestone(edge.Node)
			if err != nil {
				return Group{}, err
			}
			result.Milestones = append(result.Milestones, m)
		}
	}

	for _, edge := range group.Projects.Edges {
		if edge == nil || edge.Node == nil {
			continue
		}
		node := edge.Node

		id, err := gid.Parse(node.ID)
		if err != nil {
			return Group{}, fmt.Errorf("project %q: %w", node.Name, err)
		}
		result.Projects = append(result.Projects, model.Project{ID: id, Name: node.Name})

		if node.Milestones == nil {
			continue
		}
		for _, ms := range node.Milestones.Nodes {
			if ms == nil {
				continue
			}
			m, err := decodeMilestone(ms)
			if err != nil {
				return Group{}, err
			}
			result.Milestones = append(result.Milestones, m)
		}
	}

	return result, nil
}

func decodeMilestone(node *milestoneNode) (model.Milestone, error) {
	id, err := gid.Parse(node.ID)
	if err != nil {
		return model.Milestone{}, fmt.Errorf("milestone %q: %w", node.Title, err)
	}
	return model.Milestone{ID: id, Name: node.Title}, nil
}
