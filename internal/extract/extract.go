// Package extract walks a GitLab group: group → projects → issues and merge
// requests → users, and returns everything as one model.Result.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/wham/gitlab-timereport/internal/gitlab"
	"github.com/wham/gitlab-timereport/internal/model"
	"github.com/wham/gitlab-timereport/internal/progress"
)

// Progress item names, in pipeline order.
const (
	ItemProjects      = "projects"
	ItemIssues        = "issues"
	ItemMergeRequests = "merge-requests"
	ItemUsers         = "users"
)

// Sources are the fetchers the orchestrator drives.
type Sources struct {
	Group         gitlab.Fetcher[string, gitlab.Group]
	Issues        gitlab.Fetcher[string, gitlab.IssueSet]
	MergeRequests gitlab.Fetcher[string, gitlab.MergeRequestSet]
	Users         gitlab.Fetcher[[]uint32, []model.User]
}

// NewSources wires all four fetchers to client.
func NewSources(client *gitlab.Client) Sources {
	group, issues, mrs, users := client.Fetchers()
	return Sources{Group: group, Issues: issues, MergeRequests: mrs, Users: users}
}

// Orchestrator runs one extraction.
type Orchestrator struct {
	sources     Sources
	progress    progress.Reporter
	concurrency int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProgress reports stage progress to r.
func WithProgress(r progress.Reporter) Option {
	return func(o *Orchestrator) {
		o.progress = r
	}
}

// WithConcurrency fetches up to n projects at a time. Values below 2 keep
// the strictly sequential walk.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		o.concurrency = n
	}
}

// New returns an orchestrator over sources.
func New(sources Sources, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sources:     sources,
		progress:    progress.Discard,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ScopePath replaces spaces with hyphens, as GitLab does for paths.
func ScopePath(name string) string {
	return strings.ReplaceAll(name, " ", "-")
}

// ProjectPath builds the full path of a project in group.
func ProjectPath(group, project string) string {
	return ScopePath(group) + "/" + ScopePath(project)
}

// aggregate accumulates the records of one or more projects.
type aggregate struct {
	issues        []model.Issue
	mergeRequests []model.MergeRequest
	timeLogs      []model.TimeLog
}

func (a *aggregate) merge(b *aggregate) {
	a.issues = append(a.issues, b.issues...)
	a.mergeRequests = append(a.mergeRequests, b.mergeRequests...)
	a.timeLogs = append(a.timeLogs, b.timeLogs...)
}

// Run fetches the group named group. Any failure aborts the run; no partial
// result is returned.
func (o *Orchestrator) Run(ctx context.Context, group string) (*model.Result, error) {
	groupPath := ScopePath(group)

	o.progress.SetCurrentItem(ItemProjects)
	slog.Info("Fetching group", "group", groupPath)
	g, err := o.sources.Group.Fetch(ctx, groupPath)
	if err != nil {
		o.progress.MarkItemFailed(ItemProjects, err.Error())
		return nil, fmt.Errorf("fetch group %s: %w", groupPath, err)
	}
	milestones := model.DedupMilestones(g.Milestones)
	if dropped := len(g.Milestones) - len(milestones); dropped > 0 {
		slog.Debug("Dropped duplicate milestones", "count", dropped)
	}
	o.progress.MarkItemCompleted(ItemProjects, len(g.Projects))
	slog.Info("Group fetched", "projects", len(g.Projects), "milestones", len(milestones))

	agg, err := o.fetchProjects(ctx, group, g.Projects)
	if err != nil {
		return nil, err
	}
	o.progress.MarkItemCompleted(ItemIssues, len(agg.issues))
	o.progress.MarkItemCompleted(ItemMergeRequests, len(agg.mergeRequests))

	users, err := o.fetchUsers(ctx, agg.timeLogs)
	if err != nil {
		o.progress.MarkItemFailed(ItemUsers, err.Error())
		return nil, err
	}
	o.progress.MarkItemCompleted(ItemUsers, len(users))

	return &model.Result{
		Projects:      g.Projects,
		Milestones:    milestones,
		Issues:        agg.issues,
		MergeRequests: agg.mergeRequests,
		TimeLogs:      agg.timeLogs,
		Users:         users,
	}, nil
}

func (o *Orchestrator) fetchProjects(ctx context.Context, group string, projects []model.Project) (*aggregate, error) {
	o.progress.SetCurrentItem(ItemIssues)
	total := &aggregate{}

	if o.concurrency < 2 {
		for i, p := range projects {
			part, err := o.fetchProject(ctx, group, p, i, len(projects))
			if err != nil {
				return nil, err
			}
			total.merge(part)
			o.reportCounts(total)
		}
		return total, nil
	}

	// One partial aggregate per project, merged in project order.
	parts := make([]*aggregate, len(projects))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(o.concurrency)
	for i, p := range projects {
		eg.Go(func() error {
			part, err := o.fetchProject(egCtx, group, p, i, len(projects))
			if err != nil {
				return err
			}
			parts[i] = part
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	for _, part := range parts {
		total.merge(part)
	}
	o.reportCounts(total)
	return total, nil
}

func (o *Orchestrator) fetchProject(ctx context.Context, group string, p model.Project, index, count int) (*aggregate, error) {
	path := ProjectPath(group, p.Name)
	slog.Info("Fetching project", "project", path, "index", index+1, "of", count)

	issues, err := o.sources.Issues.Fetch(ctx, path)
	if err != nil {
		o.progress.MarkItemFailed(ItemIssues, err.Error())
		return nil, fmt.Errorf("fetch issues of %s: %w", path, err)
	}

	mrs, err := o.sources.MergeRequests.Fetch(ctx, path)
	if err != nil {
		o.progress.MarkItemFailed(ItemMergeRequests, err.Error())
		return nil, fmt.Errorf("fetch merge requests of %s: %w", path, err)
	}

	part := &aggregate{
		issues:        issues.Issues,
		mergeRequests: mrs.MergeRequests,
	}
	part.timeLogs = append(part.timeLogs, issues.TimeLogs...)
	part.timeLogs = append(part.timeLogs, mrs.TimeLogs...)

	slog.Debug("Project fetched", "project", path,
		"issues", len(part.issues), "merge_requests", len(part.mergeRequests), "time_logs", len(part.timeLogs))
	return part, nil
}

func (o *Orchestrator) reportCounts(a *aggregate) {
	o.progress.UpdateItemCount(ItemIssues, len(a.issues))
	o.progress.UpdateItemCount(ItemMergeRequests, len(a.mergeRequests))
}

func (o *Orchestrator) fetchUsers(ctx context.Context, logs []model.TimeLog) ([]model.User, error) {
	o.progress.SetCurrentItem(ItemUsers)

	ids := model.UserIDSet{}
	ids.AddTimeLogs(logs)
	if len(ids) == 0 {
		slog.Info("No time logs, skipping users")
		return nil, nil
	}

	slog.Info("Fetching users", "count", len(ids))
	users, err := o.sources.Users.Fetch(ctx, ids.Sorted())
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}
	return users, nil
}
