package gitlab

import (
	"fmt"
	"strconv"

	"github.com/shurcooL/graphql"

	"github.com/wham/gitlab-timereport/internal/gid"
	"github.com/wham/gitlab-timereport/internal/model"
)

type pageInfo struct {
	HasNextPage bool
	EndCursor   graphql.String
}

type timelogNode struct {
	TimeSpent int
	SpentAt   *string
	User      struct {
		ID string
	}
}

// trackableNode is the shared shape of issues and merge requests.
type trackableNode struct {
	ID        string
	IID       string `graphql:"iid"`
	Title     string
	Milestone *struct {
		ID string
	}
	Timelogs struct {
		Nodes []*timelogNode
	}
}

type trackable struct {
	id          uint32
	iid         uint32
	milestoneID *uint32
	title       string
}

func (n *trackableNode) decode() (trackable, error) {
	id, err := gid.Parse(n.ID)
	if err != nil {
		return trackable{}, err
	}
	iid, err := strconv.ParseUint(n.IID, 10, 32)
	if err != nil {
		return trackable{}, fmt.Errorf("parse iid %q of %s: %w", n.IID, n.ID, err)
	}
	t := trackable{id: id, iid: uint32(iid), title: n.Title}
	if n.Milestone != nil {
		msID, err := gid.Parse(n.Milestone.ID)
		if err != nil {
			return trackable{}, err
		}
		t.milestoneID = &msID
	}
	return t, nil
}

// timeLogs decodes the time logs of n. attach sets the issue or merge request
// reference on each entry.
func (n *trackableNode) timeLogs(op string, attach func(*model.TimeLog)) ([]model.TimeLog, error) {
	if n.Timelogs.Nodes == nil {
		return nil, &FetchError{Op: op, Missing: fmt.Sprintf("timelogs.nodes on %s", n.ID)}
	}

	logs := make([]model.TimeLog, 0, len(n.Timelogs.Nodes))
	for _, node := range n.Timelogs.Nodes {
		if node == nil {
			continue
		}
		userID, err := gid.Parse(node.User.ID)
		if err != nil {
			return nil, err
		}
		if node.SpentAt == nil {
			return nil, &FetchError{Op: op, Missing: fmt.Sprintf("spentAt on time log of %s", n.ID)}
		}
		tl := model.TimeLog{
			Time:   model.MinutesFromSeconds(node.TimeSpent),
			Date:   *node.SpentAt,
			UserID: userID,
		}
		attach(&tl)
		logs = append(logs, tl)
	}
	return logs, nil
}
