package gitlab

import (
	"context"

	"github.com/wham/gitlab-timereport/internal/gid"
	"github.com/wham/gitlab-timereport/internal/model"
)

type usersQuery struct {
	Users *struct {
		Nodes []*struct {
			ID       string
			Username string
		}
	} `graphql:"users(ids: $ids)"`
}

// UserFetcher looks up a batch of users by id in one request.
type UserFetcher struct {
	client *Client
}

// Fetch returns the users with the given ids in server order.
func (f *UserFetcher) Fetch(ctx context.Context, ids []uint32) ([]model.User, error) {
	const op = "users query"

	userIDs := make([]ID, 0, len(ids))
	for _, id := range ids {
		userIDs = append(userIDs, ID(gid.Format("User", id)))
	}

	var query usersQuery
	vars := map[string]any{
		"ids": userIDs,
	}
	if err := f.client.query(ctx, op, &query, vars); err != nil {
		return nil, err
	}

	if query.Users == nil {
		return nil, &FetchError{Op: op, Missing: "data.users"}
	}
	if query.Users.Nodes == nil {
		return nil, &FetchError{Op: op, Missing: "data.users.nodes"}
	}

	users := make([]model.User, 0, len(query.Users.Nodes))
	for _, node := range query.Users.Nodes {
		if node == nil {
			continue
		}
		id, err := gid.Parse(node.ID)
		if err != nil {
			return nil, err
		}
		users = append(users, model.User{ID: id, Username: node.Username})
	}
	return users, nil
}
