package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinutesFromSeconds(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 2, MinutesFromSeconds(125))
	assert.Equal(t, 0, MinutesFromSeconds(59))
	assert.Equal(t, 2, MinutesFromSeconds(120))
	assert.Equal(t, 1, MinutesFromSeconds(90))
}

func TestDedupMilestones_KeepsFirst(t *testing.T) {
	t.Parallel()
	got := DedupMilestones([]Milestone{
		{ID: 1, Name: "Q1"},
		{ID: 2, Name: "Q2"},
		{ID: 1, Name: "Q1 (project copy)"},
		{ID: 3, Name: "Q3"},
	})
	assert.Equal(t, []Milestone{{ID: 1, Name: "Q1"}, {ID: 2, Name: "Q2"}, {ID: 3, Name: "Q3"}}, got)
}

func TestUserIDSet(t *testing.T) {
	t.Parallel()
	set := UserIDSet{}
	set.AddTimeLogs([]TimeLog{{UserID: 3}, {UserID: 3}, {UserID: 7}, {UserID: 3}, {UserID: 7}})
	assert.Equal(t, []uint32{3, 7}, set.Sorted())
}

func TestTimeLogString(t *testing.T) {
	t.Parallel()
	tl := TimeLog{Time: 1, Date: "2024-01-01", UserID: 5, IssueID: Ptr(100)}
	assert.Equal(t, `TimeLog{time: 1, date: "2024-01-01", user_id: 5, issue_id: 100, merge_request_id: NULL}`, tl.String())
}
