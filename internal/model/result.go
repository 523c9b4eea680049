package model

import "sort"

// Result is the consolidated result set of one extraction run.
type Result struct {
	Projects      []Project
	Milestones    []Milestone
	Issues        []Issue
	MergeRequests []MergeRequest
	TimeLogs      []TimeLog
	Users         []User
}

// DedupMilestones drops milestones whose id was already seen, keeping the
// first occurrence. Order is otherwise preserved.
func DedupMilestones(milestones []Milestone) []Milestone {
	seen := make(map[uint32]struct{}, len(milestones))
	out := make([]Milestone, 0, len(milestones))
	for _, m := range milestones {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}

// UserIDSet collects distinct user ids.
type UserIDSet map[uint32]struct{}

// AddTimeLogs records the user of every time log.
func (s UserIDSet) AddTimeLogs(logs []TimeLog) {
	for _, tl := range logs {
		s[tl.UserID] = struct{}{}
	}
}

// Sorted returns the ids in ascending order.
func (s UserIDSet) Sorted() []uint32 {
	ids := make([]uint32, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
