package model

import (
	"fmt"
	"strconv"
)

// User represents a GitLab user referenced by a time log
type User struct {
	ID       uint32 `json:"id"`       // Primary key
	Username string `json:"username"` // GitLab login
}

// Project represents a project of the fetched group
type Project struct {
	ID   uint32 `json:"id"`   // Primary key
	Name string `json:"name"` // Display name, also used to build the project path
}

// Milestone represents a group-level or project-level milestone
type Milestone struct {
	ID   uint32 `json:"id"`   // Primary key
	Name string `json:"name"` // Milestone title
}

// Issue represents a GitLab issue
type Issue struct {
	ID          uint32  `json:"id"`           // Primary key (global id)
	IID         uint32  `json:"iid"`          // Project-scoped display number
	ProjectID   uint32  `json:"project_id"`   // Project the issue was fetched from
	MilestoneID *uint32 `json:"milestone_id"` // Nil when no milestone is set
	Name        string  `json:"name"`         // Issue title
}

// MergeRequest represents a GitLab merge request
type MergeRequest struct {
	ID          uint32  `json:"id"`           // Primary key (global id)
	IID         uint32  `json:"iid"`          // Project-scoped display number
	ProjectID   uint32  `json:"project_id"`   // Project the merge request was fetched from
	MilestoneID *uint32 `json:"milestone_id"` // Nil when no milestone is set
	Name        string  `json:"name"`         // Merge request title
}

// TimeLog is time spent by one user on an issue or a merge request.
// Exactly one of IssueID and MergeRequestID is set.
type TimeLog struct {
	Time           int     `json:"time"`             // Minutes
	Date           string  `json:"date"`             // spentAt as returned by the API
	UserID         uint32  `json:"user_id"`          // Author of the entry
	IssueID        *uint32 `json:"issue_id"`         // Set for issue time logs
	MergeRequestID *uint32 `json:"merge_request_id"` // Set for merge request time logs
}

// MinutesFromSeconds converts an API time-spent value to whole minutes.
func MinutesFromSeconds(seconds int) int {
	return seconds / 60
}

func (i Issue) String() string {
	return fmt.Sprintf("Issue{id: %d, iid: %d, project_id: %d, milestone_id: %s, name: %q}",
		i.ID, i.IID, i.ProjectID, optional(i.MilestoneID), i.Name)
}

func (m MergeRequest) String() string {
	return fmt.Sprintf("MergeRequest{id: %d, iid: %d, project_id: %d, milestone_id: %s, name: %q}",
		m.ID, m.IID, m.ProjectID, optional(m.MilestoneID), m.Name)
}

func (t TimeLog) String() string {
	return fmt.Sprintf("TimeLog{time: %d, date: %q, user_id: %d, issue_id: %s, merge_request_id: %s}",
		t.Time, t.Date, t.UserID, optional(t.IssueID), optional(t.MergeRequestID))
}

func optional(id *uint32) string {
	if id == nil {
		return "NULL"
	}
	return strconv.FormatUint(uint64(*id), 10)
}

// Ptr returns a pointer to a copy of id.
func Ptr(id uint32) *uint32 {
	return &id
}
