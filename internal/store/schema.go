package store

import (
	"database/sql"
	"fmt"
)

// Column order is part of the output format; rows are inserted positionally.
var tables = []struct {
	name string
	ddl  string
}{
	{"User", `
		CREATE TABLE User (
			id INTEGER NOT NULL PRIMARY KEY,
			username VARCHAR
		)`},
	{"Project", `
		CREATE TABLE Project (
			id INTEGER NOT NULL PRIMARY KEY,
			name VARCHAR
		)`},
	{"Milestone", `
		CREATE TABLE Milestone (
			id INTEGER NOT NULL PRIMARY KEY,
			name VARCHAR
		)`},
	{"Issue", `
		CREATE TABLE Issue (
			id INTEGER NOT NULL PRIMARY KEY,
			iid INTEGER NOT NULL,
			project_id INTEGER NOT NULL,
			milestone_id INTEGER,
			name VARCHAR,
			CONSTRAINT fk_project_id FOREIGN KEY (project_id) REFERENCES Project (id),
			CONSTRAINT fk_milestone_id FOREIGN KEY (milestone_id) REFERENCES Milestone (id)
		)`},
	{"MergeRequest", `
		CREATE TABLE MergeRequest (
			id INTEGER NOT NULL PRIMARY KEY,
			iid INTEGER NOT NULL,
			project_id INTEGER NOT NULL,
			milestone_id INTEGER,
			name VARCHAR,
			CONSTRAINT fk_project_id FOREIGN KEY (project_id) REFERENCES Project (id),
			CONSTRAINT fk_milestone_id FOREIGN KEY (milestone_id) REFERENCES Milestone (id)
		)`},
	{"TimeLog", `
		CREATE TABLE TimeLog (
			time INTEGER NOT NULL,
			date VARCHAR NOT NULL,
			user_id INTEGER NOT NULL,
			issue_id INTEGER,
			merge_request_id INTEGER,
			PRIMARY KEY (user_id, date),
			CONSTRAINT fk_user_id FOREIGN KEY (user_id) REFERENCES User (id),
			CONSTRAINT fk_issue_id FOREIGN KEY (issue_id) REFERENCES Issue (id),
			CONSTRAINT fk_merge_request_id FOREIGN KEY (merge_request_id) REFERENCES MergeRequest (id)
		)`},
}

// createAllTables creates the six report tables
func createAllTables(db *sql.DB) error {
	for _, t := range tables {
		if _, err := db.Exec(t.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}
	return nil
}
