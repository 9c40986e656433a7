package domain

import "time"

// Activity records a project-scoped audit entry for a CRUD action.
type Activity struct {
	ID        int64
	ProjectID int64
	UserID    int64
	Action    string
	Details   string
	CreatedAt time.Time

	// Username is populated on reads for display purposes.
	Username string
}
