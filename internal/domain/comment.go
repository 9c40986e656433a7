package domain

import "time"

// Comment is a message attached to a task by a project member.
type Comment struct {
	ID        int64
	TaskID    int64
	AuthorID  int64
	Text      string
	CreatedAt time.Time

	// AuthorName is populated on reads for display purposes.
	AuthorName string
}
