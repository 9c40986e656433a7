package domain

import "time"

// Project groups tasks and members under a single owner.
type Project struct {
	ID          int64
	Name        string
	Description string
	CreatedBy   int64
	Archived    bool
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Members     []User
}
