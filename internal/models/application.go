package models

import "time"

// ApplicationStatus represents the lifecycle of a room application.
type ApplicationStatus string

// Possible application statuses.
const (
	ApplicationStatusPending   ApplicationStatus = "PENDING"
	ApplicationStatusApproved  ApplicationStatus = "APPROVED"
	ApplicationStatusRejected  ApplicationStatus = "REJECTED"
	ApplicationStatusWithdrawn ApplicationStatus = "WITHDRAWN"
)

// RoomApplication captures a student's request for a room. The (student, room)
// pair is unique. Occupancy side effects fire only on status edges, never on
// plain re-saves.
type RoomApplication struct {
	ID            string            `db:"id" json:"id"`
	StudentID     string            `db:"student_id" json:"student_id"`
	RoomID        string            `db:"room_id" json:"room_id"`
	Preferences   string            `db:"preferences" json:"preferences"`
	Status        ApplicationStatus `db:"status" json:"status"`
	PriorityScore int               `db:"priority_score" json:"priority_score"`
	ReviewedBy    *string           `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time        `db:"reviewed_at" json:"reviewed_at,omitempty"`
	AdminNotes    string            `db:"admin_notes" json:"admin_notes"`
	AppliedAt     time.Time         `db:"applied_at" json:"applied_at"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// ApplicationDetail enriches RoomApplication with student and room info.
type ApplicationDetail struct {
	RoomApplication
	StudentNumber string `db:"student_number" json:"student_number"`
	StudentName   string `db:"student_name" json:"student_name"`
	RoomNumber    string `db:"room_number" json:"room_number"`
	Block         string `db:"block" json:"block"`
}

// ApplicationFilter provides filters for listing applications.
type ApplicationFilter struct {
	StudentID string
	RoomID    string
	Status    ApplicationStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
