package models

import "time"

// RoomAllocation is a direct, staff-assigned student-to-room placement,
// independent of the application workflow. Multiple historical inactive rows
// per student are allowed; at most one is expected to be active.
type RoomAllocation struct {
	ID             string     `db:"id" json:"id"`
	StudentID      string     `db:"student_id" json:"student_id"`
	RoomID         string     `db:"room_id" json:"room_id"`
	IsActive       bool       `db:"is_active" json:"is_active"`
	AllocatedBy    string     `db:"allocated_by" json:"allocated_by"`
	AllocatedAt    time.Time  `db:"allocated_at" json:"allocated_at"`
	CheckoutAt     *time.Time `db:"checkout_at" json:"checkout_at,omitempty"`
	CheckoutReason string     `db:"checkout_reason" json:"checkout_reason"`
	Notes          string     `db:"notes" json:"notes"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// AllocationDetail enriches RoomAllocation with student and room info.
type AllocationDetail struct {
	RoomAllocation
	StudentNumber string `db:"student_number" json:"student_number"`
	StudentName   string `db:"student_name" json:"student_name"`
	RoomNumber    string `db:"room_number" json:"room_number"`
	Block         string `db:"block" json:"block"`
}

// AllocationFilter provides filters for listing allocations.
type AllocationFilter struct {
	StudentID string
	RoomID    string
	IsActive  *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
