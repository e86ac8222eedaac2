package models

import "time"

// OccupancyStats aggregates room capacity usage across the hostel.
type OccupancyStats struct {
	TotalRooms     int     `db:"total_rooms" json:"total_rooms"`
	AvailableRooms int     `db:"available_rooms" json:"available_rooms"`
	TotalCapacity  int     `db:"total_capacity" json:"total_capacity"`
	TotalOccupied  int     `db:"total_occupied" json:"total_occupied"`
	OccupancyRate  float64 `json:"occupancy_rate"`
}

// DashboardSummary is the staff dashboard payload.
type DashboardSummary struct {
	Occupancy           OccupancyStats `json:"occupancy"`
	TotalStudents       int            `json:"total_students"`
	AllocatedStudents   int            `json:"allocated_students"`
	PendingApplications int            `json:"pending_applications"`
	OpenComplaints      int            `json:"open_complaints"`
	GeneratedAt         time.Time      `json:"generated_at"`
}

// StudentDashboard is the student-facing dashboard payload.
type StudentDashboard struct {
	Profile             *StudentProfile   `json:"profile,omitempty"`
	CurrentAllocation   *AllocationDetail `json:"current_allocation,omitempty"`
	PendingApplications int               `json:"pending_applications"`
	OpenComplaints      int               `json:"open_complaints"`
	AvailableRooms      int               `json:"available_rooms"`
	GeneratedAt         time.Time         `json:"generated_at"`
}
