package models

import "time"

// ComplaintCategory classifies a complaint.
type ComplaintCategory string

const (
	ComplaintCategoryMaintenance ComplaintCategory = "MAINTENANCE"
	ComplaintCategorySecurity    ComplaintCategory = "SECURITY"
	ComplaintCategoryFacilities  ComplaintCategory = "FACILITIES"
	ComplaintCategoryCleanliness ComplaintCategory = "CLEANLINESS"
	ComplaintCategoryNoise       ComplaintCategory = "NOISE"
	ComplaintCategoryOther       ComplaintCategory = "OTHER"
)

// ComplaintPriority ranks complaint urgency.
type ComplaintPriority string

const (
	ComplaintPriorityLow    ComplaintPriority = "LOW"
	ComplaintPriorityMedium ComplaintPriority = "MEDIUM"
	ComplaintPriorityHigh   ComplaintPriority = "HIGH"
	ComplaintPriorityUrgent ComplaintPriority = "URGENT"
)

// ComplaintStatus tracks the triage lifecycle.
type ComplaintStatus string

const (
	ComplaintStatusSubmitted  ComplaintStatus = "SUBMITTED"
	ComplaintStatusInProgress ComplaintStatus = "IN_PROGRESS"
	ComplaintStatusResolved   ComplaintStatus = "RESOLVED"
	ComplaintStatusClosed     ComplaintStatus = "CLOSED"
	ComplaintStatusRejected   ComplaintStatus = "REJECTED"
)

// Complaint represents a student-submitted issue and its resolution trail.
type Complaint struct {
	ID              string            `db:"id" json:"id"`
	SubmittedBy     string            `db:"submitted_by" json:"submitted_by"`
	Category        ComplaintCategory `db:"category" json:"category"`
	Priority        ComplaintPriority `db:"priority" json:"priority"`
	Subject         string            `db:"subject" json:"subject"`
	Description     string            `db:"description" json:"description"`
	Location        string            `db:"location" json:"location"`
	Status          ComplaintStatus   `db:"status" json:"status"`
	AssignedTo      *string           `db:"assigned_to" json:"assigned_to,omitempty"`
	AssignedAt      *time.Time        `db:"assigned_at" json:"assigned_at,omitempty"`
	ResolutionNotes string            `db:"resolution_notes" json:"resolution_notes"`
	ResolvedAt      *time.Time        `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// ComplaintFilter provides filters for listing complaints.
type ComplaintFilter struct {
	SubmittedBy string
	AssignedTo  string
	Category    ComplaintCategory
	Status      ComplaintStatus
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
