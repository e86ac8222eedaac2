package models

import "time"

// NoticeCategory classifies a notice.
type NoticeCategory string

const (
	NoticeCategoryGeneral     NoticeCategory = "GENERAL"
	NoticeCategoryImportant   NoticeCategory = "IMPORTANT"
	NoticeCategoryUrgent      NoticeCategory = "URGENT"
	NoticeCategoryAcademic    NoticeCategory = "ACADEMIC"
	NoticeCategoryMaintenance NoticeCategory = "MAINTENANCE"
)

// NoticePriority ranks notices for display ordering.
type NoticePriority string

const (
	NoticePriorityLow    NoticePriority = "LOW"
	NoticePriorityMedium NoticePriority = "MEDIUM"
	NoticePriorityHigh   NoticePriority = "HIGH"
	NoticePriorityUrgent NoticePriority = "URGENT"
)

// Notice represents a hostel announcement.
type Notice struct {
	ID          string         `db:"id" json:"id"`
	Title       string         `db:"title" json:"title"`
	Content     string         `db:"content" json:"content"`
	Category    NoticeCategory `db:"category" json:"category"`
	Priority    NoticePriority `db:"priority" json:"priority"`
	CreatedBy   string         `db:"created_by" json:"created_by"`
	IsActive    bool           `db:"is_active" json:"is_active"`
	IsPublished bool           `db:"is_published" json:"is_published"`
	PublishedAt *time.Time     `db:"published_at" json:"published_at,omitempty"`
	ExpiresAt   *time.Time     `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// IsExpired reports whether the notice passed its expiry time.
func (n Notice) IsExpired(now time.Time) bool {
	return n.ExpiresAt != nil && now.After(*n.ExpiresAt)
}

// NoticeFilter provides filters for listing notices.
type NoticeFilter struct {
	Category      NoticeCategory
	PublishedOnly bool
	Page          int
	PageSize      int
}
