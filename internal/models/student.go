package models

import "time"

// AcademicLevel enumerates the study levels used for priority scoring.
type AcademicLevel string

const (
	AcademicLevelUndergraduate AcademicLevel = "UNDERGRADUATE"
	AcademicLevelGraduate      AcademicLevel = "GRADUATE"
	AcademicLevelPostgraduate  AcademicLevel = "POSTGRADUATE"
	AcademicLevelPhD           AcademicLevel = "PHD"
)

// StudentProfile stores student-specific information linked one-to-one to a user.
// IsAllocated is a derived projection: true iff the student holds at least one
// active allocation or one approved application. It is written only by the
// occupancy engine.
type StudentProfile struct {
	ID                   string        `db:"id" json:"id"`
	UserID               string        `db:"user_id" json:"user_id"`
	StudentNumber        string        `db:"student_number" json:"student_number"`
	Department           string        `db:"department" json:"department"`
	Faculty              string        `db:"faculty" json:"faculty"`
	AcademicLevel        AcademicLevel `db:"academic_level" json:"academic_level"`
	AcademicYear         int           `db:"academic_year" json:"academic_year"`
	Semester             int           `db:"semester" json:"semester"`
	EmergencyContact     string        `db:"emergency_contact" json:"emergency_contact"`
	EmergencyContactName string        `db:"emergency_contact_name" json:"emergency_contact_name"`
	EnrolledAt           time.Time     `db:"enrolled_at" json:"enrolled_at"`
	IsAllocated          bool          `db:"is_allocated" json:"is_allocated"`
	CreatedAt            time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentDetail enriches StudentProfile with account info for list screens.
type StudentDetail struct {
	StudentProfile
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search      string
	Department  string
	Faculty     string
	IsAllocated *bool
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
