package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/hostelhq/hostel-api/internal/models"
	"github.com/hostelhq/hostel-api/internal/repository"
	"github.com/hostelhq/hostel-api/internal/service"
	"github.com/hostelhq/hostel-api/pkg/config"
	"github.com/hostelhq/hostel-api/pkg/database"
)

var (
	blocks         = []string{"A", "B", "C"}
	floorsPerBlock = 3
	roomsPerFloor  = 8
)

type seedRepos struct {
	users        *repository.UserRepository
	students     *repository.StudentRepository
	rooms        *repository.RoomRepository
	allocations  *repository.AllocationRepository
	applications *repository.ApplicationRepository
	notices      *repository.NoticeRepository
	complaints   *repository.ComplaintRepository
}

// staffAccounts holds the non-student accounts the demo data hangs off:
// allocations are made by staff, applications reviewed by staff or the
// provost, complaints assigned to staff.
type staffAccounts struct {
	admin   *models.User
	staff   *models.User
	provost *models.User
}

func main() {
	adminEmail := flag.String("admin-email", "admin@hostel.local", "admin account email")
	adminPassword := flag.String("admin-password", "admin123", "admin account password")
	withStudents := flag.Int("students", 10, "number of demo students to create (0 disables)")
	clearFirst := flag.Bool("clear", false, "delete previously seeded data before seeding")
	usersOnly := flag.Bool("users-only", false, "seed only accounts and student profiles")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repos := seedRepos{
		users:        repository.NewUserRepository(db),
		students:     repository.NewStudentRepository(db),
		rooms:        repository.NewRoomRepository(db),
		allocations:  repository.NewAllocationRepository(db),
		applications: repository.NewApplicationRepository(db),
		notices:      repository.NewNoticeRepository(db),
		complaints:   repository.NewComplaintRepository(db),
	}

	if *clearFirst {
		if err := clearAll(ctx, db); err != nil {
			log.Fatalf("clear data: %v", err)
		}
	}

	accounts, err := seedAccounts(ctx, repos.users, *adminEmail, *adminPassword)
	if err != nil {
		log.Fatalf("seed accounts: %v", err)
	}

	if *withStudents > 0 {
		if err := seedStudents(ctx, repos, *withStudents); err != nil {
			log.Fatalf("seed students: %v", err)
		}
	}

	if *usersOnly {
		log.Println("seeding complete (users only)")
		return
	}

	if err := seedRooms(ctx, repos.rooms); err != nil {
		log.Fatalf("seed rooms: %v", err)
	}
	if err := seedAllocations(ctx, repos, accounts); err != nil {
		log.Fatalf("seed allocations: %v", err)
	}
	if err := seedApplications(ctx, repos, accounts); err != nil {
		log.Fatalf("seed applications: %v", err)
	}
	if err := seedNotices(ctx, repos.notices, accounts); err != nil {
		log.Fatalf("seed notices: %v", err)
	}
	if err := seedComplaints(ctx, repos, accounts); err != nil {
		log.Fatalf("seed complaints: %v", err)
	}

	log.Println("seeding complete")
}

// clearAll wipes seeded rows in foreign-key order, children before parents.
func clearAll(ctx context.Context, db *sqlx.DB) error {
	tables := []string{
		"room_allocations",
		"room_applications",
		"complaints",
		"notices",
		"refresh_tokens",
		"audit_logs",
		"student_profiles",
		"rooms",
		"users",
	}
	for _, table := range tables {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	log.Println("cleared existing data")
	return nil
}

func seedAccounts(ctx context.Context, users *repository.UserRepository, adminEmail, adminPassword string) (*staffAccounts, error) {
	admin, err := ensureUser(ctx, users, adminEmail, adminPassword, "Hostel Administrator", models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	staff, err := ensureUser(ctx, users, "staff@hostel.local", "staff123", "Hostel Staff", models.RoleStaff)
	if err != nil {
		return nil, err
	}
	provost, err := ensureUser(ctx, users, "provost@hostel.local", "provost123", "Hostel Provost", models.RoleProvost)
	if err != nil {
		return nil, err
	}
	return &staffAccounts{admin: admin, staff: staff, provost: provost}, nil
}

func ensureUser(ctx context.Context, users *repository.UserRepository, email, password, fullName string, role models.UserRole) (*models.User, error) {
	if existing, err := users.FindByEmail(ctx, email); err == nil {
		return existing, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
		Role:         role,
		Active:       true,
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, err
	}
	log.Printf("created %s %s", role, email)
	return user, nil
}

func seedStudents(ctx context.Context, repos seedRepos, count int) error {
	levels := []models.AcademicLevel{
		models.AcademicLevelUndergraduate,
		models.AcademicLevelGraduate,
		models.AcademicLevelPostgraduate,
		models.AcademicLevelPhD,
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("student123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	created := 0
	for i := 1; i <= count; i++ {
		number := fmt.Sprintf("STU%04d", i)
		if _, err := repos.students.FindByStudentNumber(ctx, number); err == nil {
			continue
		}

		user := &models.User{
			Email:        fmt.Sprintf("student%d@hostel.local", i),
			PasswordHash: string(hash),
			FullName:     fmt.Sprintf("Demo Student %d", i),
			Role:         models.RoleStudent,
			Active:       true,
		}
		if err := repos.users.Create(ctx, user); err != nil {
			return err
		}

		profile := &models.StudentProfile{
			UserID:        user.ID,
			StudentNumber: number,
			Department:    "Computer Science",
			Faculty:       "Engineering",
			AcademicLevel: levels[i%len(levels)],
			AcademicYear:  2022 + i%4,
			Semester:      1 + i%2,
			EnrolledAt:    time.Now().UTC(),
		}
		if err := repos.students.Create(ctx, profile); err != nil {
			return err
		}
		created++
	}
	log.Printf("created %d students", created)
	return nil
}

func seedRooms(ctx context.Context, rooms *repository.RoomRepository) error {
	created := 0
	for _, block := range blocks {
		for floor := 1; floor <= floorsPerBlock; floor++ {
			for n := 1; n <= roomsPerFloor; n++ {
				number := fmt.Sprintf("%s%d%02d", block, floor, n)
				if _, err := rooms.FindByNumber(ctx, block, number); err == nil {
					continue
				}
				roomType := models.RoomTypeDouble
				capacity := 2
				switch n % 4 {
				case 0:
					roomType = models.RoomTypeSingle
					capacity = 1
				case 3:
					roomType = models.RoomTypeDormitory
					capacity = 6
				}
				room := &models.Room{
					RoomNumber:  number,
					Block:       block,
					Floor:       floor,
					RoomType:    roomType,
					Capacity:    capacity,
					HasBathroom: n%2 == 0,
					HasAC:       floor == floorsPerBlock,
					IsAvailable: true,
				}
				if err := rooms.Create(ctx, room); err != nil {
					return err
				}
				created++
			}
		}
	}
	log.Printf("created %d rooms", created)
	return nil
}

// seedAllocations places a couple of students through the allocation
// repository so the seeded data carries real occupancy counts and
// is_allocated flags instead of hand-written ones.
func seedAllocations(ctx context.Context, repos seedRepos, accounts *staffAccounts) error {
	placements := []struct {
		studentNumber string
		block         string
		roomNumber    string
		notes         string
	}{
		{"STU0002", "A", "A102", "Allocated based on academic performance"},
		{"STU0006", "B", "B101", "Standard allocation"},
	}

	created := 0
	for _, p := range placements {
		student, err := repos.students.FindByStudentNumber(ctx, p.studentNumber)
		if err != nil {
			log.Printf("skip allocation for %s: %v", p.studentNumber, err)
			continue
		}
		if _, err := repos.allocations.FindActiveByStudent(ctx, student.ID); err == nil {
			continue
		}
		room, err := repos.rooms.FindByNumber(ctx, p.block, p.roomNumber)
		if err != nil {
			return err
		}

		allocation := &models.RoomAllocation{
			StudentID:   student.ID,
			RoomID:      room.ID,
			AllocatedBy: accounts.staff.ID,
			Notes:       p.notes,
		}
		if err := repos.allocations.Create(ctx, allocation); err != nil {
			return err
		}
		created++
	}
	log.Printf("created %d allocations", created)
	return nil
}

// seedApplications creates applications in each lifecycle state. Reviews go
// through UpdateStatus so approvals carry occupancy side effects exactly as
// they would in production.
func seedApplications(ctx context.Context, repos seedRepos, accounts *staffAccounts) error {
	requests := []struct {
		studentNumber string
		block         string
		roomNumber    string
		preferences   string
		decision      models.ApplicationStatus
		reviewer      *models.User
		adminNotes    string
	}{
		{"STU0001", "A", "A101", "Prefer quiet environment for studies", models.ApplicationStatusPending, nil, ""},
		{"STU0003", "C", "C301", "Need AC for health reasons", models.ApplicationStatusApproved, nil, "Approved due to high priority score and medical needs"},
		{"STU0004", "A", "A201", "Prefer upper floors", models.ApplicationStatusPending, nil, ""},
		{"STU0005", "C", "C302", "PhD student, need quiet space", models.ApplicationStatusRejected, nil, "Room reserved for faculty guest"},
	}
	requests[1].reviewer = accounts.staff
	requests[3].reviewer = accounts.provost

	created := 0
	for _, req := range requests {
		student, err := repos.students.FindByStudentNumber(ctx, req.studentNumber)
		if err != nil {
			log.Printf("skip application for %s: %v", req.studentNumber, err)
			continue
		}
		room, err := repos.rooms.FindByNumber(ctx, req.block, req.roomNumber)
		if err != nil {
			return err
		}
		if _, total, err := repos.applications.List(ctx, models.ApplicationFilter{
			StudentID: student.ID,
			RoomID:    room.ID,
			PageSize:  1,
		}); err != nil {
			return err
		} else if total > 0 {
			continue
		}

		application := &models.RoomApplication{
			StudentID:     student.ID,
			RoomID:        room.ID,
			Preferences:   req.preferences,
			PriorityScore: service.PriorityScore(student.AcademicLevel, student.AcademicYear),
		}
		if err := repos.applications.Create(ctx, application); err != nil {
			return err
		}
		if req.decision != models.ApplicationStatusPending {
			reviewerID := req.reviewer.ID
			if _, err := repos.applications.UpdateStatus(ctx, application.ID, req.decision, &reviewerID, req.adminNotes); err != nil {
				return err
			}
		}
		created++
	}
	log.Printf("created %d applications", created)
	return nil
}

func seedNotices(ctx context.Context, notices *repository.NoticeRepository, accounts *staffAccounts) error {
	if _, total, err := notices.List(ctx, models.NoticeFilter{PageSize: 1}); err != nil {
		return err
	} else if total > 0 {
		return nil
	}

	expiry := time.Now().UTC().AddDate(0, 1, 0)
	entries := []struct {
		notice  models.Notice
		publish bool
	}{
		{
			notice: models.Notice{
				Title:     "Welcome to the Hostel Management System",
				Content:   "The hostel portal is now live. Apply for rooms, track applications, file complaints and read notices online. Contact IT support for technical issues.",
				Category:  models.NoticeCategoryGeneral,
				Priority:  models.NoticePriorityMedium,
				CreatedBy: accounts.staff.ID,
				IsActive:  true,
			},
			publish: true,
		},
		{
			notice: models.Notice{
				Title:     "Room Application Deadline",
				Content:   "Room applications for the upcoming semester close at the end of next month. Late applications will not be accepted. Allocation results follow within a week.",
				Category:  models.NoticeCategoryUrgent,
				Priority:  models.NoticePriorityHigh,
				CreatedBy: accounts.provost.ID,
				IsActive:  true,
				ExpiresAt: &expiry,
			},
			publish: true,
		},
		{
			notice: models.Notice{
				Title:     "Maintenance Schedule, Block A",
				Content:   "Block A undergoes electrical maintenance next week. Expect intermittent power and WiFi interruptions between 9 AM and 5 PM.",
				Category:  models.NoticeCategoryMaintenance,
				Priority:  models.NoticePriorityMedium,
				CreatedBy: accounts.staff.ID,
				IsActive:  true,
			},
			publish: false,
		},
	}

	for i := range entries {
		if err := notices.Create(ctx, &entries[i].notice); err != nil {
			return err
		}
		if entries[i].publish {
			if err := notices.Publish(ctx, entries[i].notice.ID, time.Now().UTC()); err != nil {
				return err
			}
		}
	}
	log.Printf("created %d notices", len(entries))
	return nil
}

func seedComplaints(ctx context.Context, repos seedRepos, accounts *staffAccounts) error {
	if _, total, err := repos.complaints.List(ctx, models.ComplaintFilter{PageSize: 1}); err != nil {
		return err
	} else if total > 0 {
		return nil
	}

	entries := []struct {
		submitterEmail string
		complaint      models.Complaint
		assign         bool
	}{
		{
			submitterEmail: "student1@hostel.local",
			complaint: models.Complaint{
				Category:    models.ComplaintCategoryMaintenance,
				Priority:    models.ComplaintPriorityMedium,
				Subject:     "WiFi connection issues in Block A",
				Description: "The WiFi on the first floor of Block A has been very slow for a week, making online classes impossible.",
				Location:    "Block A, Floor 1",
			},
		},
		{
			submitterEmail: "student2@hostel.local",
			complaint: models.Complaint{
				Category:    models.ComplaintCategoryFacilities,
				Priority:    models.ComplaintPriorityLow,
				Subject:     "Extend study room hours",
				Description: "The study room closes at 10 PM. Please extend the hours until midnight during exam weeks.",
				Location:    "Common Study Room",
			},
			assign: true,
		},
		{
			submitterEmail: "student4@hostel.local",
			complaint: models.Complaint{
				Category:    models.ComplaintCategorySecurity,
				Priority:    models.ComplaintPriorityHigh,
				Subject:     "Broken lock in room A203",
				Description: "The door lock in room A203 is broken and the room cannot be secured.",
				Location:    "Block A, Room A203",
			},
		},
	}

	created := 0
	for i := range entries {
		submitter, err := repos.users.FindByEmail(ctx, entries[i].submitterEmail)
		if err != nil {
			log.Printf("skip complaint from %s: %v", entries[i].submitterEmail, err)
			continue
		}
		entries[i].complaint.SubmittedBy = submitter.ID
		if err := repos.complaints.Create(ctx, &entries[i].complaint); err != nil {
			return err
		}
		if entries[i].assign {
			if err := repos.complaints.Assign(ctx, entries[i].complaint.ID, accounts.staff.ID, time.Now().UTC()); err != nil {
				return err
			}
		}
		created++
	}
	log.Printf("created %d complaints", created)
	return nil
}
