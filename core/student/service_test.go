package student_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/group"
	"github.com/academia-app/academia/core/payment"
	"github.com/academia-app/academia/core/student"
	dummydb "github.com/academia-app/academia/storage/database/dummy"
	testutil "github.com/academia-app/academia/tests"
)

type env struct {
	db      *dummydb.DB
	svc     *student.Service
	repo    student.Repository
	grpRepo group.Repository
	pmtRepo payment.Repository
}

func setup(t *testing.T) env {
	db := testutil.OpenDB(t)
	repo := dummydb.NewStudentRepository(db)
	grpRepo := dummydb.NewGroupRepository(db)
	return env{
		db:      db,
		svc:     student.NewService(db, repo, grpRepo),
		repo:    repo,
		grpRepo: grpRepo,
		pmtRepo: dummydb.NewPaymentRepository(db),
	}
}

func iPtr(i int) *int { return &i }

// failingStudentRepo fails the final write so rollback behavior can be observed.
type failingStudentRepo struct {
	student.Repository
}

func (r failingStudentRepo) DeleteStudent(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return errors.New("storage offline")
}

func TestService_List(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	s1 := testutil.CreateStudent(t, e.repo, "Maria Perez")
	s2 := testutil.CreateStudent(t, e.repo, "Juan Diaz")
	s3 := testutil.CreateStudent(t, e.repo, "Lucia Gomez")
	grp := testutil.CreateGroup(t, e.grpRepo, "Beginners", "Mon & Wed")
	testutil.AddStudentToGroup(t, e.grpRepo, grp.ID, s1.ID)
	testutil.AddStudentToGroup(t, e.grpRepo, grp.ID, s3.ID)

	t.Run("membership filter", func(t *testing.T) {
		students, count, err := e.svc.List(ctx, &student.QueryFilter{GroupID: iPtr(grp.ID)}, 0, 100)
		if err != nil {
			t.Fatalf("List(): %v", err)
		}
		if count != 2 || len(students) != 2 || students[0].ID != s1.ID || students[1].ID != s3.ID {
			t.Errorf("List() = %+v, count %d; want students %d and %d", students, count, s1.ID, s3.ID)
		}
	})

	t.Run("unknown group filter", func(t *testing.T) {
		if _, _, err := e.svc.List(ctx, &student.QueryFilter{GroupID: iPtr(999)}, 0, 100); err != group.ErrNotFound {
			t.Errorf("List() error = %v, want %v", err, group.ErrNotFound)
		}
	})

	t.Run("count covers the full set", func(t *testing.T) {
		students, count, err := e.svc.List(ctx, nil, 1, 1)
		if err != nil {
			t.Fatalf("List(): %v", err)
		}
		if count != 3 || len(students) != 1 || students[0].ID != s2.ID {
			t.Errorf("List() = %+v, count %d; want [%d], 3", students, count, s2.ID)
		}
	})
}

func TestService_Create(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	grp := testutil.CreateGroup(t, e.grpRepo, "Beginners", "Mon & Wed")

	t.Run("full name is required", func(t *testing.T) {
		_, err := e.svc.Create(ctx, student.NewStudent{})
		if _, ok := err.(validator.ValidationErrors); !ok {
			t.Errorf("Create() error = %v, want validation errors", err)
		}
	})

	t.Run("phone number accepts digits only", func(t *testing.T) {
		_, err := e.svc.Create(ctx, student.NewStudent{
			FullName:                    "Maria Perez",
			ResponsibleAdultPhoneNumber: "+549 11 5555",
		})
		if _, ok := err.(validator.ValidationErrors); !ok {
			t.Errorf("Create() error = %v, want validation errors", err)
		}
	})

	t.Run("unknown group leaves nothing behind", func(t *testing.T) {
		_, err := e.svc.Create(ctx, student.NewStudent{FullName: "Maria Perez", Groups: []int{grp.ID, 999}})
		if err != group.ErrNotFound {
			t.Fatalf("Create() error = %v, want %v", err, group.ErrNotFound)
		}
		count, err := e.repo.CountStudents(ctx, nil)
		if err != nil {
			t.Fatalf("CountStudents(): %v", err)
		}
		if count != 0 {
			t.Errorf("CountStudents() = %d, want 0", count)
		}
	})

	t.Run("student created with memberships", func(t *testing.T) {
		stud, err := e.svc.Create(ctx, student.NewStudent{FullName: "  Maria Perez ", Groups: []int{grp.ID}})
		if err != nil {
			t.Fatalf("Create(): %v", err)
		}
		if stud.FullName != "Maria Perez" {
			t.Errorf("Create() FullName = %q", stud.FullName)
		}
		if len(stud.GroupLinks) != 1 || stud.GroupLinks[0].GroupID != grp.ID {
			t.Errorf("Create() GroupLinks = %+v, want a single link to group %d", stud.GroupLinks, grp.ID)
		}
		if stud.CreatedAt.IsZero() {
			t.Error("Create() CreatedAt is zero")
		}
	})
}

func TestService_Update(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	t.Run("unknown student", func(t *testing.T) {
		if _, err := e.svc.Update(ctx, 999, student.UpdateStudent{}); err != student.ErrNotFound {
			t.Errorf("Update() error = %v, want %v", err, student.ErrNotFound)
		}
	})

	t.Run("nil groups leave memberships untouched", func(t *testing.T) {
		stud := testutil.CreateStudent(t, e.repo, "Maria Perez")
		grp := testutil.CreateGroup(t, e.grpRepo, "Beginners", "Mon & Wed")
		testutil.AddStudentToGroup(t, e.grpRepo, grp.ID, stud.ID)

		updated, err := e.svc.Update(ctx, stud.ID, student.UpdateStudent{City: "Rosario"})
		if err != nil {
			t.Fatalf("Update(): %v", err)
		}
		if updated.City != "Rosario" || updated.FullName != stud.FullName {
			t.Errorf("Update() = %+v", updated)
		}
		if len(updated.GroupLinks) != 1 {
			t.Errorf("Update() GroupLinks = %+v, want the existing link", updated.GroupLinks)
		}
	})

	t.Run("empty groups remove every membership", func(t *testing.T) {
		stud := testutil.CreateStudent(t, e.repo, "Juan Diaz")
		grp := testutil.CreateGroup(t, e.grpRepo, "Advanced", "Tue & Thu")
		testutil.AddStudentToGroup(t, e.grpRepo, grp.ID, stud.ID)

		updated, err := e.svc.Update(ctx, stud.ID, student.UpdateStudent{Groups: []int{}})
		if err != nil {
			t.Fatalf("Update(): %v", err)
		}
		if len(updated.GroupLinks) != 0 {
			t.Errorf("Update() GroupLinks = %+v, want none", updated.GroupLinks)
		}
	})

	t.Run("kept memberships preserve their joined_at", func(t *testing.T) {
		stud := testutil.CreateStudent(t, e.repo, "Lucia Gomez")
		kept := testutil.CreateGroup(t, e.grpRepo, "Saturday", "Sat only")
		joined := testutil.CreateGroup(t, e.grpRepo, "Evening", "Fri only")
		past := time.Now().UTC().AddDate(0, -3, 0)
		testutil.AddStudentToGroup(t, e.grpRepo, kept.ID, stud.ID, past)

		updated, err := e.svc.Update(ctx, stud.ID, student.UpdateStudent{Groups: []int{kept.ID, joined.ID}})
		if err != nil {
			t.Fatalf("Update(): %v", err)
		}
		if len(updated.GroupLinks) != 2 {
			t.Fatalf("Update() GroupLinks = %+v, want 2 links", updated.GroupLinks)
		}
		for _, link := range updated.GroupLinks {
			switch link.GroupID {
			case kept.ID:
				if !link.JoinedAt.Equal(past) {
					t.Errorf("kept link JoinedAt = %v, want %v", link.JoinedAt, past)
				}
			case joined.ID:
				if !link.JoinedAt.After(past) {
					t.Errorf("new link JoinedAt = %v, want a fresh timestamp", link.JoinedAt)
				}
			default:
				t.Errorf("unexpected link %+v", link)
			}
		}
	})

	t.Run("failed reconcile rolls everything back", func(t *testing.T) {
		stud := testutil.CreateStudent(t, e.repo, "Pedro Ruiz")
		grp := testutil.CreateGroup(t, e.grpRepo, "Morning", "Mon only")
		testutil.AddStudentToGroup(t, e.grpRepo, grp.ID, stud.ID)

		_, err := e.svc.Update(ctx, stud.ID, student.UpdateStudent{City: "Cordoba", Groups: []int{999}})
		if err != group.ErrNotFound {
			t.Fatalf("Update() error = %v, want %v", err, group.ErrNotFound)
		}

		after, err := e.repo.GetStudentByID(ctx, stud.ID)
		if err != nil {
			t.Fatalf("GetStudentByID(): %v", err)
		}
		if after.City != "" {
			t.Errorf("City = %q, want the update rolled back", after.City)
		}
		if len(after.GroupLinks) != 1 || after.GroupLinks[0].GroupID != grp.ID {
			t.Errorf("GroupLinks = %+v, want the original link intact", after.GroupLinks)
		}
	})
}

func TestService_Delete(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	t.Run("unknown student", func(t *testing.T) {
		if err := e.svc.Delete(ctx, 999); err != student.ErrNotFound {
			t.Errorf("Delete() error = %v, want %v", err, student.ErrNotFound)
		}
	})

	t.Run("failed delete leaves memberships and payments intact", func(t *testing.T) {
		stud := testutil.CreateStudent(t, e.repo, "Juan Diaz")
		grp := testutil.CreateGroup(t, e.grpRepo, "Advanced", "Tue & Thu")
		testutil.AddStudentToGroup(t, e.grpRepo, grp.ID, stud.ID)
		testutil.CreatePayment(t, e.pmtRepo, stud.ID, 800, core.Today())

		svc := student.NewService(e.db, failingStudentRepo{e.repo}, e.grpRepo)
		if err := svc.Delete(ctx, stud.ID); err == nil {
			t.Fatal("Delete() error = nil, want the storage error")
		}

		after, err := e.repo.GetStudentByID(ctx, stud.ID)
		if err != nil {
			t.Fatalf("GetStudentByID() error = %v, want the student intact", err)
		}
		if len(after.GroupLinks) != 1 {
			t.Errorf("GroupLinks = %+v, want the membership intact", after.GroupLinks)
		}
		payments, err := e.pmtRepo.QueryPayments(ctx, &payment.QueryFilter{StudentID: iPtr(stud.ID)}, 0, 10)
		if err != nil {
			t.Fatalf("QueryPayments(): %v", err)
		}
		if len(payments) != 1 {
			t.Errorf("payments = %+v, want the payment intact", payments)
		}
	})

	t.Run("delete cascades to memberships and payments", func(t *testing.T) {
		stud := testutil.CreateStudent(t, e.repo, "Maria Perez")
		grp := testutil.CreateGroup(t, e.grpRepo, "Beginners", "Mon & Wed")
		testutil.AddStudentToGroup(t, e.grpRepo, grp.ID, stud.ID)
		testutil.CreatePayment(t, e.pmtRepo, stud.ID, 1500, core.Today())

		if err := e.svc.Delete(ctx, stud.ID); err != nil {
			t.Fatalf("Delete(): %v", err)
		}
		if _, err := e.repo.GetStudentByID(ctx, stud.ID); err != student.ErrNotFound {
			t.Errorf("GetStudentByID() error = %v, want %v", err, student.ErrNotFound)
		}
		links, err := e.grpRepo.GetStudentLinksByStudent(ctx, stud.ID)
		if err != nil {
			t.Fatalf("GetStudentLinksByStudent(): %v", err)
		}
		if len(links) != 0 {
			t.Errorf("links = %+v, want none", links)
		}
		count, err := e.pmtRepo.CountPayments(ctx, &payment.QueryFilter{StudentID: iPtr(stud.ID)})
		if err != nil {
			t.Fatalf("CountPayments(): %v", err)
		}
		if count != 0 {
			t.Errorf("CountPayments() = %d, want 0", count)
		}
	})
}
