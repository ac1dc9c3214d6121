package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/group"
	"github.com/academia-app/academia/core/lesson"
	"github.com/academia-app/academia/core/payment"
	"github.com/academia-app/academia/core/student"
	"github.com/academia-app/academia/core/user"
	dummydb "github.com/academia-app/academia/storage/database/dummy"
)

// OpenDB returns a fresh in-memory database.
func OpenDB(t *testing.T) *dummydb.DB {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("OpenDB(): %v", err)
	}
	return db
}

// ResetDB wipes all rows. Call it at the start of every test that shares a DB.
func ResetDB(t *testing.T, db *dummydb.DB) {
	t.Helper()
	db.Reset()
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	isSuperuser bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		FullName:    name,
		Email:       email,
		IsActive:    true,
		IsSuperuser: isSuperuser,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func CreateGroup(t *testing.T, repo group.Repository, name, description string) group.Group {
	grp, err := repo.CreateGroup(context.Background(), group.Group{
		Name:        name,
		Description: description,
	})
	if err != nil {
		t.Fatalf("CreateGroup(): %v", err)
	}
	return grp
}

func CreateStudent(t *testing.T, repo student.Repository, fullName string) student.Student {
	stud, err := repo.CreateStudent(context.Background(), student.Student{
		FullName:  fullName,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateStudent(): %v", err)
	}
	return stud
}

// AddStudentToGroup registers the student in the group and returns the link.
func AddStudentToGroup(t *testing.T, repo group.Repository, groupID, studentID int, joinedAt ...time.Time) group.StudentLink {
	tstamp := time.Now().UTC()
	if len(joinedAt) > 0 {
		tstamp = joinedAt[0].UTC()
	}
	link, err := repo.CreateStudentLink(context.Background(), group.StudentLink{
		GroupID:   groupID,
		StudentID: studentID,
		JoinedAt:  tstamp,
	})
	if err != nil {
		t.Fatalf("AddStudentToGroup(): %v", err)
	}
	return link
}

func CreateLesson(t *testing.T, repo lesson.Repository, groupID int, day core.Date) lesson.Lesson {
	les, err := repo.CreateLesson(context.Background(), lesson.Lesson{
		Day:     day,
		GroupID: groupID,
	})
	if err != nil {
		t.Fatalf("CreateLesson(): %v", err)
	}
	return les
}

func CreatePayment(t *testing.T, repo payment.Repository, studentID, amount int, day core.Date) payment.Payment {
	pmt, err := repo.CreatePayment(context.Background(), payment.Payment{
		Amount:    amount,
		Day:       day,
		Method:    payment.MethodCash,
		Reason:    payment.ReasonOneMonth,
		StudentID: studentID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreatePayment(): %v", err)
	}
	return pmt
}
