package lesson_test

import (
	"context"
	"errors"
	"testing"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/group"
	"github.com/academia-app/academia/core/lesson"
	"github.com/academia-app/academia/core/student"
	dummydb "github.com/academia-app/academia/storage/database/dummy"
	testutil "github.com/academia-app/academia/tests"
)

type env struct {
	db       *dummydb.DB
	svc      *lesson.Service
	repo     lesson.Repository
	grpRepo  group.Repository
	studRepo student.Repository
}

func setup(t *testing.T) env {
	db := testutil.OpenDB(t)
	repo := dummydb.NewLessonRepository(db)
	grpRepo := dummydb.NewGroupRepository(db)
	return env{
		db:       db,
		svc:      lesson.NewService(db, repo, grpRepo),
		repo:     repo,
		grpRepo:  grpRepo,
		studRepo: dummydb.NewStudentRepository(db),
	}
}

func iPtr(i int) *int { return &i }

func TestService_List(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	g1 := testutil.CreateGroup(t, e.grpRepo, "Beginners", "Mon & Wed")
	g2 := testutil.CreateGroup(t, e.grpRepo, "Advanced", "Tue & Thu")
	stud := testutil.CreateStudent(t, e.studRepo, "Maria Perez")
	testutil.AddStudentToGroup(t, e.grpRepo, g1.ID, stud.ID)

	today := core.Today()
	l1 := testutil.CreateLesson(t, e.repo, g1.ID, core.DateOf(today.AddDate(0, 0, -2)))
	l2 := testutil.CreateLesson(t, e.repo, g2.ID, core.DateOf(today.AddDate(0, 0, -1)))
	l3 := testutil.CreateLesson(t, e.repo, g1.ID, today)
	if _, err := e.repo.CreateStudentLink(ctx, lesson.StudentLink{LessonID: l3.ID, StudentID: stud.ID}); err != nil {
		t.Fatalf("CreateStudentLink(): %v", err)
	}

	t.Run("ordered by most recent day", func(t *testing.T) {
		lessons, count, err := e.svc.List(ctx, nil, 0, 100)
		if err != nil {
			t.Fatalf("List(): %v", err)
		}
		if count != 3 || len(lessons) != 3 {
			t.Fatalf("List() count = %d, len = %d; want 3", count, len(lessons))
		}
		for i, want := range []int{l3.ID, l2.ID, l1.ID} {
			if lessons[i].ID != want {
				t.Errorf("List() lessons[%d].ID = %d, want %d", i, lessons[i].ID, want)
			}
		}
	})

	t.Run("same day breaks the tie on newest id", func(t *testing.T) {
		extra := testutil.CreateLesson(t, e.repo, g2.ID, today)
		defer func() {
			if err := e.repo.DeleteLesson(ctx, extra.ID); err != nil {
				t.Fatalf("DeleteLesson(): %v", err)
			}
		}()

		lessons, _, err := e.svc.List(ctx, nil, 0, 2)
		if err != nil {
			t.Fatalf("List(): %v", err)
		}
		if len(lessons) != 2 || lessons[0].ID != extra.ID || lessons[1].ID != l3.ID {
			t.Errorf("List() = %+v, want [%d %d]", lessons, extra.ID, l3.ID)
		}
	})

	t.Run("group filter", func(t *testing.T) {
		lessons, count, err := e.svc.List(ctx, &lesson.QueryFilter{GroupID: iPtr(g1.ID)}, 0, 100)
		if err != nil {
			t.Fatalf("List(): %v", err)
		}
		if count != 2 || len(lessons) != 2 || lessons[0].ID != l3.ID || lessons[1].ID != l1.ID {
			t.Errorf("List() = %+v, count %d; want lessons %d and %d", lessons, count, l3.ID, l1.ID)
		}
	})

	t.Run("assistant filter", func(t *testing.T) {
		lessons, count, err := e.svc.List(ctx, &lesson.QueryFilter{StudentID: iPtr(stud.ID)}, 0, 100)
		if err != nil {
			t.Fatalf("List(): %v", err)
		}
		if count != 1 || len(lessons) != 1 || lessons[0].ID != l3.ID {
			t.Errorf("List() = %+v, count %d; want lesson %d", lessons, count, l3.ID)
		}
	})

	t.Run("unknown group filter", func(t *testing.T) {
		if _, _, err := e.svc.List(ctx, &lesson.QueryFilter{GroupID: iPtr(999)}, 0, 100); err != group.ErrNotFound {
			t.Errorf("List() error = %v, want %v", err, group.ErrNotFound)
		}
	})

	t.Run("unknown assistant filter", func(t *testing.T) {
		if _, _, err := e.svc.List(ctx, &lesson.QueryFilter{StudentID: iPtr(999)}, 0, 100); err != student.ErrNotFound {
			t.Errorf("List() error = %v, want %v", err, student.ErrNotFound)
		}
	})
}

func TestService_Create(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	grp := testutil.CreateGroup(t, e.grpRepo, "Beginners", "Mon & Wed")
	member := testutil.CreateStudent(t, e.studRepo, "Maria Perez")
	outsider := testutil.CreateStudent(t, e.studRepo, "Juan Diaz")
	testutil.AddStudentToGroup(t, e.grpRepo, grp.ID, member.ID)

	today := core.Today()

	t.Run("unknown group", func(t *testing.T) {
		_, err := e.svc.Create(ctx, lesson.NewLesson{Day: today, GroupID: 999})
		if err != group.ErrNotFound {
			t.Errorf("Create() error = %v, want %v", err, group.ErrNotFound)
		}
	})

	t.Run("one lesson per group per day", func(t *testing.T) {
		day := core.DateOf(today.AddDate(0, 0, -7))
		testutil.CreateLesson(t, e.repo, grp.ID, day)
		_, err := e.svc.Create(ctx, lesson.NewLesson{Day: day, GroupID: grp.ID})
		if err != lesson.ErrAlreadyExists {
			t.Errorf("Create() error = %v, want %v", err, lesson.ErrAlreadyExists)
		}
	})

	t.Run("unknown assistant leaves nothing behind", func(t *testing.T) {
		before, err := e.repo.CountLessons(ctx, nil)
		if err != nil {
			t.Fatalf("CountLessons(): %v", err)
		}
		if _, err = e.svc.Create(ctx, lesson.NewLesson{Day: today, GroupID: grp.ID, Assistants: []int{999}}); err != student.ErrNotFound {
			t.Fatalf("Create() error = %v, want %v", err, student.ErrNotFound)
		}
		after, err := e.repo.CountLessons(ctx, nil)
		if err != nil {
			t.Fatalf("CountLessons(): %v", err)
		}
		if after != before {
			t.Errorf("CountLessons() = %d, want %d", after, before)
		}
	})

	t.Run("assistant must be registered in the group", func(t *testing.T) {
		_, err := e.svc.Create(ctx, lesson.NewLesson{Day: today, GroupID: grp.ID, Assistants: []int{outsider.ID}})
		var nrErr *lesson.NotRegisteredError
		if !errors.As(err, &nrErr) {
			t.Fatalf("Create() error = %v, want NotRegisteredError", err)
		}
		if nrErr.StudentID != outsider.ID || nrErr.GroupID != grp.ID {
			t.Errorf("NotRegisteredError = %+v", nrErr)
		}
	})

	t.Run("lesson created with assistants", func(t *testing.T) {
		les, err := e.svc.Create(ctx, lesson.NewLesson{
			Day:        today,
			Notes:      " covered openings ",
			GroupID:    grp.ID,
			Assistants: []int{member.ID},
		})
		if err != nil {
			t.Fatalf("Create(): %v", err)
		}
		if !les.Day.Equal(today) || les.Notes != "covered openings" || les.Group.ID != grp.ID {
			t.Errorf("Create() = %+v", les)
		}
		if len(les.Assistants) != 1 || les.Assistants[0].ID != member.ID {
			t.Errorf("Create() Assistants = %+v, want student %d", les.Assistants, member.ID)
		}
	})
}

func TestService_Update(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	grp := testutil.CreateGroup(t, e.grpRepo, "Beginners", "Mon & Wed")
	member := testutil.CreateStudent(t, e.studRepo, "Maria Perez")
	testutil.AddStudentToGroup(t, e.grpRepo, grp.ID, member.ID)

	today := core.Today()
	les := testutil.CreateLesson(t, e.repo, grp.ID, core.DateOf(today.AddDate(0, 0, -1)))
	other := testutil.CreateLesson(t, e.repo, grp.ID, today)

	t.Run("unknown lesson", func(t *testing.T) {
		if _, err := e.svc.Update(ctx, 999, lesson.UpdateLesson{}); err != lesson.ErrNotFound {
			t.Errorf("Update() error = %v, want %v", err, lesson.ErrNotFound)
		}
	})

	t.Run("moving onto a taken day is rejected", func(t *testing.T) {
		if _, err := e.svc.Update(ctx, les.ID, lesson.UpdateLesson{Day: &other.Day}); err != lesson.ErrAlreadyExists {
			t.Errorf("Update() error = %v, want %v", err, lesson.ErrAlreadyExists)
		}
	})

	t.Run("keeping its own day is fine", func(t *testing.T) {
		updated, err := e.svc.Update(ctx, les.ID, lesson.UpdateLesson{Day: &les.Day, Notes: "rescheduled drills"})
		if err != nil {
			t.Fatalf("Update(): %v", err)
		}
		if !updated.Day.Equal(les.Day) || updated.Notes != "rescheduled drills" {
			t.Errorf("Update() = %+v", updated)
		}
	})

	t.Run("nil assistants leave links untouched", func(t *testing.T) {
		if _, err := e.repo.CreateStudentLink(ctx, lesson.StudentLink{LessonID: les.ID, StudentID: member.ID}); err != nil {
			t.Fatalf("CreateStudentLink(): %v", err)
		}
		updated, err := e.svc.Update(ctx, les.ID, lesson.UpdateLesson{Notes: "still assisted"})
		if err != nil {
			t.Fatalf("Update(): %v", err)
		}
		if len(updated.Assistants) != 1 || updated.Assistants[0].ID != member.ID {
			t.Errorf("Update() Assistants = %+v, want student %d", updated.Assistants, member.ID)
		}
	})

	t.Run("empty assistants remove every link", func(t *testing.T) {
		updated, err := e.svc.Update(ctx, les.ID, lesson.UpdateLesson{Assistants: []int{}})
		if err != nil {
			t.Fatalf("Update(): %v", err)
		}
		if len(updated.Assistants) != 0 {
			t.Errorf("Update() Assistants = %+v, want none", updated.Assistants)
		}
	})

	t.Run("failed reconcile rolls everything back", func(t *testing.T) {
		if _, err := e.repo.CreateStudentLink(ctx, lesson.StudentLink{LessonID: les.ID, StudentID: member.ID}); err != nil {
			t.Fatalf("CreateStudentLink(): %v", err)
		}
		if _, err := e.svc.Update(ctx, les.ID, lesson.UpdateLesson{Notes: "ghost", Assistants: []int{999}}); err != student.ErrNotFound {
			t.Fatalf("Update() error = %v, want %v", err, student.ErrNotFound)
		}
		after, err := e.repo.GetLessonByID(ctx, les.ID)
		if err != nil {
			t.Fatalf("GetLessonByID(): %v", err)
		}
		if after.Notes == "ghost" {
			t.Error("Notes were not rolled back")
		}
		if len(after.Assistants) != 1 || after.Assistants[0].ID != member.ID {
			t.Errorf("Assistants = %+v, want the original link intact", after.Assistants)
		}
	})
}

func TestService_Delete(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	grp := testutil.CreateGroup(t, e.grpRepo, "Beginners", "Mon & Wed")
	member := testutil.CreateStudent(t, e.studRepo, "Maria Perez")
	testutil.AddStudentToGroup(t, e.grpRepo, grp.ID, member.ID)
	les := testutil.CreateLesson(t, e.repo, grp.ID, core.Today())
	if _, err := e.repo.CreateStudentLink(context.Background(), lesson.StudentLink{LessonID: les.ID, StudentID: member.ID}); err != nil {
		t.Fatalf("CreateStudentLink(): %v", err)
	}

	t.Run("unknown lesson", func(t *testing.T) {
		if err := e.svc.Delete(ctx, 999); err != lesson.ErrNotFound {
			t.Errorf("Delete() error = %v, want %v", err, lesson.ErrNotFound)
		}
	})

	t.Run("delete removes assistant links", func(t *testing.T) {
		if err := e.svc.Delete(ctx, les.ID); err != nil {
			t.Fatalf("Delete(): %v", err)
		}
		if _, err := e.repo.GetLessonByID(ctx, les.ID); err != lesson.ErrNotFound {
			t.Errorf("GetLessonByID() error = %v, want %v", err, lesson.ErrNotFound)
		}
		links, err := e.repo.GetStudentLinks(ctx, les.ID)
		if err != nil {
			t.Fatalf("GetStudentLinks(): %v", err)
		}
		if len(links) != 0 {
			t.Errorf("links = %+v, want none", links)
		}
	})
}
