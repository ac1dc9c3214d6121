package group_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/group"
	dummydb "github.com/academia-app/academia/storage/database/dummy"
	testutil "github.com/academia-app/academia/tests"
)

func setup(t *testing.T) (*dummydb.DB, *group.Service, group.Repository) {
	db := testutil.OpenDB(t)
	repo := dummydb.NewGroupRepository(db)
	return db, group.NewService(db, repo), repo
}

func iPtr(i int) *int { return &i }

// failingGroupRepo fails the final write so rollback behavior can be observed.
type failingGroupRepo struct {
	group.Repository
}

func (r failingGroupRepo) DeleteGroup(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return errors.New("storage offline")
}

func TestService_List(t *testing.T) {
	db, svc, repo := setup(t)
	ctx := context.Background()

	g1 := testutil.CreateGroup(t, repo, "Beginners", "Mon & Wed")
	g2 := testutil.CreateGroup(t, repo, "Advanced", "Tue & Thu")
	g3 := testutil.CreateGroup(t, repo, "Saturday", "Sat only")

	stud := testutil.CreateStudent(t, dummydb.NewStudentRepository(db), "Maria Perez")
	testutil.AddStudentToGroup(t, repo, g1.ID, stud.ID)
	testutil.AddStudentToGroup(t, repo, g3.ID, stud.ID)

	t.Run("all groups, ordered by id", func(t *testing.T) {
		groups, count, err := svc.List(ctx, nil, 0, 100)
		if err != nil {
			t.Fatalf("List(): %v", err)
		}
		if count != 3 || len(groups) != 3 {
			t.Fatalf("List() count = %d, len = %d; want 3", count, len(groups))
		}
		for i, want := range []int{g1.ID, g2.ID, g3.ID} {
			if groups[i].ID != want {
				t.Errorf("List() groups[%d].ID = %d, want %d", i, groups[i].ID, want)
			}
		}
	})

	t.Run("membership filter", func(t *testing.T) {
		groups, count, err := svc.List(ctx, &group.QueryFilter{StudentID: iPtr(stud.ID)}, 0, 100)
		if err != nil {
			t.Fatalf("List(): %v", err)
		}
		if count != 2 || len(groups) != 2 || groups[0].ID != g1.ID || groups[1].ID != g3.ID {
			t.Errorf("List() = %+v, count %d; want groups %d and %d", groups, count, g1.ID, g3.ID)
		}
	})

	t.Run("unknown student filter", func(t *testing.T) {
		if _, _, err := svc.List(ctx, &group.QueryFilter{StudentID: iPtr(999)}, 0, 100); err != group.ErrStudentNotFound {
			t.Errorf("List() error = %v, want %v", err, group.ErrStudentNotFound)
		}
	})

	t.Run("count covers the full filtered set", func(t *testing.T) {
		groups, count, err := svc.List(ctx, nil, 1, 1)
		if err != nil {
			t.Fatalf("List(): %v", err)
		}
		if count != 3 || len(groups) != 1 || groups[0].ID != g2.ID {
			t.Errorf("List() = %+v, count %d; want [%d], 3", groups, count, g2.ID)
		}
	})
}

func TestService_Create(t *testing.T) {
	_, svc, _ := setup(t)
	ctx := context.Background()

	t.Run("name and description are required", func(t *testing.T) {
		_, err := svc.Create(ctx, group.NewGroup{})
		if _, ok := err.(validator.ValidationErrors); !ok {
			t.Errorf("Create() error = %v, want validation errors", err)
		}
	})

	t.Run("fields are trimmed", func(t *testing.T) {
		grp, err := svc.Create(ctx, group.NewGroup{Name: "  Beginners ", Description: " Mon & Wed "})
		if err != nil {
			t.Fatalf("Create(): %v", err)
		}
		if grp.Name != "Beginners" || grp.Description != "Mon & Wed" {
			t.Errorf("Create() = %+v", grp)
		}
		if grp.StudentLinks == nil || len(grp.StudentLinks) != 0 {
			t.Errorf("Create() StudentLinks = %+v, want empty", grp.StudentLinks)
		}
	})
}

func TestService_Update(t *testing.T) {
	_, svc, repo := setup(t)
	ctx := context.Background()

	grp := testutil.CreateGroup(t, repo, "Beginners", "Mon & Wed")

	t.Run("unknown group", func(t *testing.T) {
		if _, err := svc.Update(ctx, 999, group.UpdateGroup{Name: "lol"}); err != group.ErrNotFound {
			t.Errorf("Update() error = %v, want %v", err, group.ErrNotFound)
		}
	})

	t.Run("empty fields are left unchanged", func(t *testing.T) {
		updated, err := svc.Update(ctx, grp.ID, group.UpdateGroup{Name: "Improvers"})
		if err != nil {
			t.Fatalf("Update(): %v", err)
		}
		if updated.Name != "Improvers" || updated.Description != grp.Description {
			t.Errorf("Update() = %+v", updated)
		}
	})
}

func TestService_Delete(t *testing.T) {
	db, svc, repo := setup(t)
	ctx := context.Background()

	grp := testutil.CreateGroup(t, repo, "Beginners", "Mon & Wed")
	stud := testutil.CreateStudent(t, dummydb.NewStudentRepository(db), "Maria Perez")
	testutil.AddStudentToGroup(t, repo, grp.ID, stud.ID)

	t.Run("unknown group", func(t *testing.T) {
		if err := svc.Delete(ctx, 999); err != group.ErrNotFound {
			t.Errorf("Delete() error = %v, want %v", err, group.ErrNotFound)
		}
	})

	t.Run("failed delete leaves the roster intact", func(t *testing.T) {
		svc := group.NewService(db, failingGroupRepo{repo})
		if err := svc.Delete(ctx, grp.ID); err == nil {
			t.Fatal("Delete() error = nil, want the storage error")
		}
		if _, err := repo.GetGroupByID(ctx, grp.ID); err != nil {
			t.Errorf("GetGroupByID() error = %v, want the group intact", err)
		}
		links, err := repo.GetStudentLinksByStudent(ctx, stud.ID)
		if err != nil {
			t.Fatalf("GetStudentLinksByStudent(): %v", err)
		}
		if len(links) != 1 {
			t.Errorf("links = %+v, want the membership intact", links)
		}
	})

	t.Run("delete removes membership links", func(t *testing.T) {
		if err := svc.Delete(ctx, grp.ID); err != nil {
			t.Fatalf("Delete(): %v", err)
		}
		if _, err := svc.Get(ctx, grp.ID); err != group.ErrNotFound {
			t.Errorf("Get() error = %v, want %v", err, group.ErrNotFound)
		}
		links, err := repo.GetStudentLinksByStudent(ctx, stud.ID)
		if err != nil {
			t.Fatalf("GetStudentLinksByStudent(): %v", err)
		}
		if len(links) != 0 {
			t.Errorf("links = %+v, want none", links)
		}
	})
}
