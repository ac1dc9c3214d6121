package group

import (
	"context"
	"errors"

	"github.com/academia-app/academia/core"
)

var (
	// errors
	ErrNotFound = errors.New("group not found")
	// ErrStudentNotFound signals a membership filter referencing an unknown
	// student; declared here so the package stays free of upward imports.
	ErrStudentNotFound = errors.New("student not found")
)

type (
	Repository interface {
		CreateGroup(ctx context.Context, grp Group, exec ...core.DBExecutor) (Group, error)
		GetGroupByID(ctx context.Context, id int, exec ...core.DBExecutor) (Group, error)
		GroupExists(ctx context.Context, id int, exec ...core.DBExecutor) (bool, error)
		// QueryGroups applies the filter, orders by ID and paginates with skip/limit.
		QueryGroups(ctx context.Context, filter *QueryFilter, skip, limit int, exec ...core.DBExecutor) ([]Group, error)
		// CountGroups counts the full filtered set, ignoring pagination.
		CountGroups(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) (int, error)
		UpdateGroup(ctx context.Context, grp Group, exec ...core.DBExecutor) (Group, error)
		DeleteGroup(ctx context.Context, id int, exec ...core.DBExecutor) error

		StudentExists(ctx context.Context, studentID int, exec ...core.DBExecutor) (bool, error)
		GetStudentLinksByStudent(ctx context.Context, studentID int, exec ...core.DBExecutor) ([]StudentLink, error)
		StudentLinkExists(ctx context.Context, groupID, studentID int, exec ...core.DBExecutor) (bool, error)
		CreateStudentLink(ctx context.Context, link StudentLink, exec ...core.DBExecutor) (StudentLink, error)
		DeleteStudentLink(ctx context.Context, groupID, studentID int, exec ...core.DBExecutor) error
		DeleteStudentLinksByStudent(ctx context.Context, studentID int, exec ...core.DBExecutor) (int, error)
		DeleteStudentLinksByGroup(ctx context.Context, groupID int, exec ...core.DBExecutor) (int, error)
	}

	Service struct {
		db   core.DB
		repo Repository
	}
)

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

// List returns the filtered page of groups and the size of the full filtered set.
func (svc *Service) List(ctx context.Context, filter *QueryFilter, skip, limit int) ([]Group, int, error) {
	if filter != nil && filter.StudentID != nil {
		exists, err := svc.repo.StudentExists(ctx, *filter.StudentID)
		if err != nil {
			return nil, 0, err
		}
		if !exists {
			return nil, 0, ErrStudentNotFound
		}
	}

	groups, err := svc.repo.QueryGroups(ctx, filter, skip, limit)
	if err != nil {
		return nil, 0, err
	}
	count, err := svc.repo.CountGroups(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return groups, count, nil
}

func (svc *Service) Get(ctx context.Context, id int) (Group, error) {
	return svc.repo.GetGroupByID(ctx, id)
}

func (svc *Service) Create(ctx context.Context, ng NewGroup) (Group, error) {
	if err := ng.Validate(); err != nil {
		return Group{}, err
	}
	return svc.repo.CreateGroup(ctx, Group{
		Name:        ng.Name,
		Description: ng.Description,
	})
}

func (svc *Service) Update(ctx context.Context, id int, ug UpdateGroup) (Group, error) {
	orig, err := svc.repo.GetGroupByID(ctx, id)
	if err != nil {
		return Group{}, err
	}
	if err := ug.Validate(orig); err != nil {
		return Group{}, err
	}

	orig.Name = ug.Name
	orig.Description = ug.Description
	return svc.repo.UpdateGroup(ctx, orig)
}

// Delete removes the group along with its membership links, atomically.
func (svc *Service) Delete(ctx context.Context, id int) error {
	if _, err := svc.repo.GetGroupByID(ctx, id); err != nil {
		return err
	}

	return core.RunInTx(ctx, svc.db, func(tx core.DBTransactor) error {
		if _, err := svc.repo.DeleteStudentLinksByGroup(ctx, id, tx); err != nil {
			return err
		}
		return svc.repo.DeleteGroup(ctx, id, tx)
	})
}
