package student

import (
	"context"
	"errors"
	"time"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/group"
)

var (
	// errors
	ErrNotFound = errors.New("student not found")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, stud Student, exec ...core.DBExecutor) (Student, error)
		GetStudentByID(ctx context.Context, id int, exec ...core.DBExecutor) (Student, error)
		// QueryStudents applies the filter, orders by ID and paginates with skip/limit.
		QueryStudents(ctx context.Context, filter *QueryFilter, skip, limit int, exec ...core.DBExecutor) ([]Student, error)
		// CountStudents counts the full filtered set, ignoring pagination.
		CountStudents(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) (int, error)
		UpdateStudent(ctx context.Context, stud Student, exec ...core.DBExecutor) (Student, error)
		DeleteStudent(ctx context.Context, id int, exec ...core.DBExecutor) error
		// DeleteStudentPayments removes every payment owned by the student.
		DeleteStudentPayments(ctx context.Context, studentID int, exec ...core.DBExecutor) (int, error)
	}

	Service struct {
		db        core.DB
		repo      Repository
		groupRepo group.Repository
	}
)

func NewService(db core.DB, repo Repository, groupRepo group.Repository) *Service {
	return &Service{db: db, repo: repo, groupRepo: groupRepo}
}

// List returns the filtered page of students and the size of the full filtered set.
func (svc *Service) List(ctx context.Context, filter *QueryFilter, skip, limit int) ([]Student, int, error) {
	if filter != nil && filter.GroupID != nil {
		exists, err := svc.groupRepo.GroupExists(ctx, *filter.GroupID)
		if err != nil {
			return nil, 0, err
		}
		if !exists {
			return nil, 0, group.ErrNotFound
		}
	}

	students, err := svc.repo.QueryStudents(ctx, filter, skip, limit)
	if err != nil {
		return nil, 0, err
	}
	count, err := svc.repo.CountStudents(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return students, count, nil
}

func (svc *Service) Get(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

// Create persists the student and registers it in the requested groups.
// Every requested group must exist; nothing is persisted otherwise.
func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if err := ns.Validate(); err != nil {
		return Student{}, err
	}

	stud := Student{
		FullName:                    ns.FullName,
		City:                        ns.City,
		ResponsibleAdultFullName:    ns.ResponsibleAdultFullName,
		ResponsibleAdultPhoneNumber: ns.ResponsibleAdultPhoneNumber,
		Notes:                       ns.Notes,
		CreatedAt:                   time.Now().UTC(),
	}

	err := core.RunInTx(ctx, svc.db, func(tx core.DBTransactor) error {
		var err error
		if stud, err = svc.repo.CreateStudent(ctx, stud, tx); err != nil {
			return err
		}
		return svc.reconcileGroups(ctx, tx, stud.ID, ns.Groups)
	})
	if err != nil {
		return Student{}, err
	}
	return svc.repo.GetStudentByID(ctx, stud.ID)
}

// Update applies the supplied fields. Memberships are reconciled only when
// the Groups field is present.
func (svc *Service) Update(ctx context.Context, id int, us UpdateStudent) (Student, error) {
	orig, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if err := us.Validate(orig); err != nil {
		return Student{}, err
	}

	orig.FullName = us.FullName
	orig.City = us.City
	orig.ResponsibleAdultFullName = us.ResponsibleAdultFullName
	orig.ResponsibleAdultPhoneNumber = us.ResponsibleAdultPhoneNumber
	orig.Notes = us.Notes

	err = core.RunInTx(ctx, svc.db, func(tx core.DBTransactor) error {
		if _, err := svc.repo.UpdateStudent(ctx, orig, tx); err != nil {
			return err
		}
		if us.Groups != nil {
			return svc.reconcileGroups(ctx, tx, id, us.Groups)
		}
		return nil
	})
	if err != nil {
		return Student{}, err
	}
	return svc.repo.GetStudentByID(ctx, id)
}

// Delete removes the student along with its group memberships and payments,
// atomically.
func (svc *Service) Delete(ctx context.Context, id int) error {
	if _, err := svc.repo.GetStudentByID(ctx, id); err != nil {
		return err
	}

	return core.RunInTx(ctx, svc.db, func(tx core.DBTransactor) error {
		if _, err := svc.groupRepo.DeleteStudentLinksByStudent(ctx, id, tx); err != nil {
			return err
		}
		if _, err := svc.repo.DeleteStudentPayments(ctx, id, tx); err != nil {
			return err
		}
		return svc.repo.DeleteStudent(ctx, id, tx)
	})
}

// reconcileGroups synchronizes the student's membership rows against the
// desired group IDs. Rows for groups that stay linked are left untouched so
// their JoinedAt survives.
func (svc *Service) reconcileGroups(ctx context.Context, tx core.DBTransactor, studentID int, groupIDs []int) error {
	links, err := svc.groupRepo.GetStudentLinksByStudent(ctx, studentID, tx)
	if err != nil {
		return err
	}
	existing := make([]int, 0, len(links))
	for _, link := range links {
		existing = append(existing, link.GroupID)
	}

	added, removed := core.ReconcileIDs(existing, groupIDs)

	now := time.Now().UTC()
	for _, groupID := range added {
		exists, err := svc.groupRepo.GroupExists(ctx, groupID, tx)
		if err != nil {
			return err
		}
		if !exists {
			return group.ErrNotFound
		}
		link := group.StudentLink{GroupID: groupID, StudentID: studentID, JoinedAt: now}
		if _, err := svc.groupRepo.CreateStudentLink(ctx, link, tx); err != nil {
			return err
		}
	}

	for _, groupID := range removed {
		if err := svc.groupRepo.DeleteStudentLink(ctx, groupID, studentID, tx); err != nil {
			return err
		}
	}
	return nil
}
