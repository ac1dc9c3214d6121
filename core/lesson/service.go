package lesson

import (
	"context"
	"errors"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/group"
	"github.com/academia-app/academia/core/student"
)

var (
	// errors
	ErrNotFound      = errors.New("lesson not found")
	ErrAlreadyExists = errors.New("a lesson for this group already exists on this day")
)

type (
	Repository interface {
		CreateLesson(ctx context.Context, les Lesson, exec ...core.DBExecutor) (Lesson, error)
		GetLessonByID(ctx context.Context, id int, exec ...core.DBExecutor) (Lesson, error)
		LessonExists(ctx context.Context, groupID int, day core.Date, exec ...core.DBExecutor) (bool, error)
		// QueryLessons applies the filter, orders by day descending and paginates
		// with skip/limit.
		QueryLessons(ctx context.Context, filter *QueryFilter, skip, limit int, exec ...core.DBExecutor) ([]Lesson, error)
		// CountLessons counts the full filtered set, ignoring pagination.
		CountLessons(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) (int, error)
		UpdateLesson(ctx context.Context, les Lesson, exec ...core.DBExecutor) (Lesson, error)
		DeleteLesson(ctx context.Context, id int, exec ...core.DBExecutor) error

		StudentExists(ctx context.Context, studentID int, exec ...core.DBExecutor) (bool, error)
		GetStudentLinks(ctx context.Context, lessonID int, exec ...core.DBExecutor) ([]StudentLink, error)
		CreateStudentLink(ctx context.Context, link StudentLink, exec ...core.DBExecutor) (StudentLink, error)
		DeleteStudentLink(ctx context.Context, lessonID, studentID int, exec ...core.DBExecutor) error
		DeleteStudentLinksByLesson(ctx context.Context, lessonID int, exec ...core.DBExecutor) (int, error)
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

// List returns the filtered page of lessons and the size of the full filtered set.
func (svc *Service) List(ctx context.Context, filter *QueryFilter, skip, limit int) ([]Lesson, int, error) {
	if filter != nil {
		if filter.StudentID != nil {
			exists, err := svc.repo.StudentExists(ctx, *filter.StudentID)
			if err != nil {
				return nil, 0, err
			}
			if !exists {
				return nil, 0, student.ErrNotFound
			}
		}
		if filter.GroupID != nil {
			exists, err := svc.groupRepo.GroupExists(ctx, *filter.GroupID)
			if err != nil {
				return nil, 0, err
			}
			if !exists {
				return nil, 0, group.ErrNotFound
			}
		}
	}

	lessons, err := svc.repo.QueryLessons(ctx, filter, skip, limit)
	if err != nil {
		return nil, 0, err
	}
	count, err := svc.repo.CountLessons(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return lessons, count, nil
}

func (svc *Service) Get(ctx context.Context, id int) (Lesson, error) {
	return svc.repo.GetLessonByID(ctx, id)
}

// Create adds a new lesson with its assistant links. A group holds at most
// one lesson per day; duplicates are rejected with ErrAlreadyExists.
func (svc *Service) Create(ctx context.Context, nl NewLesson) (Lesson, error) {
	if err := nl.Validate(); err != nil {
		return Lesson{}, err
	}

	exists, err := svc.groupRepo.GroupExists(ctx, nl.GroupID)
	if err != nil {
		return Lesson{}, err
	}
	if !exists {
		return Lesson{}, group.ErrNotFound
	}

	exists, err = svc.repo.LessonExists(ctx, nl.GroupID, nl.Day)
	if err != nil {
		return Lesson{}, err
	}
	if exists {
		return Lesson{}, ErrAlreadyExists
	}

	les := Lesson{
		Day:     nl.Day,
		Notes:   nl.Notes,
		GroupID: nl.GroupID,
	}
	err = core.RunInTx(ctx, svc.db, func(tx core.DBTransactor) error {
		var err error
		if les, err = svc.repo.CreateLesson(ctx, les, tx); err != nil {
			return err
		}
		return svc.reconcileAssistants(ctx, tx, les.ID, les.GroupID, nl.Assistants)
	})
	if err != nil {
		return Lesson{}, err
	}
	return svc.repo.GetLessonByID(ctx, les.ID)
}

// Update applies the supplied fields. Assistant links are reconciled only
// when the Assistants field is present.
func (svc *Service) Update(ctx context.Context, id int, ul UpdateLesson) (Lesson, error) {
	orig, err := svc.repo.GetLessonByID(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	if err := ul.Validate(orig); err != nil {
		return Lesson{}, err
	}

	if ul.Day != nil {
		orig.Day = *ul.Day
	}
	orig.Notes = ul.Notes

	err = core.RunInTx(ctx, svc.db, func(tx core.DBTransactor) error {
		if _, err := svc.repo.UpdateLesson(ctx, orig, tx); err != nil {
			return err
		}
		if ul.Assistants != nil {
			return svc.reconcileAssistants(ctx, tx, id, orig.GroupID, ul.Assistants)
		}
		return nil
	})
	if err != nil {
		return Lesson{}, err
	}
	return svc.repo.GetLessonByID(ctx, id)
}

// Delete removes the lesson along with its assistant links, atomically.
func (svc *Service) Delete(ctx context.Context, id int) error {
	if _, err := svc.repo.GetLessonByID(ctx, id); err != nil {
		return err
	}

	return core.RunInTx(ctx, svc.db, func(tx core.DBTransactor) error {
		if _, err := svc.repo.DeleteStudentLinksByLesson(ctx, id, tx); err != nil {
			return err
		}
		return svc.repo.DeleteLesson(ctx, id, tx)
	})
}

// reconcileAssistants synchronizes the lesson's assistant rows against the
// desired student IDs. Every added assistant must exist and be registered in
// the lesson's group.
func (svc *Service) reconcileAssistants(ctx context.Context, tx core.DBTransactor, lessonID, groupID int, studentIDs []int) error {
	links, err := svc.repo.GetStudentLinks(ctx, lessonID, tx)
	if err != nil {
		return err
	}
	existing := make([]int, 0, len(links))
	for _, link := range links {
		existing = append(existing, link.StudentID)
	}

	added, removed := core.ReconcileIDs(existing, studentIDs)

	for _, studentID := range added {
		exists, err := svc.repo.StudentExists(ctx, studentID, tx)
		if err != nil {
			return err
		}
		if !exists {
			return student.ErrNotFound
		}
		registered, err := svc.groupRepo.StudentLinkExists(ctx, groupID, studentID, tx)
		if err != nil {
			return err
		}
		if !registered {
			return &NotRegisteredError{StudentID: studentID, GroupID: groupID}
		}
		link := StudentLink{LessonID: lessonID, StudentID: studentID}
		if _, err := svc.repo.CreateStudentLink(ctx, link, tx); err != nil {
			return err
		}
	}

	for _, studentID := range removed {
		if err := svc.repo.DeleteStudentLink(ctx, lessonID, studentID, tx); err != nil {
			return err
		}
	}
	return nil
}
