package dummydb

import (
	"context"
	"sort"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/lesson"
	"github.com/academia-app/academia/core/student"
)

type lessonRepository struct {
	db *DB
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db *DB) *lessonRepository {
	return &lessonRepository{db: db}
}

func (repo *lessonRepository) CreateLesson(ctx context.Context, les lesson.Lesson, exec ...core.DBExecutor) (lesson.Lesson, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, other := range repo.db.lessons {
		if other.GroupID == les.GroupID && other.Day.Equal(les.Day) {
			return lesson.Lesson{}, lesson.ErrAlreadyExists
		}
	}

	repo.db.lastLessonID++
	les.ID = repo.db.lastLessonID
	les.Assistants = nil
	repo.db.lessons[les.ID] = les
	return les, nil
}

func (repo *lessonRepository) GetLessonByID(ctx context.Context, id int, exec ...core.DBExecutor) (lesson.Lesson, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	les, ok := repo.db.lessons[id]
	if !ok {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	return repo.materialize(les), nil
}

func (repo *lessonRepository) LessonExists(ctx context.Context, groupID int, day core.Date, exec ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, les := range repo.db.lessons {
		if les.GroupID == groupID && les.Day.Equal(day) {
			return true, nil
		}
	}
	return false, nil
}

func (repo *lessonRepository) QueryLessons(ctx context.Context, filter *lesson.QueryFilter, skip, limit int, exec ...core.DBExecutor) ([]lesson.Lesson, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	matched := repo.filter(filter)
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Day.Equal(matched[j].Day) {
			return matched[i].Day.After(matched[j].Day.Time)
		}
		return matched[i].ID > matched[j].ID
	})
	matched = paginateLessons(matched, skip, limit)

	for i := range matched {
		matched[i] = repo.materialize(matched[i])
	}
	return matched, nil
}

func (repo *lessonRepository) CountLessons(ctx context.Context, filter *lesson.QueryFilter, exec ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.filter(filter)), nil
}

func (repo *lessonRepository) UpdateLesson(ctx context.Context, les lesson.Lesson, exec ...core.DBExecutor) (lesson.Lesson, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.lessons[les.ID]
	if !ok {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	for _, other := range repo.db.lessons {
		if other.ID != les.ID && other.GroupID == orig.GroupID && other.Day.Equal(les.Day) {
			return lesson.Lesson{}, lesson.ErrAlreadyExists
		}
	}
	orig.Day = les.Day
	orig.Notes = les.Notes
	repo.db.lessons[les.ID] = orig

	return repo.materialize(orig), nil
}

func (repo *lessonRepository) DeleteLesson(ctx context.Context, id int, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.lessons, id)
	return nil
}

func (repo *lessonRepository) StudentExists(ctx context.Context, studentID int, exec ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	_, ok := repo.db.students[studentID]
	return ok, nil
}

func (repo *lessonRepository) GetStudentLinks(ctx context.Context, lessonID int, exec ...core.DBExecutor) ([]lesson.StudentLink, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	links := []lesson.StudentLink{}
	for _, link := range repo.db.lessonLinks {
		if link.LessonID == lessonID {
			links = append(links, link)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].StudentID < links[j].StudentID })
	return links, nil
}

func (repo *lessonRepository) CreateStudentLink(ctx context.Context, link lesson.StudentLink, exec ...core.DBExecutor) (lesson.StudentLink, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.lessonLinks = append(repo.db.lessonLinks, link)
	return link, nil
}

func (repo *lessonRepository) DeleteStudentLink(ctx context.Context, lessonID, studentID int, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	links := repo.db.lessonLinks[:0]
	for _, link := range repo.db.lessonLinks {
		if !(link.LessonID == lessonID && link.StudentID == studentID) {
			links = append(links, link)
		}
	}
	repo.db.lessonLinks = links
	return nil
}

func (repo *lessonRepository) DeleteStudentLinksByLesson(ctx context.Context, lessonID int, exec ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var removed int
	links := repo.db.lessonLinks[:0]
	for _, link := range repo.db.lessonLinks {
		if link.LessonID == lessonID {
			removed++
			continue
		}
		links = append(links, link)
	}
	repo.db.lessonLinks = links
	return removed, nil
}

func (repo *lessonRepository) filter(filter *lesson.QueryFilter) []lesson.Lesson {
	matched := make([]lesson.Lesson, 0, len(repo.db.lessons))
	for _, les := range repo.db.lessons {
		if filter != nil {
			if filter.GroupID != nil && les.GroupID != *filter.GroupID {
				continue
			}
			if filter.StudentID != nil {
				assisted := false
				for _, link := range repo.db.lessonLinks {
					if link.LessonID == les.ID && link.StudentID == *filter.StudentID {
						assisted = true
						break
					}
				}
				if !assisted {
					continue
				}
			}
		}
		matched = append(matched, les)
	}
	return matched
}

// materialize attaches the lesson's group and assistant students.
func (repo *lessonRepository) materialize(les lesson.Lesson) lesson.Lesson {
	grp := repo.db.groups[les.GroupID]
	grp.StudentLinks = NewGroupRepository(repo.db).linksOfGroup(les.GroupID)
	les.Group = grp

	les.Assistants = []student.Student{}
	for _, link := range repo.db.lessonLinks {
		if link.LessonID != les.ID {
			continue
		}
		stud := repo.db.students[link.StudentID]
		stud.GroupLinks = NewStudentRepository(repo.db).linksOfStudent(link.StudentID)
		les.Assistants = append(les.Assistants, stud)
	}
	sort.Slice(les.Assistants, func(i, j int) bool { return les.Assistants[i].ID < les.Assistants[j].ID })
	return les
}

func paginateLessons(lessons []lesson.Lesson, skip, limit int) []lesson.Lesson {
	if skip >= len(lessons) {
		return []lesson.Lesson{}
	}
	lessons = lessons[skip:]
	if limit < len(lessons) {
		lessons = lessons[:limit]
	}
	return lessons
}
