package dummydb

import (
	"context"
	"sort"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/group"
	"github.com/academia-app/academia/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, stud student.Student, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.lastStudentID++
	stud.ID = repo.db.lastStudentID
	stud.GroupLinks = nil
	repo.db.students[stud.ID] = stud

	stud.GroupLinks = []group.StudentLink{}
	return stud, nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id int, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	stud, ok := repo.db.students[id]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	stud.GroupLinks = repo.linksOfStudent(id)
	return stud, nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, skip, limit int, exec ...core.DBExecutor) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	matched := repo.filter(filter)
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	matched = paginateStudents(matched, skip, limit)

	for i := range matched {
		matched[i].GroupLinks = repo.linksOfStudent(matched[i].ID)
	}
	return matched, nil
}

func (repo *studentRepository) CountStudents(ctx context.Context, filter *student.QueryFilter, exec ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.filter(filter)), nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, stud student.Student, exec ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.students[stud.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	orig.FullName = stud.FullName
	orig.City = stud.City
	orig.ResponsibleAdultFullName = stud.ResponsibleAdultFullName
	orig.ResponsibleAdultPhoneNumber = stud.ResponsibleAdultPhoneNumber
	orig.Notes = stud.Notes
	repo.db.students[stud.ID] = orig

	orig.GroupLinks = repo.linksOfStudent(stud.ID)
	return orig, nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id int, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.students, id)
	return nil
}

func (repo *studentRepository) DeleteStudentPayments(ctx context.Context, studentID int, exec ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var removed int
	for id, pmt := range repo.db.payments {
		if pmt.StudentID == studentID {
			delete(repo.db.payments, id)
			removed++
		}
	}
	return removed, nil
}

func (repo *studentRepository) filter(filter *student.QueryFilter) []student.Student {
	matched := make([]student.Student, 0, len(repo.db.students))
	for _, stud := range repo.db.students {
		if filter != nil && filter.GroupID != nil {
			registered := false
			for _, link := range repo.db.groupLinks {
				if link.StudentID == stud.ID && link.GroupID == *filter.GroupID {
					registered = true
					break
				}
			}
			if !registered {
				continue
			}
		}
		matched = append(matched, stud)
	}
	return matched
}

func (repo *studentRepository) linksOfStudent(studentID int) []group.StudentLink {
	links := []group.StudentLink{}
	for _, link := range repo.db.groupLinks {
		if link.StudentID == studentID {
			links = append(links, link)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].GroupID < links[j].GroupID })
	return links
}

func paginateStudents(students []student.Student, skip, limit int) []student.Student {
	if skip >= len(students) {
		return []student.Student{}
	}
	students = students[skip:]
	if limit < len(students) {
		students = students[:limit]
	}
	return students
}
