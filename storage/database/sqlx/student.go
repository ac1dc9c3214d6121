package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/group"
	"github.com/academia-app/academia/core/student"
)

type studentRow struct {
	ID                          int         `db:"id"`
	FullName                    string      `db:"full_name"`
	City                        null.String `db:"city"`
	ResponsibleAdultFullName    null.String `db:"responsible_adult_full_name"`
	ResponsibleAdultPhoneNumber null.String `db:"responsible_adult_phone_number"`
	Notes                       null.String `db:"notes"`
	CreatedAt                   time.Time   `db:"created_at"`
}

func (r studentRow) unpack() student.Student {
	return student.Student{
		ID:                          r.ID,
		FullName:                    r.FullName,
		City:                        r.City.String,
		ResponsibleAdultFullName:    r.ResponsibleAdultFullName.String,
		ResponsibleAdultPhoneNumber: r.ResponsibleAdultPhoneNumber.String,
		Notes:                       r.Notes.String,
		CreatedAt:                   r.CreatedAt.UTC(),
	}
}

type studentRepository struct {
	exec core.DBExecutor
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{exec: exec}
}

func (repo studentRepository) CreateStudent(ctx context.Context, stud student.Student, exec ...core.DBExecutor) (student.Student, error) {
	q := `INSERT INTO student (full_name, city, responsible_adult_full_name, responsible_adult_phone_number, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := getExec(repo.exec, exec).QueryRowxContext(
		ctx, q, stud.FullName, stud.City, stud.ResponsibleAdultFullName, stud.ResponsibleAdultPhoneNumber, stud.Notes, stud.CreatedAt,
	).Scan(&stud.ID)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	stud.GroupLinks = []group.StudentLink{}
	return stud, nil
}

func (repo studentRepository) GetStudentByID(ctx context.Context, id int, exec ...core.DBExecutor) (student.Student, error) {
	var row studentRow
	if err := getExec(repo.exec, exec).GetContext(ctx, &row, "SELECT * FROM student WHERE id = $1", id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "getting student by id")
	}

	stud := row.unpack()
	links, err := groupLinksByStudents(ctx, getExec(repo.exec, exec), []int{id})
	if err != nil {
		return student.Student{}, err
	}
	stud.GroupLinks = links[id]
	if stud.GroupLinks == nil {
		stud.GroupLinks = []group.StudentLink{}
	}
	return stud, nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, skip, limit int, exec ...core.DBExecutor) ([]student.Student, error) {
	args := make([]interface{}, 0, 3)
	q := "SELECT * FROM student"
	if filter != nil && filter.GroupID != nil {
		q += " WHERE id IN (SELECT student_id FROM group_student_link WHERE group_id = " + arg(&args, *filter.GroupID) + ")"
	}
	q += " ORDER BY id LIMIT " + arg(&args, limit) + " OFFSET " + arg(&args, skip)

	var rows []studentRow
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}

	ids := make([]int, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	links, err := groupLinksByStudents(ctx, getExec(repo.exec, exec), ids)
	if err != nil {
		return nil, err
	}

	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		stud := row.unpack()
		stud.GroupLinks = links[row.ID]
		if stud.GroupLinks == nil {
			stud.GroupLinks = []group.StudentLink{}
		}
		students = append(students, stud)
	}
	return students, nil
}

func (repo studentRepository) CountStudents(ctx context.Context, filter *student.QueryFilter, exec ...core.DBExecutor) (int, error) {
	args := make([]interface{}, 0, 1)
	q := "SELECT COUNT(*) FROM student"
	if filter != nil && filter.GroupID != nil {
		q += " WHERE id IN (SELECT student_id FROM group_student_link WHERE group_id = " + arg(&args, *filter.GroupID) + ")"
	}

	var count int
	if err := getExec(repo.exec, exec).GetContext(ctx, &count, q, args...); err != nil {
		return 0, errors.Wrap(err, "counting students")
	}
	return count, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, stud student.Student, exec ...core.DBExecutor) (student.Student, error) {
	q := `UPDATE student SET full_name = $1, city = $2, responsible_adult_full_name = $3,
		responsible_adult_phone_number = $4, notes = $5 WHERE id = $6`
	res, err := getExec(repo.exec, exec).ExecContext(
		ctx, q, stud.FullName, stud.City, stud.ResponsibleAdultFullName, stud.ResponsibleAdultPhoneNumber, stud.Notes, stud.ID,
	)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return stud, nil
}

func (repo studentRepository) DeleteStudent(ctx context.Context, id int, exec ...core.DBExecutor) error {
	if _, err := getExec(repo.exec, exec).ExecContext(ctx, "DELETE FROM student WHERE id = $1", id); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return nil
}

func (repo studentRepository) DeleteStudentPayments(ctx context.Context, studentID int, exec ...core.DBExecutor) (int, error) {
	res, err := getExec(repo.exec, exec).ExecContext(ctx, "DELETE FROM payment WHERE student_id = $1", studentID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting student payments")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting student payments")
	}
	return int(n), nil
}

// groupLinksByStudents materializes the group memberships for the given
// student IDs in one query.
func groupLinksByStudents(ctx context.Context, ex core.DBExecutor, studentIDs []int) (map[int][]group.StudentLink, error) {
	byStudent := make(map[int][]group.StudentLink, len(studentIDs))
	if len(studentIDs) == 0 {
		return byStudent, nil
	}

	var rows []groupLinkRow
	q := "SELECT * FROM group_student_link WHERE student_id = ANY($1) ORDER BY student_id, group_id"
	if err := ex.SelectContext(ctx, &rows, q, pq.Array(studentIDs)); err != nil {
		return nil, errors.Wrap(err, "querying membership links by students")
	}
	for _, row := range rows {
		byStudent[row.StudentID] = append(byStudent[row.StudentID], row.unpack())
	}
	return byStudent, nil
}

// studentsByIDs fetches students with their group memberships.
func studentsByIDs(ctx context.Context, ex core.DBExecutor, ids []int) (map[int]student.Student, error) {
	byID := make(map[int]student.Student, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}

	var rows []studentRow
	if err := ex.SelectContext(ctx, &rows, "SELECT * FROM student WHERE id = ANY($1)", pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "querying students by ids")
	}
	links, err := groupLinksByStudents(ctx, ex, ids)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		stud := row.unpack()
		stud.GroupLinks = links[row.ID]
		if stud.GroupLinks == nil {
			stud.GroupLinks = []group.StudentLink{}
		}
		byID[row.ID] = stud
	}
	return byID, nil
}
