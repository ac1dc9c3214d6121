package sqlxrepos

import (
	"context"
	"sort"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/lesson"
	"github.com/academia-app/academia/core/student"
)

type lessonRow struct {
	ID      int         `db:"id"`
	Day     core.Date   `db:"day"`
	Notes   null.String `db:"notes"`
	GroupID int         `db:"group_id"`
}

type lessonLinkRow struct {
	LessonID  int `db:"lesson_id"`
	StudentID int `db:"student_id"`
}

type lessonRepository struct {
	exec core.DBExecutor
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(exec core.DBExecutor) *lessonRepository {
	return &lessonRepository{exec: exec}
}

func (repo lessonRepository) CreateLesson(ctx context.Context, les lesson.Lesson, exec ...core.DBExecutor) (lesson.Lesson, error) {
	q := "INSERT INTO lesson (day, notes, group_id) VALUES ($1, $2, $3) RETURNING id"
	err := getExec(repo.exec, exec).QueryRowxContext(ctx, q, les.Day, les.Notes, les.GroupID).Scan(&les.ID)
	if err != nil {
		if isUniqueViolation(errors.Cause(err)) {
			return lesson.Lesson{}, lesson.ErrAlreadyExists
		}
		return lesson.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	les.Assistants = []student.Student{}
	return les, nil
}

func (repo lessonRepository) GetLessonByID(ctx context.Context, id int, exec ...core.DBExecutor) (lesson.Lesson, error) {
	var row lessonRow
	if err := getExec(repo.exec, exec).GetContext(ctx, &row, "SELECT * FROM lesson WHERE id = $1", id); err != nil {
		return lesson.Lesson{}, trapNoRowsErr(err, lesson.ErrNotFound, "getting lesson by id")
	}

	lessons, err := repo.materialize(ctx, getExec(repo.exec, exec), []lessonRow{row})
	if err != nil {
		return lesson.Lesson{}, err
	}
	return lessons[0], nil
}

func (repo lessonRepository) LessonExists(ctx context.Context, groupID int, day core.Date, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	q := "SELECT EXISTS(SELECT 1 FROM lesson WHERE group_id = $1 AND day = $2)"
	if err := getExec(repo.exec, exec).GetContext(ctx, &exists, q, groupID, day); err != nil {
		return false, errors.Wrap(err, "checking lesson")
	}
	return exists, nil
}

func (repo lessonRepository) lessonConds(filter *lesson.QueryFilter, args *[]interface{}) []string {
	conds := make([]string, 0, 2)
	if filter == nil {
		return conds
	}
	if filter.StudentID != nil {
		conds = append(conds, "id IN (SELECT lesson_id FROM lesson_student_link WHERE student_id = "+arg(args, *filter.StudentID)+")")
	}
	if filter.GroupID != nil {
		conds = append(conds, "group_id = "+arg(args, *filter.GroupID))
	}
	return conds
}

func (repo lessonRepository) QueryLessons(ctx context.Context, filter *lesson.QueryFilter, skip, limit int, exec ...core.DBExecutor) ([]lesson.Lesson, error) {
	args := make([]interface{}, 0, 4)
	q := "SELECT * FROM lesson"
	if conds := repo.lessonConds(filter, &args); len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY day DESC, id DESC LIMIT " + arg(&args, limit) + " OFFSET " + arg(&args, skip)

	var rows []lessonRow
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	return repo.materialize(ctx, getExec(repo.exec, exec), rows)
}

func (repo lessonRepository) CountLessons(ctx context.Context, filter *lesson.QueryFilter, exec ...core.DBExecutor) (int, error) {
	args := make([]interface{}, 0, 2)
	q := "SELECT COUNT(*) FROM lesson"
	if conds := repo.lessonConds(filter, &args); len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}

	var count int
	if err := getExec(repo.exec, exec).GetContext(ctx, &count, q, args...); err != nil {
		return 0, errors.Wrap(err, "counting lessons")
	}
	return count, nil
}

func (repo lessonRepository) UpdateLesson(ctx context.Context, les lesson.Lesson, exec ...core.DBExecutor) (lesson.Lesson, error) {
	q := "UPDATE lesson SET day = $1, notes = $2 WHERE id = $3"
	res, err := getExec(repo.exec, exec).ExecContext(ctx, q, les.Day, les.Notes, les.ID)
	if err != nil {
		if isUniqueViolation(errors.Cause(err)) {
			return lesson.Lesson{}, lesson.ErrAlreadyExists
		}
		return lesson.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	return les, nil
}

func (repo lessonRepository) DeleteLesson(ctx context.Context, id int, exec ...core.DBExecutor) error {
	if _, err := getExec(repo.exec, exec).ExecContext(ctx, "DELETE FROM lesson WHERE id = $1", id); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return nil
}

func (repo lessonRepository) StudentExists(ctx context.Context, studentID int, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	q := "SELECT EXISTS(SELECT 1 FROM student WHERE id = $1)"
	if err := getExec(repo.exec, exec).GetContext(ctx, &exists, q, studentID); err != nil {
		return false, errors.Wrap(err, "checking student")
	}
	return exists, nil
}

func (repo lessonRepository) GetStudentLinks(ctx context.Context, lessonID int, exec ...core.DBExecutor) ([]lesson.StudentLink, error) {
	var rows []lessonLinkRow
	q := "SELECT * FROM lesson_student_link WHERE lesson_id = $1 ORDER BY student_id"
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, q, lessonID); err != nil {
		return nil, errors.Wrap(err, "querying assistant links")
	}
	links := make([]lesson.StudentLink, 0, len(rows))
	for _, row := range rows {
		links = append(links, lesson.StudentLink{LessonID: row.LessonID, StudentID: row.StudentID})
	}
	return links, nil
}

func (repo lessonRepository) CreateStudentLink(ctx context.Context, link lesson.StudentLink, exec ...core.DBExecutor) (lesson.StudentLink, error) {
	q := "INSERT INTO lesson_student_link (lesson_id, student_id) VALUES ($1, $2)"
	if _, err := getExec(repo.exec, exec).ExecContext(ctx, q, link.LessonID, link.StudentID); err != nil {
		return lesson.StudentLink{}, errors.Wrap(err, "inserting assistant link")
	}
	return link, nil
}

func (repo lessonRepository) DeleteStudentLink(ctx context.Context, lessonID, studentID int, exec ...core.DBExecutor) error {
	q := "DELETE FROM lesson_student_link WHERE lesson_id = $1 AND student_id = $2"
	if _, err := getExec(repo.exec, exec).ExecContext(ctx, q, lessonID, studentID); err != nil {
		return errors.Wrap(err, "deleting assistant link")
	}
	return nil
}

func (repo lessonRepository) DeleteStudentLinksByLesson(ctx context.Context, lessonID int, exec ...core.DBExecutor) (int, error) {
	res, err := getExec(repo.exec, exec).ExecContext(ctx, "DELETE FROM lesson_student_link WHERE lesson_id = $1", lessonID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting assistant links by lesson")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting assistant links by lesson")
	}
	return int(n), nil
}

// materialize attaches each lesson's group and assistant students.
func (repo lessonRepository) materialize(ctx context.Context, ex core.DBExecutor, rows []lessonRow) ([]lesson.Lesson, error) {
	lessons := make([]lesson.Lesson, 0, len(rows))
	if len(rows) == 0 {
		return lessons, nil
	}

	lessonIDs := make([]int, 0, len(rows))
	groupIDs := make([]int, 0, len(rows))
	for _, row := range rows {
		lessonIDs = append(lessonIDs, row.ID)
		groupIDs = append(groupIDs, row.GroupID)
	}

	groups, err := groupsByIDs(ctx, ex, groupIDs)
	if err != nil {
		return nil, err
	}

	var linkRows []lessonLinkRow
	q := "SELECT * FROM lesson_student_link WHERE lesson_id = ANY($1)"
	if err := ex.SelectContext(ctx, &linkRows, q, pq.Array(lessonIDs)); err != nil {
		return nil, errors.Wrap(err, "querying assistant links by lessons")
	}
	studentIDs := make([]int, 0, len(linkRows))
	for _, row := range linkRows {
		studentIDs = append(studentIDs, row.StudentID)
	}
	students, err := studentsByIDs(ctx, ex, studentIDs)
	if err != nil {
		return nil, err
	}

	assistants := make(map[int][]student.Student, len(rows))
	for _, row := range linkRows {
		if stud, ok := students[row.StudentID]; ok {
			assistants[row.LessonID] = append(assistants[row.LessonID], stud)
		}
	}
	for _, studs := range assistants {
		sort.Slice(studs, func(i, j int) bool { return studs[i].ID < studs[j].ID })
	}

	for _, row := range rows {
		les := lesson.Lesson{
			ID:         row.ID,
			Day:        row.Day,
			Notes:      row.Notes.String,
			GroupID:    row.GroupID,
			Group:      groups[row.GroupID],
			Assistants: assistants[row.ID],
		}
		if les.Assistants == nil {
			les.Assistants = []student.Student{}
		}
		lessons = append(lessons, les)
	}
	return lessons, nil
}
