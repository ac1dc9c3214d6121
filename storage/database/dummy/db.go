// Package dummydb provides an in-memory database for tests. Repositories
// operate on shared state directly; transactions are snapshot based, so a
// rollback restores the state captured at Begin.
package dummydb

import (
	"context"
	"database/sql"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/group"
	"github.com/academia-app/academia/core/lesson"
	"github.com/academia-app/academia/core/payment"
	"github.com/academia-app/academia/core/student"
	"github.com/academia-app/academia/core/user"
)

var errRawSQL = errors.New("dummydb: raw SQL is not supported")

type DB struct {
	mu sync.RWMutex

	// rows are stored flat; related objects are attached on read
	users    map[int]user.User
	groups   map[int]group.Group
	students map[int]student.Student
	lessons  map[int]lesson.Lesson
	payments map[int]payment.Payment

	groupLinks  []group.StudentLink
	lessonLinks []lesson.StudentLink

	lastUserID    int
	lastGroupID   int
	lastStudentID int
	lastLessonID  int
	lastPaymentID int
}

var _ core.DB = (*DB)(nil) // interface compliance check

func Open() (*DB, error) {
	return &DB{
		users:    make(map[int]user.User),
		groups:   make(map[int]group.Group),
		students: make(map[int]student.Student),
		lessons:  make(map[int]lesson.Lesson),
		payments: make(map[int]payment.Payment),
	}, nil
}

// Reset drops all rows and link records so tests can start from a clean slate.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users = make(map[int]user.User)
	db.groups = make(map[int]group.Group)
	db.students = make(map[int]student.Student)
	db.lessons = make(map[int]lesson.Lesson)
	db.payments = make(map[int]payment.Payment)
	db.groupLinks = nil
	db.lessonLinks = nil
	db.lastUserID = 0
	db.lastGroupID = 0
	db.lastStudentID = 0
	db.lastLessonID = 0
	db.lastPaymentID = 0
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, errRawSQL
}

func (db *DB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return errRawSQL
}

func (db *DB) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return errRawSQL
}

func (db *DB) QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row {
	return nil
}

func (db *DB) Begin(ctx context.Context) (core.DBTransactor, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return &tx{DB: db, snap: db.snapshot()}, nil
}

type tx struct {
	*DB
	snap snapshot
	done bool
}

func (t *tx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.DB.mu.Lock()
	t.DB.restore(t.snap)
	t.DB.mu.Unlock()
	t.done = true
	return nil
}

type snapshot struct {
	users    map[int]user.User
	groups   map[int]group.Group
	students map[int]student.Student
	lessons  map[int]lesson.Lesson
	payments map[int]payment.Payment

	groupLinks  []group.StudentLink
	lessonLinks []lesson.StudentLink

	lastUserID    int
	lastGroupID   int
	lastStudentID int
	lastLessonID  int
	lastPaymentID int
}

func (db *DB) snapshot() snapshot {
	snap := snapshot{
		users:         make(map[int]user.User, len(db.users)),
		groups:        make(map[int]group.Group, len(db.groups)),
		students:      make(map[int]student.Student, len(db.students)),
		lessons:       make(map[int]lesson.Lesson, len(db.lessons)),
		payments:      make(map[int]payment.Payment, len(db.payments)),
		groupLinks:    append([]group.StudentLink(nil), db.groupLinks...),
		lessonLinks:   append([]lesson.StudentLink(nil), db.lessonLinks...),
		lastUserID:    db.lastUserID,
		lastGroupID:   db.lastGroupID,
		lastStudentID: db.lastStudentID,
		lastLessonID:  db.lastLessonID,
		lastPaymentID: db.lastPaymentID,
	}
	for id, usr := range db.users {
		snap.users[id] = usr
	}
	for id, grp := range db.groups {
		snap.groups[id] = grp
	}
	for id, stud := range db.students {
		snap.students[id] = stud
	}
	for id, les := range db.lessons {
		snap.lessons[id] = les
	}
	for id, pmt := range db.payments {
		snap.payments[id] = pmt
	}
	return snap
}

func (db *DB) restore(snap snapshot) {
	db.users = snap.users
	db.groups = snap.groups
	db.students = snap.students
	db.lessons = snap.lessons
	db.payments = snap.payments
	db.groupLinks = snap.groupLinks
	db.lessonLinks = snap.lessonLinks
	db.lastUserID = snap.lastUserID
	db.lastGroupID = snap.lastGroupID
	db.lastStudentID = snap.lastStudentID
	db.lastLessonID = snap.lastLessonID
	db.lastPaymentID = snap.lastPaymentID
}
