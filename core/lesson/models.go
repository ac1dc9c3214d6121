package lesson

import (
	"fmt"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/group"
	"github.com/academia-app/academia/core/student"
)

type Lesson struct {
	ID      int       `json:"id"`
	Day     core.Date `json:"day"`
	Notes   string    `json:"notes"`
	GroupID int       `json:"group_id"`

	// materialized on reads
	Group      group.Group       `json:"group"`
	Assistants []student.Student `json:"assistants"`
}

// StudentLink is the join row marking a student as an assistant of a lesson.
// Its identity is the (LessonID, StudentID) pair.
type StudentLink struct {
	LessonID  int `json:"lesson_id"`
	StudentID int `json:"student_id"`
}

// NewLesson contains information needed to create a new Lesson.
// Assistants lists the IDs of the assisting students; each must be a member
// of the lesson's group.
type NewLesson struct {
	Day        core.Date `json:"day" validate:"required"`
	Notes      string    `json:"notes"`
	GroupID    int       `json:"group_id" validate:"required"`
	Assistants []int     `json:"assistants"`
}

func (nl *NewLesson) Validate() error {
	nl.Notes = core.CleanString(nl.Notes)
	return core.Validate.Struct(nl)
}

// UpdateLesson defines what information may be provided to modify an
// existing Lesson. Empty fields are left unchanged. A nil Assistants slice
// leaves assistant links untouched; an empty one removes them all.
type UpdateLesson struct {
	Day        *core.Date `json:"day"`
	Notes      string     `json:"notes"`
	Assistants []int      `json:"assistants"`
}

func (ul *UpdateLesson) Validate(orig Lesson) error {
	if notes := core.CleanString(ul.Notes); notes != "" {
		ul.Notes = notes
	} else {
		ul.Notes = orig.Notes
	}
	return core.Validate.Struct(ul)
}

type QueryFilter struct {
	StudentID *int `query:"student_id"`
	GroupID   *int `query:"group_id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == nil && qf.GroupID == nil
}

// NotRegisteredError reports an assistant candidate that is not a member of
// the lesson's group.
type NotRegisteredError struct {
	StudentID int
	GroupID   int
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("student %d is not registered in group %d", e.StudentID, e.GroupID)
}
