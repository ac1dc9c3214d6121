package group

import (
	"time"

	"github.com/academia-app/academia/core"
)

type Group struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	// membership roster, materialized on reads
	StudentLinks []StudentLink `json:"student_links"`
}

// StudentLink is the join row marking a student as a member of a group.
// Its identity is the (GroupID, StudentID) pair; at most one row exists per pair.
type StudentLink struct {
	GroupID   int       `json:"group_id"`
	StudentID int       `json:"student_id"`
	JoinedAt  time.Time `json:"joined_at"` // UTC, set once at link creation
}

// NewGroup contains information needed to create a new Group.
type NewGroup struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
}

func (ng *NewGroup) Validate() error {
	ng.Name = core.CleanString(ng.Name)
	ng.Description = core.CleanString(ng.Description)
	return core.Validate.Struct(ng)
}

// UpdateGroup defines what information may be provided to modify an existing
// Group. Empty fields are left unchanged.
type UpdateGroup struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (ug *UpdateGroup) Validate(orig Group) error {
	if name := core.CleanString(ug.Name); name != "" {
		ug.Name = name
	} else {
		ug.Name = orig.Name
	}

	if desc := core.CleanString(ug.Description); desc != "" {
		ug.Description = desc
	} else {
		ug.Description = orig.Description
	}

	return core.Validate.Struct(ug)
}

type QueryFilter struct {
	StudentID *int `query:"student_id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == nil
}
