package student

import (
	"time"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/group"
)

type Student struct {
	ID                          int    `json:"id"`
	FullName                    string `json:"full_name"`
	City                        string `json:"city"`
	ResponsibleAdultFullName    string `json:"responsible_adult_full_name"`
	ResponsibleAdultPhoneNumber string `json:"responsible_adult_phone_number"`
	Notes                       string `json:"notes"`

	CreatedAt time.Time `json:"created_at"` // UTC, immutable

	// group memberships, materialized on reads
	GroupLinks []group.StudentLink `json:"group_links"`
}

// NewStudent contains information needed to create a new Student.
// Groups lists the IDs of the groups the student joins on creation.
type NewStudent struct {
	FullName                    string `json:"full_name" validate:"required"`
	City                        string `json:"city"`
	ResponsibleAdultFullName    string `json:"responsible_adult_full_name"`
	ResponsibleAdultPhoneNumber string `json:"responsible_adult_phone_number" validate:"omitempty,digitsonly"`
	Notes                       string `json:"notes"`
	Groups                      []int  `json:"groups"`
}

func (ns *NewStudent) Validate() error {
	ns.FullName = core.CleanString(ns.FullName)
	ns.City = core.CleanString(ns.City)
	ns.ResponsibleAdultFullName = core.CleanString(ns.ResponsibleAdultFullName)
	ns.ResponsibleAdultPhoneNumber = core.CleanString(ns.ResponsibleAdultPhoneNumber)
	return core.Validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an
// existing Student. Empty fields are left unchanged. A nil Groups slice
// leaves memberships untouched; an empty one removes them all.
type UpdateStudent struct {
	FullName                    string `json:"full_name"`
	City                        string `json:"city"`
	ResponsibleAdultFullName    string `json:"responsible_adult_full_name"`
	ResponsibleAdultPhoneNumber string `json:"responsible_adult_phone_number" validate:"omitempty,digitsonly"`
	Notes                       string `json:"notes"`
	Groups                      []int  `json:"groups"`
}

func (us *UpdateStudent) Validate(orig Student) error {
	if name := core.CleanString(us.FullName); name != "" {
		us.FullName = name
	} else {
		us.FullName = orig.FullName
	}

	if city := core.CleanString(us.City); city != "" {
		us.City = city
	} else {
		us.City = orig.City
	}

	if adult := core.CleanString(us.ResponsibleAdultFullName); adult != "" {
		us.ResponsibleAdultFullName = adult
	} else {
		us.ResponsibleAdultFullName = orig.ResponsibleAdultFullName
	}

	if phone := core.CleanString(us.ResponsibleAdultPhoneNumber); phone != "" {
		us.ResponsibleAdultPhoneNumber = phone
	} else {
		us.ResponsibleAdultPhoneNumber = orig.ResponsibleAdultPhoneNumber
	}

	if notes := core.CleanString(us.Notes); notes != "" {
		us.Notes = notes
	} else {
		us.Notes = orig.Notes
	}

	return core.Validate.Struct(us)
}

type QueryFilter struct {
	GroupID *int `query:"group_id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.GroupID == nil
}
