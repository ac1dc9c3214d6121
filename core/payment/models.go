package payment

import (
	"time"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/student"
)

const (
	MethodMercadopago  = "mercadopago"
	MethodCash         = "cash"
	MethodBankTransfer = "bank_transfer"
	MethodOther        = "other"

	ReasonOneMonth  = "one_month"
	ReasonHalfMonth = "half_month"
	ReasonOneLesson = "one_lesson"
	ReasonOther     = "other"
)

type Payment struct {
	ID        int       `json:"id"`
	Amount    int       `json:"amount"` // whole currency units
	Notes     string    `json:"notes"`
	Day       core.Date `json:"day"`
	Method    string    `json:"method"`
	Reason    string    `json:"reason"`
	StudentID int       `json:"student_id"`
	CreatedAt time.Time `json:"created_at"` // UTC, immutable

	// materialized on reads
	Student student.Student `json:"student"`
}

// NewPayment contains information needed to record a new Payment.
// Method and Reason default to "other" when omitted.
type NewPayment struct {
	Amount    int       `json:"amount" validate:"gte=0"`
	Notes     string    `json:"notes"`
	Day       core.Date `json:"day" validate:"required"`
	Method    string    `json:"method" validate:"oneof=mercadopago cash bank_transfer other"`
	Reason    string    `json:"reason" validate:"oneof=one_month half_month one_lesson other"`
	StudentID int       `json:"student_id" validate:"required"`
}

func (np *NewPayment) Validate() error {
	np.Notes = core.CleanString(np.Notes)
	if np.Method = core.CleanString(np.Method, true); np.Method == "" {
		np.Method = MethodOther
	}
	if np.Reason = core.CleanString(np.Reason, true); np.Reason == "" {
		np.Reason = ReasonOther
	}
	return core.Validate.Struct(np)
}

// UpdatePayment defines what information may be provided to modify an
// existing Payment. Nil or empty fields are left unchanged.
type UpdatePayment struct {
	Amount *int       `json:"amount" validate:"omitempty,gte=0"`
	Notes  string     `json:"notes"`
	Day    *core.Date `json:"day"`
	Method string     `json:"method" validate:"omitempty,oneof=mercadopago cash bank_transfer other"`
	Reason string     `json:"reason" validate:"omitempty,oneof=one_month half_month one_lesson other"`
}

func (up *UpdatePayment) Validate(orig Payment) error {
	if notes := core.CleanString(up.Notes); notes != "" {
		up.Notes = notes
	} else {
		up.Notes = orig.Notes
	}
	up.Method = core.CleanString(up.Method, true)
	up.Reason = core.CleanString(up.Reason, true)
	return core.Validate.Struct(up)
}

type QueryFilter struct {
	StudentID *int `query:"student_id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.StudentID == nil
}
