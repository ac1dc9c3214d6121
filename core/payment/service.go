package payment

import (
	"context"
	"errors"
	"time"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/student"
)

var (
	// errors
	ErrNotFound = errors.New("payment not found")
)

type (
	Repository interface {
		CreatePayment(ctx context.Context, pmt Payment, exec ...core.DBExecutor) (Payment, error)
		GetPaymentByID(ctx context.Context, id int, exec ...core.DBExecutor) (Payment, error)
		// QueryPayments applies the filter, orders by ID and paginates with skip/limit.
		QueryPayments(ctx context.Context, filter *QueryFilter, skip, limit int, exec ...core.DBExecutor) ([]Payment, error)
		// CountPayments counts the full filtered set, ignoring pagination.
		CountPayments(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) (int, error)
		UpdatePayment(ctx context.Context, pmt Payment, exec ...core.DBExecutor) (Payment, error)
		DeletePayment(ctx context.Context, id int, exec ...core.DBExecutor) error

		StudentExists(ctx context.Context, studentID int, exec ...core.DBExecutor) (bool, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the filtered page of payments and the size of the full filtered set.
func (svc *Service) List(ctx context.Context, filter *QueryFilter, skip, limit int) ([]Payment, int, error) {
	if filter != nil && filter.StudentID != nil {
		exists, err := svc.repo.StudentExists(ctx, *filter.StudentID)
		if err != nil {
			return nil, 0, err
		}
		if !exists {
			return nil, 0, student.ErrNotFound
		}
	}

	payments, err := svc.repo.QueryPayments(ctx, filter, skip, limit)
	if err != nil {
		return nil, 0, err
	}
	count, err := svc.repo.CountPayments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return payments, count, nil
}

func (svc *Service) Get(ctx context.Context, id int) (Payment, error) {
	return svc.repo.GetPaymentByID(ctx, id)
}

func (svc *Service) Create(ctx context.Context, np NewPayment) (Payment, error) {
	if err := np.Validate(); err != nil {
		return Payment{}, err
	}

	exists, err := svc.repo.StudentExists(ctx, np.StudentID)
	if err != nil {
		return Payment{}, err
	}
	if !exists {
		return Payment{}, student.ErrNotFound
	}

	pmt := Payment{
		Amount:    np.Amount,
		Notes:     np.Notes,
		Day:       np.Day,
		Method:    np.Method,
		Reason:    np.Reason,
		StudentID: np.StudentID,
		CreatedAt: time.Now().UTC(),
	}
	if pmt, err = svc.repo.CreatePayment(ctx, pmt); err != nil {
		return Payment{}, err
	}
	return svc.repo.GetPaymentByID(ctx, pmt.ID)
}

func (svc *Service) Update(ctx context.Context, id int, up UpdatePayment) (Payment, error) {
	orig, err := svc.repo.GetPaymentByID(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if err := up.Validate(orig); err != nil {
		return Payment{}, err
	}

	if up.Amount != nil {
		orig.Amount = *up.Amount
	}
	orig.Notes = up.Notes
	if up.Day != nil {
		orig.Day = *up.Day
	}
	if up.Method != "" {
		orig.Method = up.Method
	}
	if up.Reason != "" {
		orig.Reason = up.Reason
	}

	if _, err = svc.repo.UpdatePayment(ctx, orig); err != nil {
		return Payment{}, err
	}
	return svc.repo.GetPaymentByID(ctx, id)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	if _, err := svc.repo.GetPaymentByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeletePayment(ctx, id)
}
