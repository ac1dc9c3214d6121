package dummydb

import (
	"context"
	"sort"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/payment"
	"github.com/academia-app/academia/core/student"
)

type paymentRepository struct {
	db *DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) *paymentRepository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, pmt payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.lastPaymentID++
	pmt.ID = repo.db.lastPaymentID
	pmt.Student = student.Student{}
	repo.db.payments[pmt.ID] = pmt
	return pmt, nil
}

func (repo *paymentRepository) GetPaymentByID(ctx context.Context, id int, exec ...core.DBExecutor) (payment.Payment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	pmt, ok := repo.db.payments[id]
	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	return repo.materialize(pmt), nil
}

func (repo *paymentRepository) QueryPayments(ctx context.Context, filter *payment.QueryFilter, skip, limit int, exec ...core.DBExecutor) ([]payment.Payment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	matched := repo.filter(filter)
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	matched = paginatePayments(matched, skip, limit)

	for i := range matched {
		matched[i] = repo.materialize(matched[i])
	}
	return matched, nil
}

func (repo *paymentRepository) CountPayments(ctx context.Context, filter *payment.QueryFilter, exec ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.filter(filter)), nil
}

func (repo *paymentRepository) UpdatePayment(ctx context.Context, pmt payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.payments[pmt.ID]
	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	orig.Amount = pmt.Amount
	orig.Notes = pmt.Notes
	orig.Day = pmt.Day
	orig.Method = pmt.Method
	orig.Reason = pmt.Reason
	repo.db.payments[pmt.ID] = orig

	return repo.materialize(orig), nil
}

func (repo *paymentRepository) DeletePayment(ctx context.Context, id int, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.payments, id)
	return nil
}

func (repo *paymentRepository) StudentExists(ctx context.Context, studentID int, exec ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	_, ok := repo.db.students[studentID]
	return ok, nil
}

func (repo *paymentRepository) filter(filter *payment.QueryFilter) []payment.Payment {
	matched := make([]payment.Payment, 0, len(repo.db.payments))
	for _, pmt := range repo.db.payments {
		if filter != nil && filter.StudentID != nil && pmt.StudentID != *filter.StudentID {
			continue
		}
		matched = append(matched, pmt)
	}
	return matched
}

// materialize attaches the payment's student.
func (repo *paymentRepository) materialize(pmt payment.Payment) payment.Payment {
	stud := repo.db.students[pmt.StudentID]
	stud.GroupLinks = NewStudentRepository(repo.db).linksOfStudent(pmt.StudentID)
	pmt.Student = stud
	return pmt
}

func paginatePayments(payments []payment.Payment, skip, limit int) []payment.Payment {
	if skip >= len(payments) {
		return []payment.Payment{}
	}
	payments = payments[skip:]
	if limit < len(payments) {
		payments = payments[:limit]
	}
	return payments
}
