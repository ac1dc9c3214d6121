package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/payment"
)

type paymentRow struct {
	ID        int         `db:"id"`
	Amount    int         `db:"amount"`
	Notes     null.String `db:"notes"`
	Day       core.Date   `db:"day"`
	Method    string      `db:"method"`
	Reason    string      `db:"reason"`
	StudentID int         `db:"student_id"`
	CreatedAt time.Time   `db:"created_at"`
}

func (r paymentRow) unpack() payment.Payment {
	return payment.Payment{
		ID:        r.ID,
		Amount:    r.Amount,
		Notes:     r.Notes.String,
		Day:       r.Day,
		Method:    r.Method,
		Reason:    r.Reason,
		StudentID: r.StudentID,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type paymentRepository struct {
	exec core.DBExecutor
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(exec core.DBExecutor) *paymentRepository {
	return &paymentRepository{exec: exec}
}

func (repo paymentRepository) CreatePayment(ctx context.Context, pmt payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	q := `INSERT INTO payment (amount, notes, day, method, reason, student_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := getExec(repo.exec, exec).QueryRowxContext(
		ctx, q, pmt.Amount, pmt.Notes, pmt.Day, pmt.Method, pmt.Reason, pmt.StudentID, pmt.CreatedAt,
	).Scan(&pmt.ID)
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return pmt, nil
}

func (repo paymentRepository) GetPaymentByID(ctx context.Context, id int, exec ...core.DBExecutor) (payment.Payment, error) {
	var row paymentRow
	if err := getExec(repo.exec, exec).GetContext(ctx, &row, "SELECT * FROM payment WHERE id = $1", id); err != nil {
		return payment.Payment{}, trapNoRowsErr(err, payment.ErrNotFound, "getting payment by id")
	}

	payments, err := repo.materialize(ctx, getExec(repo.exec, exec), []paymentRow{row})
	if err != nil {
		return payment.Payment{}, err
	}
	return payments[0], nil
}

func (repo paymentRepository) QueryPayments(ctx context.Context, filter *payment.QueryFilter, skip, limit int, exec ...core.DBExecutor) ([]payment.Payment, error) {
	args := make([]interface{}, 0, 3)
	q := "SELECT * FROM payment"
	if filter != nil && filter.StudentID != nil {
		q += " WHERE student_id = " + arg(&args, *filter.StudentID)
	}
	q += " ORDER BY id LIMIT " + arg(&args, limit) + " OFFSET " + arg(&args, skip)

	var rows []paymentRow
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	return repo.materialize(ctx, getExec(repo.exec, exec), rows)
}

func (repo paymentRepository) CountPayments(ctx context.Context, filter *payment.QueryFilter, exec ...core.DBExecutor) (int, error) {
	args := make([]interface{}, 0, 1)
	q := "SELECT COUNT(*) FROM payment"
	if filter != nil && filter.StudentID != nil {
		q += " WHERE student_id = " + arg(&args, *filter.StudentID)
	}

	var count int
	if err := getExec(repo.exec, exec).GetContext(ctx, &count, q, args...); err != nil {
		return 0, errors.Wrap(err, "counting payments")
	}
	return count, nil
}

func (repo paymentRepository) UpdatePayment(ctx context.Context, pmt payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	q := "UPDATE payment SET amount = $1, notes = $2, day = $3, method = $4, reason = $5 WHERE id = $6"
	res, err := getExec(repo.exec, exec).ExecContext(ctx, q, pmt.Amount, pmt.Notes, pmt.Day, pmt.Method, pmt.Reason, pmt.ID)
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "updating payment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return payment.Payment{}, payment.ErrNotFound
	}
	return pmt, nil
}

func (repo paymentRepository) DeletePayment(ctx context.Context, id int, exec ...core.DBExecutor) error {
	if _, err := getExec(repo.exec, exec).ExecContext(ctx, "DELETE FROM payment WHERE id = $1", id); err != nil {
		return errors.Wrap(err, "deleting payment")
	}
	return nil
}

func (repo paymentRepository) StudentExists(ctx context.Context, studentID int, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	q := "SELECT EXISTS(SELECT 1 FROM student WHERE id = $1)"
	if err := getExec(repo.exec, exec).GetContext(ctx, &exists, q, studentID); err != nil {
		return false, errors.Wrap(err, "checking student")
	}
	return exists, nil
}

// materialize attaches each payment's student.
func (repo paymentRepository) materialize(ctx context.Context, ex core.DBExecutor, rows []paymentRow) ([]payment.Payment, error) {
	payments := make([]payment.Payment, 0, len(rows))
	if len(rows) == 0 {
		return payments, nil
	}

	studentIDs := make([]int, 0, len(rows))
	for _, row := range rows {
		studentIDs = append(studentIDs, row.StudentID)
	}
	students, err := studentsByIDs(ctx, ex, studentIDs)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		pmt := row.unpack()
		pmt.Student = students[row.StudentID]
		payments = append(payments, pmt)
	}
	return payments, nil
}
