package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/user"
)

type userRow struct {
	ID           int       `db:"id"`
	FullName     string    `db:"full_name"`
	Email        string    `db:"email"`
	IsActive     bool      `db:"is_active"`
	IsSuperuser  bool      `db:"is_superuser"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func (r userRow) unpack() user.User {
	return user.User{
		ID:           r.ID,
		FullName:     r.FullName,
		Email:        r.Email,
		IsActive:     r.IsActive,
		IsSuperuser:  r.IsSuperuser,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	args := []interface{}{email}
	q := `SELECT EXISTS(SELECT 1 FROM "user" WHERE email = $1`
	for _, usr := range excludedUsers {
		q += " AND id != " + arg(&args, usr.ID)
	}
	q += ")"

	var exists bool
	if err := getExec(repo.exec, exec).GetContext(ctx, &exists, q, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	q := `INSERT INTO "user" (full_name, email, is_active, is_superuser, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := getExec(repo.exec, exec).QueryRowxContext(
		ctx, q, usr.FullName, usr.Email, usr.IsActive, usr.IsSuperuser, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt,
	).Scan(&usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int, exec ...core.DBExecutor) (user.User, error) {
	var row userRow
	if err := getExec(repo.exec, exec).GetContext(ctx, &row, `SELECT * FROM "user" WHERE id = $1`, id); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user by id")
	}
	return row.unpack(), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (user.User, error) {
	var row userRow
	if err := getExec(repo.exec, exec).GetContext(ctx, &row, `SELECT * FROM "user" WHERE email = $1`, email); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user by email")
	}
	return row.unpack(), nil
}

func (repo userRepository) userConds(filter *user.QueryFilter, args *[]interface{}) []string {
	conds := make([]string, 0, 4)
	if filter == nil {
		return conds
	}
	if filter.Search != "" {
		p := arg(args, "%"+strings.ToLower(filter.Search)+"%")
		conds = append(conds, "(LOWER(full_name) LIKE "+p+" OR LOWER(email) LIKE "+p+")")
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = "+arg(args, *filter.IsActive))
	}
	if filter.IsSuperuser != nil {
		conds = append(conds, "is_superuser = "+arg(args, *filter.IsSuperuser))
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, "created_at >= "+arg(args, filter.CreatedFrom))
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, "created_at <= "+arg(args, filter.CreatedTo))
	}
	return conds
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, skip, limit int, exec ...core.DBExecutor) ([]user.User, error) {
	args := make([]interface{}, 0, 7)
	q := `SELECT * FROM "user"`
	if conds := repo.userConds(filter, &args); len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY id LIMIT " + arg(&args, limit) + " OFFSET " + arg(&args, skip)

	var rows []userRow
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.unpack())
	}
	return users, nil
}

func (repo userRepository) CountUsers(ctx context.Context, filter *user.QueryFilter, exec ...core.DBExecutor) (int, error) {
	args := make([]interface{}, 0, 5)
	q := `SELECT COUNT(*) FROM "user"`
	if conds := repo.userConds(filter, &args); len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}

	var count int
	if err := getExec(repo.exec, exec).GetContext(ctx, &count, q, args...); err != nil {
		return 0, errors.Wrap(err, "counting users")
	}
	return count, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	q := `UPDATE "user" SET full_name = $1, email = $2, is_active = $3, is_superuser = $4,
		password_hash = $5, updated_at = $6, last_login = $7 WHERE id = $8`
	lastLogin := null.NewTime(usr.LastLogin, !usr.LastLogin.IsZero())
	res, err := getExec(repo.exec, exec).ExecContext(
		ctx, q, usr.FullName, usr.Email, usr.IsActive, usr.IsSuperuser, usr.PasswordHash, usr.UpdatedAt, lastLogin, usr.ID,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	q := `INSERT INTO "user" (full_name, email, is_active, is_superuser, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (email) DO UPDATE SET full_name = EXCLUDED.full_name, is_active = EXCLUDED.is_active,
			is_superuser = EXCLUDED.is_superuser, password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at
		RETURNING id`
	err := getExec(repo.exec, exec).QueryRowxContext(
		ctx, q, usr.FullName, usr.Email, usr.IsActive, usr.IsSuperuser, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt,
	).Scan(&usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "upserting user")
	}
	return usr, nil
}

func (repo userRepository) DeleteUser(ctx context.Context, id int, exec ...core.DBExecutor) error {
	if _, err := getExec(repo.exec, exec).ExecContext(ctx, `DELETE FROM "user" WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return nil
}
