package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/group"
)

type groupRow struct {
	ID          int    `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
}

type groupLinkRow struct {
	GroupID   int       `db:"group_id"`
	StudentID int       `db:"student_id"`
	JoinedAt  time.Time `db:"joined_at"`
}

func (r groupLinkRow) unpack() group.StudentLink {
	return group.StudentLink{GroupID: r.GroupID, StudentID: r.StudentID, JoinedAt: r.JoinedAt.UTC()}
}

type groupRepository struct {
	exec core.DBExecutor
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(exec core.DBExecutor) *groupRepository {
	return &groupRepository{exec: exec}
}

func (repo groupRepository) CreateGroup(ctx context.Context, grp group.Group, exec ...core.DBExecutor) (group.Group, error) {
	q := `INSERT INTO "group" (name, description) VALUES ($1, $2) RETURNING id`
	if err := getExec(repo.exec, exec).QueryRowxContext(ctx, q, grp.Name, grp.Description).Scan(&grp.ID); err != nil {
		return group.Group{}, errors.Wrap(err, "inserting group")
	}
	grp.StudentLinks = []group.StudentLink{}
	return grp, nil
}

func (repo groupRepository) GetGroupByID(ctx context.Context, id int, exec ...core.DBExecutor) (group.Group, error) {
	var row groupRow
	if err := getExec(repo.exec, exec).GetContext(ctx, &row, `SELECT * FROM "group" WHERE id = $1`, id); err != nil {
		return group.Group{}, trapNoRowsErr(err, group.ErrNotFound, "getting group by id")
	}

	grp := group.Group{ID: row.ID, Name: row.Name, Description: row.Description}
	links, err := studentLinksByGroups(ctx, getExec(repo.exec, exec), []int{id})
	if err != nil {
		return group.Group{}, err
	}
	grp.StudentLinks = links[id]
	if grp.StudentLinks == nil {
		grp.StudentLinks = []group.StudentLink{}
	}
	return grp, nil
}

func (repo groupRepository) GroupExists(ctx context.Context, id int, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	q := `SELECT EXISTS(SELECT 1 FROM "group" WHERE id = $1)`
	if err := getExec(repo.exec, exec).GetContext(ctx, &exists, q, id); err != nil {
		return false, errors.Wrap(err, "checking group")
	}
	return exists, nil
}

func (repo groupRepository) QueryGroups(ctx context.Context, filter *group.QueryFilter, skip, limit int, exec ...core.DBExecutor) ([]group.Group, error) {
	args := make([]interface{}, 0, 3)
	q := `SELECT * FROM "group"`
	if filter != nil && filter.StudentID != nil {
		q += " WHERE id IN (SELECT group_id FROM group_student_link WHERE student_id = " + arg(&args, *filter.StudentID) + ")"
	}
	q += " ORDER BY id LIMIT " + arg(&args, limit) + " OFFSET " + arg(&args, skip)

	var rows []groupRow
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}

	ids := make([]int, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	links, err := studentLinksByGroups(ctx, getExec(repo.exec, exec), ids)
	if err != nil {
		return nil, err
	}

	groups := make([]group.Group, 0, len(rows))
	for _, row := range rows {
		grp := group.Group{ID: row.ID, Name: row.Name, Description: row.Description, StudentLinks: links[row.ID]}
		if grp.StudentLinks == nil {
			grp.StudentLinks = []group.StudentLink{}
		}
		groups = append(groups, grp)
	}
	return groups, nil
}

func (repo groupRepository) CountGroups(ctx context.Context, filter *group.QueryFilter, exec ...core.DBExecutor) (int, error) {
	args := make([]interface{}, 0, 1)
	q := `SELECT COUNT(*) FROM "group"`
	if filter != nil && filter.StudentID != nil {
		q += " WHERE id IN (SELECT group_id FROM group_student_link WHERE student_id = " + arg(&args, *filter.StudentID) + ")"
	}

	var count int
	if err := getExec(repo.exec, exec).GetContext(ctx, &count, q, args...); err != nil {
		return 0, errors.Wrap(err, "counting groups")
	}
	return count, nil
}

func (repo groupRepository) UpdateGroup(ctx context.Context, grp group.Group, exec ...core.DBExecutor) (group.Group, error) {
	q := `UPDATE "group" SET name = $1, description = $2 WHERE id = $3`
	res, err := getExec(repo.exec, exec).ExecContext(ctx, q, grp.Name, grp.Description, grp.ID)
	if err != nil {
		return group.Group{}, errors.Wrap(err, "updating group")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return group.Group{}, group.ErrNotFound
	}
	return repo.GetGroupByID(ctx, grp.ID, exec...)
}

func (repo groupRepository) DeleteGroup(ctx context.Context, id int, exec ...core.DBExecutor) error {
	q := `DELETE FROM "group" WHERE id = $1`
	if _, err := getExec(repo.exec, exec).ExecContext(ctx, q, id); err != nil {
		return errors.Wrap(err, "deleting group")
	}
	return nil
}

func (repo groupRepository) DeleteStudentLinksByGroup(ctx context.Context, groupID int, exec ...core.DBExecutor) (int, error) {
	q := "DELETE FROM group_student_link WHERE group_id = $1"
	res, err := getExec(repo.exec, exec).ExecContext(ctx, q, groupID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting group membership links")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (repo groupRepository) StudentExists(ctx context.Context, studentID int, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	q := "SELECT EXISTS(SELECT 1 FROM student WHERE id = $1)"
	if err := getExec(repo.exec, exec).GetContext(ctx, &exists, q, studentID); err != nil {
		return false, errors.Wrap(err, "checking student")
	}
	return exists, nil
}

func (repo groupRepository) GetStudentLinksByStudent(ctx context.Context, studentID int, exec ...core.DBExecutor) ([]group.StudentLink, error) {
	var rows []groupLinkRow
	q := "SELECT * FROM group_student_link WHERE student_id = $1 ORDER BY group_id"
	if err := getExec(repo.exec, exec).SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying membership links by student")
	}
	links := make([]group.StudentLink, 0, len(rows))
	for _, row := range rows {
		links = append(links, row.unpack())
	}
	return links, nil
}

func (repo groupRepository) StudentLinkExists(ctx context.Context, groupID, studentID int, exec ...core.DBExecutor) (bool, error) {
	var exists bool
	q := "SELECT EXISTS(SELECT 1 FROM group_student_link WHERE group_id = $1 AND student_id = $2)"
	if err := getExec(repo.exec, exec).GetContext(ctx, &exists, q, groupID, studentID); err != nil {
		return false, errors.Wrap(err, "checking membership link")
	}
	return exists, nil
}

func (repo groupRepository) CreateStudentLink(ctx context.Context, link group.StudentLink, exec ...core.DBExecutor) (group.StudentLink, error) {
	q := "INSERT INTO group_student_link (group_id, student_id, joined_at) VALUES ($1, $2, $3)"
	if _, err := getExec(repo.exec, exec).ExecContext(ctx, q, link.GroupID, link.StudentID, link.JoinedAt); err != nil {
		return group.StudentLink{}, errors.Wrap(err, "inserting membership link")
	}
	return link, nil
}

func (repo groupRepository) DeleteStudentLink(ctx context.Context, groupID, studentID int, exec ...core.DBExecutor) error {
	q := "DELETE FROM group_student_link WHERE group_id = $1 AND student_id = $2"
	if _, err := getExec(repo.exec, exec).ExecContext(ctx, q, groupID, studentID); err != nil {
		return errors.Wrap(err, "deleting membership link")
	}
	return nil
}

func (repo groupRepository) DeleteStudentLinksByStudent(ctx context.Context, studentID int, exec ...core.DBExecutor) (int, error) {
	q := "DELETE FROM group_student_link WHERE student_id = $1"
	res, err := getExec(repo.exec, exec).ExecContext(ctx, q, studentID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting membership links by student")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting membership links by student")
	}
	return int(n), nil
}

// studentLinksByGroups materializes the membership rosters for the given
// group IDs in one query.
func studentLinksByGroups(ctx context.Context, ex core.DBExecutor, groupIDs []int) (map[int][]group.StudentLink, error) {
	byGroup := make(map[int][]group.StudentLink, len(groupIDs))
	if len(groupIDs) == 0 {
		return byGroup, nil
	}

	var rows []groupLinkRow
	q := "SELECT * FROM group_student_link WHERE group_id = ANY($1) ORDER BY group_id, student_id"
	if err := ex.SelectContext(ctx, &rows, q, pq.Array(groupIDs)); err != nil {
		return nil, errors.Wrap(err, "querying membership links by groups")
	}
	for _, row := range rows {
		byGroup[row.GroupID] = append(byGroup[row.GroupID], row.unpack())
	}
	return byGroup, nil
}

// groupsByIDs fetches groups with their membership rosters.
func groupsByIDs(ctx context.Context, ex core.DBExecutor, ids []int) (map[int]group.Group, error) {
	byID := make(map[int]group.Group, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}

	var rows []groupRow
	if err := ex.SelectContext(ctx, &rows, `SELECT * FROM "group" WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, errors.Wrap(err, "querying groups by ids")
	}
	links, err := studentLinksByGroups(ctx, ex, ids)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		grp := group.Group{ID: row.ID, Name: row.Name, Description: row.Description, StudentLinks: links[row.ID]}
		if grp.StudentLinks == nil {
			grp.StudentLinks = []group.StudentLink{}
		}
		byID[row.ID] = grp
	}
	return byID, nil
}
