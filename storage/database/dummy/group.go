package dummydb

import (
	"context"
	"sort"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/group"
)

type groupRepository struct {
	db *DB
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *DB) *groupRepository {
	return &groupRepository{db: db}
}

func (repo *groupRepository) CreateGroup(ctx context.Context, grp group.Group, exec ...core.DBExecutor) (group.Group, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.lastGroupID++
	grp.ID = repo.db.lastGroupID
	grp.StudentLinks = nil
	repo.db.groups[grp.ID] = grp

	grp.StudentLinks = []group.StudentLink{}
	return grp, nil
}

func (repo *groupRepository) GetGroupByID(ctx context.Context, id int, exec ...core.DBExecutor) (group.Group, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	grp, ok := repo.db.groups[id]
	if !ok {
		return group.Group{}, group.ErrNotFound
	}
	grp.StudentLinks = repo.linksOfGroup(id)
	return grp, nil
}

func (repo *groupRepository) GroupExists(ctx context.Context, id int, exec ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	_, ok := repo.db.groups[id]
	return ok, nil
}

func (repo *groupRepository) QueryGroups(ctx context.Context, filter *group.QueryFilter, skip, limit int, exec ...core.DBExecutor) ([]group.Group, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	matched := repo.filter(filter)
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	matched = paginateGroups(matched, skip, limit)

	for i := range matched {
		matched[i].StudentLinks = repo.linksOfGroup(matched[i].ID)
	}
	return matched, nil
}

func (repo *groupRepository) CountGroups(ctx context.Context, filter *group.QueryFilter, exec ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.filter(filter)), nil
}

func (repo *groupRepository) UpdateGroup(ctx context.Context, grp group.Group, exec ...core.DBExecutor) (group.Group, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.groups[grp.ID]
	if !ok {
		return group.Group{}, group.ErrNotFound
	}
	orig.Name = grp.Name
	orig.Description = grp.Description
	repo.db.groups[grp.ID] = orig

	orig.StudentLinks = repo.linksOfGroup(grp.ID)
	return orig, nil
}

func (repo *groupRepository) DeleteGroup(ctx context.Context, id int, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.groups, id)
	return nil
}

func (repo *groupRepository) DeleteStudentLinksByGroup(ctx context.Context, groupID int, exec ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var removed int
	links := repo.db.groupLinks[:0]
	for _, link := range repo.db.groupLinks {
		if link.GroupID == groupID {
			removed++
			continue
		}
		links = append(links, link)
	}
	repo.db.groupLinks = links
	return removed, nil
}

func (repo *groupRepository) StudentExists(ctx context.Context, studentID int, exec ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	_, ok := repo.db.students[studentID]
	return ok, nil
}

func (repo *groupRepository) GetStudentLinksByStudent(ctx context.Context, studentID int, exec ...core.DBExecutor) ([]group.StudentLink, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	links := []group.StudentLink{}
	for _, link := range repo.db.groupLinks {
		if link.StudentID == studentID {
			links = append(links, link)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].GroupID < links[j].GroupID })
	return links, nil
}

func (repo *groupRepository) StudentLinkExists(ctx context.Context, groupID, studentID int, exec ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, link := range repo.db.groupLinks {
		if link.GroupID == groupID && link.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *groupRepository) CreateStudentLink(ctx context.Context, link group.StudentLink, exec ...core.DBExecutor) (group.StudentLink, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.groupLinks = append(repo.db.groupLinks, link)
	return link, nil
}

func (repo *groupRepository) DeleteStudentLink(ctx context.Context, groupID, studentID int, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	links := repo.db.groupLinks[:0]
	for _, link := range repo.db.groupLinks {
		if !(link.GroupID == groupID && link.StudentID == studentID) {
			links = append(links, link)
		}
	}
	repo.db.groupLinks = links
	return nil
}

func (repo *groupRepository) DeleteStudentLinksByStudent(ctx context.Context, studentID int, exec ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var removed int
	links := repo.db.groupLinks[:0]
	for _, link := range repo.db.groupLinks {
		if link.StudentID == studentID {
			removed++
			continue
		}
		links = append(links, link)
	}
	repo.db.groupLinks = links
	return removed, nil
}

func (repo *groupRepository) filter(filter *group.QueryFilter) []group.Group {
	matched := make([]group.Group, 0, len(repo.db.groups))
	for _, grp := range repo.db.groups {
		if filter != nil && filter.StudentID != nil {
			registered := false
			for _, link := range repo.db.groupLinks {
				if link.GroupID == grp.ID && link.StudentID == *filter.StudentID {
					registered = true
					break
				}
			}
			if !registered {
				continue
			}
		}
		matched = append(matched, grp)
	}
	return matched
}

func (repo *groupRepository) linksOfGroup(groupID int) []group.StudentLink {
	links := []group.StudentLink{}
	for _, link := range repo.db.groupLinks {
		if link.GroupID == groupID {
			links = append(links, link)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].StudentID < links[j].StudentID })
	return links
}

func paginateGroups(groups []group.Group, skip, limit int) []group.Group {
	if skip >= len(groups) {
		return []group.Group{}
	}
	groups = groups[skip:]
	if limit < len(groups) {
		groups = groups[:limit]
	}
	return groups
}
