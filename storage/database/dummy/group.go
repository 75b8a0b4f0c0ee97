package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/gradebook/core/course"
	"github.com/trezcool/gradebook/core/group"
	"github.com/trezcool/gradebook/core/student"
)

type groupRepository struct {
	db *DB
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *DB) group.Repository {
	return &groupRepository{db: db}
}

// withMembers returns a copy of g with its members, ordered by student identifier. Callers must hold the lock.
func (repo *groupRepository) withMembers(g *group.Group) group.Group {
	res := *g
	res.Members = make([]group.Member, 0)
	for _, m := range repo.db.member {
		if m.GroupID != g.ID {
			continue
		}
		s := *repo.db.student[m.StudentID]
		res.Members = append(res.Members, group.Member{StudentID: m.StudentID, Role: m.Role, Student: &s})
	}
	sort.Slice(res.Members, func(i, j int) bool {
		return res.Members[i].Student.StudentID < res.Members[j].Student.StudentID
	})
	return res
}

func (repo *groupRepository) nameExists(name, courseID string, excludedIDs ...string) bool {
	for _, g := range repo.db.group {
		if g.Name == name && g.CourseID == courseID && !isExcluded(g.ID, excludedIDs) {
			return true
		}
	}
	return false
}

// checkStudents makes sure every member references an existing student. Callers must hold the lock.
func (repo *groupRepository) checkStudents(members []group.Member) error {
	for _, m := range members {
		if _, ok := repo.db.student[m.StudentID]; !ok {
			return student.ErrSomeNotFound
		}
	}
	return nil
}

// checkTaken makes sure no member is in another group of the course. Callers must hold the lock.
func (repo *groupRepository) checkTaken(courseID, groupID string, members []group.Member) error {
	for _, m := range members {
		for _, rec := range repo.db.member {
			if rec.StudentID == m.StudentID && rec.GroupID != groupID && repo.db.group[rec.GroupID].CourseID == courseID {
				return group.ErrMemberTaken
			}
		}
	}
	return nil
}

func (repo *groupRepository) insertMembers(groupID string, members []group.Member) {
	for _, m := range members {
		repo.db.member[memberKey(m.StudentID, groupID)] = &memberRecord{
			StudentID: m.StudentID,
			GroupID:   groupID,
			Role:      m.Role,
		}
	}
}

func (repo *groupRepository) GroupNameExists(_ context.Context, name, courseID string, excludedIDs ...string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.nameExists(name, courseID, excludedIDs...), nil
}

func (repo *groupRepository) GroupNames(_ context.Context, courseID string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	names := make([]string, 0)
	for _, g := range repo.db.group {
		if g.CourseID == courseID {
			names = append(names, g.Name)
		}
	}
	return names, nil
}

func (repo *groupRepository) CourseMemberships(_ context.Context, courseID string, studentIDs []string) ([]group.Membership, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[string]bool, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = true
	}
	memberships := make([]group.Membership, 0)
	for _, m := range repo.db.member {
		g := repo.db.group[m.GroupID]
		if !wanted[m.StudentID] || g.CourseID != courseID {
			continue
		}
		s := repo.db.student[m.StudentID]
		memberships = append(memberships, group.Membership{
			GroupID:     g.ID,
			GroupName:   g.Name,
			StudentID:   s.ID,
			StudentName: s.Name,
			StudentNo:   s.StudentID,
		})
	}
	sort.Slice(memberships, func(i, j int) bool {
		if memberships[i].GroupName != memberships[j].GroupName {
			return memberships[i].GroupName < memberships[j].GroupName
		}
		return memberships[i].StudentNo < memberships[j].StudentNo
	})
	return memberships, nil
}

func (repo *groupRepository) CreateGroup(_ context.Context, g group.Group) (group.Group, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.course[g.CourseID]; !ok {
		return group.Group{}, course.ErrNotFound
	}
	if repo.nameExists(g.Name, g.CourseID) {
		return group.Group{}, group.ErrNameExists
	}
	if err := repo.checkStudents(g.Members); err != nil {
		return group.Group{}, err
	}
	if err := repo.checkTaken(g.CourseID, "", g.Members); err != nil {
		return group.Group{}, err
	}

	g.ID = repo.db.newID()
	members := g.Members
	g.Members = nil
	repo.db.group[g.ID] = &g
	repo.insertMembers(g.ID, members)
	return repo.withMembers(&g), nil
}

func (repo *groupRepository) QueryGroups(_ context.Context, courseID string) ([]group.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := make([]string, 0, len(repo.db.group))
	for id, g := range repo.db.group {
		if courseID == "" || g.CourseID == courseID {
			ids = append(ids, id)
		}
	}
	repo.db.newerFirst(ids)

	groups := make([]group.Group, 0, len(ids))
	for _, id := range ids {
		groups = append(groups, repo.withMembers(repo.db.group[id]))
	}
	return groups, nil
}

func (repo *groupRepository) GetGroup(_ context.Context, id string) (group.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if g, ok := repo.db.group[id]; ok {
		return repo.withMembers(g), nil
	}
	return group.Group{}, group.ErrNotFound
}

func (repo *groupRepository) UpdateGroup(_ context.Context, g group.Group) (group.Group, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.group[g.ID]; !ok {
		return group.Group{}, group.ErrNotFound
	}
	if repo.nameExists(g.Name, g.CourseID, g.ID) {
		return group.Group{}, group.ErrNameExists
	}
	g.Members = nil
	repo.db.group[g.ID] = &g
	return repo.withMembers(&g), nil
}

func (repo *groupRepository) ReplaceMembers(_ context.Context, groupID string, members []group.Member) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	g, ok := repo.db.group[groupID]
	if !ok {
		return group.ErrNotFound
	}
	// nothing is touched unless every student exists and is free
	if err := repo.checkStudents(members); err != nil {
		return err
	}
	if err := repo.checkTaken(g.CourseID, groupID, members); err != nil {
		return err
	}
	for key, m := range repo.db.member {
		if m.GroupID == groupID {
			delete(repo.db.member, key)
		}
	}
	repo.insertMembers(groupID, members)
	return nil
}

func (repo *groupRepository) DeleteGroup(_ context.Context, id string) (memberships int, err error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.group[id]; !ok {
		return 0, group.ErrNotFound
	}
	for key, m := range repo.db.member {
		if m.GroupID == id {
			delete(repo.db.member, key)
			memberships++
		}
	}
	delete(repo.db.group, id)
	return memberships, nil
}
