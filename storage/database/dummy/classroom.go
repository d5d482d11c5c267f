package dummydb

import (
	"github.com/darasahq/darasa/core/classroom"
	"github.com/darasahq/darasa/core/user"
)

type classroomRepository struct {
	db    *classroomTable
	users *userTable
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *DB) classroom.Repository {
	return &classroomRepository{db: db.classroom, users: db.user}
}

func (repo *classroomRepository) CreateClassroom(cls classroom.Classroom) (classroom.Classroom, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[cls.ID] = &cls
	return cls, nil
}

func (repo *classroomRepository) GetClassroomByID(id string) (classroom.Classroom, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cls, ok := repo.db.table[id]; ok {
		return *cls, nil
	}
	return classroom.Classroom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) QueryOwnedClassrooms(ownerID string) ([]classroom.Summary, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	summaries := make([]classroom.Summary, 0)
	for _, cls := range repo.db.table {
		if cls.OwnerID == ownerID {
			summaries = append(summaries, classroom.Summary{
				ClassroomID:   cls.ID,
				ClassroomName: cls.Name,
				OwnerID:       cls.OwnerID,
			})
		}
	}
	return summaries, nil
}

func (repo *classroomRepository) QueryEnrolledClassrooms(userID, role string) ([]classroom.Summary, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	summaries := make([]classroom.Summary, 0)
	for clsID, members := range repo.db.memberships {
		for _, m := range members {
			if m.userID != userID || m.role != role {
				continue
			}
			cls, ok := repo.db.table[clsID]
			if !ok {
				continue
			}
			summaries = append(summaries, classroom.Summary{
				ClassroomID:   cls.ID,
				ClassroomName: cls.Name,
				OwnerID:       cls.OwnerID,
				OwnerName:     repo.ownerName(cls.OwnerID),
			})
		}
	}
	return summaries, nil
}

func (repo *classroomRepository) ownerName(ownerID string) string {
	repo.users.RLock()
	defer repo.users.RUnlock()

	if usr, ok := repo.users.table[ownerID]; ok {
		return usr.UserName
	}
	return ""
}

func (repo *classroomRepository) QueryMembers(classroomID string) (admins, students []classroom.Member, err error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	admins = make([]classroom.Member, 0)
	students = make([]classroom.Member, 0)
	for _, m := range repo.db.memberships[classroomID] {
		member := classroom.Member{ID: m.userID, Role: m.role}
		if usr := repo.lookupUser(m.userID); usr != nil {
			member.UserName = usr.UserName
			member.FullName = usr.FullName
			member.AvatarURL = usr.AvatarURL
		}
		switch m.role {
		case classroom.RoleAdmin:
			admins = append(admins, member)
		case classroom.RoleStudent:
			students = append(students, member)
		}
	}
	return admins, students, nil
}

func (repo *classroomRepository) lookupUser(id string) *user.User {
	repo.users.RLock()
	defer repo.users.RUnlock()
	return repo.users.table[id]
}

func (repo *classroomRepository) AddMember(classroomID, userID, role string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, m := range repo.db.memberships[classroomID] {
		if m.userID == userID {
			return classroom.ErrAlreadyMember
		}
	}
	repo.db.memberships[classroomID] = append(repo.db.memberships[classroomID], membership{userID: userID, role: role})
	return nil
}

func (repo *classroomRepository) RemoveMember(classroomID, userID, role string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	members := repo.db.memberships[classroomID]
	for i, m := range members {
		if m.userID == userID && m.role == role {
			repo.db.memberships[classroomID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return classroom.ErrMemberNotFound
}

func (repo *classroomRepository) QueryContent(classroomID string) ([]classroom.ContentItem, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	items := repo.db.content[classroomID]
	out := make([]classroom.ContentItem, len(items))
	copy(out, items)
	return out, nil
}

func (repo *classroomRepository) CreateContent(classroomID string, item classroom.ContentItem) (classroom.ContentItem, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[classroomID]; !ok {
		return classroom.ContentItem{}, classroom.ErrNotFound
	}
	repo.db.content[classroomID] = append(repo.db.content[classroomID], item)
	return item, nil
}
