package classroom

import (
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("classroom not found")
	ErrForbidden        = errors.New("user does not have access to this classroom")
	ErrPermissionDenied = errors.New("not enough rights for this operation")
	ErrAlreadyMember    = errors.New("user is already a member of this classroom")
	ErrMemberNotFound   = errors.New("member not found in this classroom")
	ErrProfileIncomplete = errors.New("user profile is incomplete")
)

type (
	Repository interface {
		CreateClassroom(cls Classroom) (Classroom, error)
		GetClassroomByID(id string) (Classroom, error)
		// QueryOwnedClassrooms returns summaries of classrooms owned by
		// ownerID; Role and Color are left for the service to fill in.
		QueryOwnedClassrooms(ownerID string) ([]Summary, error)
		// QueryEnrolledClassrooms returns summaries (with OwnerName resolved)
		// of classrooms userID belongs to with the given role.
		QueryEnrolledClassrooms(userID, role string) ([]Summary, error)
		// QueryMembers returns the admins and students of a classroom with
		// their Role fields set.
		QueryMembers(classroomID string) (admins, students []Member, err error)
		AddMember(classroomID, userID, role string) error
		RemoveMember(classroomID, userID, role string) error
		QueryContent(classroomID string) ([]ContentItem, error)
		CreateContent(classroomID string, item ContentItem) (ContentItem, error)
	}

	// UserDirectory is the slice of the user service needed here.
	UserDirectory interface {
		GetByID(id string) (user.User, error)
		GetByEmail(email string) (user.User, error)
	}

	// DocumentStore persists uploaded attachments and hands back serving refs.
	DocumentStore interface {
		Save(classroomID, filename string, content io.Reader) (DocumentRef, error)
	}

	Service interface {
		Dashboard(usr user.User) (Aggregate, error)
		CreateClassroom(actor user.User, nc NewClassroom) (Summary, error)
		Detail(classroomID string, actor user.User) (Detail, string, error)
		AddMember(classroomID string, actor user.User, role string, am AddMember) (Member, error)
		RemoveStudent(classroomID string, actor user.User, studentID string) error
		CreateWork(classroomID string, actor user.User, nw NewWork, files []Upload) (ContentItem, error)
		CreateBlog(classroomID string, actor user.User, nb NewBlog, files []Upload) (ContentItem, error)
		// ResolveRole returns the actor's role in a classroom, or ErrForbidden.
		ResolveRole(classroomID string, actor user.User) (string, error)
	}

	service struct {
		repo  Repository
		users UserDirectory
		docs  DocumentStore
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, users UserDirectory, docs DocumentStore) Service {
	return &service{
		repo:  repo,
		users: users,
		docs:  docs,
	}
}

// Dashboard builds the caller's role-partitioned classroom aggregate.
// Callers without a completed profile get ErrProfileIncomplete; the API layer
// turns that into the distinguished "profile incomplete" status.
func (svc *service) Dashboard(usr user.User) (Aggregate, error) {
	if !usr.HasProfile() {
		return Aggregate{}, ErrProfileIncomplete
	}

	owned, err := svc.repo.QueryOwnedClassrooms(usr.ID)
	if err != nil {
		return Aggregate{}, errors.Wrap(err, "querying owned classrooms")
	}
	asAdmin, err := svc.repo.QueryEnrolledClassrooms(usr.ID, RoleAdmin)
	if err != nil {
		return Aggregate{}, errors.Wrap(err, "querying admin classrooms")
	}
	asStudent, err := svc.repo.QueryEnrolledClassrooms(usr.ID, RoleStudent)
	if err != nil {
		return Aggregate{}, errors.Wrap(err, "querying student classrooms")
	}

	decorate := func(summaries []Summary, role, ownerName string) []Summary {
		if summaries == nil {
			summaries = []Summary{}
		}
		for i := range summaries {
			summaries[i].Role = role
			if ownerName != "" {
				summaries[i].OwnerName = ownerName
			}
			summaries[i].Color = DeriveColor(summaries[i].ClassroomName, summaries[i].ClassroomID)
		}
		return summaries
	}

	return Aggregate{
		UserName:           usr.UserName,
		FullName:           usr.FullName,
		Email:              usr.Email,
		OwnedClassrooms:    decorate(owned, RoleOwner, usr.UserName),
		EnrolledAsAdmins:   decorate(asAdmin, RoleAdmin, ""),
		EnrolledAsStudents: decorate(asStudent, RoleStudent, ""),
	}, nil
}

func (svc *service) CreateClassroom(actor user.User, nc NewClassroom) (Summary, error) {
	if !actor.HasProfile() {
		return Summary{}, ErrProfileIncomplete
	}

	cls, err := svc.repo.CreateClassroom(Classroom{
		ID:        uuid.New().String(),
		Name:      nc.Name,
		OwnerID:   actor.ID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Summary{}, errors.Wrap(err, "creating classroom")
	}

	return Summary{
		ClassroomID:   cls.ID,
		ClassroomName: cls.Name,
		OwnerID:       actor.ID,
		OwnerName:     actor.UserName,
		Role:          RoleOwner,
		Color:         DeriveColor(cls.Name, cls.ID),
	}, nil
}

func (svc *service) ResolveRole(classroomID string, actor user.User) (string, error) {
	cls, err := svc.repo.GetClassroomByID(classroomID)
	if err != nil {
		return "", err
	}
	return svc.resolveRole(cls, actor.ID)
}

func (svc *service) resolveRole(cls Classroom, userID string) (string, error) {
	if cls.OwnerID == userID {
		return RoleOwner, nil
	}
	admins, students, err := svc.repo.QueryMembers(cls.ID)
	if err != nil {
		return "", errors.Wrap(err, "querying members")
	}
	for _, m := range admins {
		if m.ID == userID {
			return RoleAdmin, nil
		}
	}
	for _, m := range students {
		if m.ID == userID {
			return RoleStudent, nil
		}
	}
	return "", ErrForbidden
}

// Detail assembles the full classroom record: members, the content feed
// (newest first) and the deadlines still ahead (soonest first). The previous
// detail, if any, must be discarded by the caller: the result is a full
// replacement, never a merge.
func (svc *service) Detail(classroomID string, actor user.User) (Detail, string, error) {
	cls, err := svc.repo.GetClassroomByID(classroomID)
	if err != nil {
		return Detail{}, "", err
	}

	admins, students, err := svc.repo.QueryMembers(cls.ID)
	if err != nil {
		return Detail{}, "", errors.Wrap(err, "querying members")
	}

	role, err := svc.roleFromLists(cls, actor.ID, admins, students)
	if err != nil {
		return Detail{}, "", err
	}

	owner, err := svc.users.GetByID(cls.OwnerID)
	if err != nil {
		return Detail{}, "", errors.Wrap(err, "finding classroom owner")
	}

	content, err := svc.repo.QueryContent(cls.ID)
	if err != nil {
		return Detail{}, "", errors.Wrap(err, "querying content")
	}
	if content == nil {
		content = []ContentItem{}
	}
	sort.SliceStable(content, func(i, j int) bool {
		return content[i].UploadedAt.After(content[j].UploadedAt)
	})

	today := time.Now().UTC().Truncate(24 * time.Hour)
	upcoming := make([]ContentItem, 0)
	for _, item := range content {
		if item.Type == ContentWork && item.DueDate != nil && !item.DueDate.Before(today) {
			upcoming = append(upcoming, item)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].DueDate.Before(*upcoming[j].DueDate)
	})

	if admins == nil {
		admins = []Member{}
	}
	if students == nil {
		students = []Member{}
	}

	detail := Detail{
		Members: Members{
			Owner: Member{
				ID:        owner.ID,
				UserName:  owner.UserName,
				FullName:  owner.FullName,
				AvatarURL: owner.AvatarURL,
				Role:      RoleOwner,
			},
			Admins:   admins,
			Students: students,
		},
		AllContent:        content,
		UpcomingDeadlines: upcoming,
	}
	return detail, role, nil
}

func (svc *service) roleFromLists(cls Classroom, userID string, admins, students []Member) (string, error) {
	if cls.OwnerID == userID {
		return RoleOwner, nil
	}
	for _, m := range admins {
		if m.ID == userID {
			return RoleAdmin, nil
		}
	}
	for _, m := range students {
		if m.ID == userID {
			return RoleStudent, nil
		}
	}
	return "", ErrForbidden
}

// AddMember enrolls a single user, looked up by email. Only the owner may add
// admins; owners and admins may add students.
func (svc *service) AddMember(classroomID string, actor user.User, role string, am AddMember) (Member, error) {
	cls, err := svc.repo.GetClassroomByID(classroomID)
	if err != nil {
		return Member{}, err
	}

	actorRole, err := svc.resolveRole(cls, actor.ID)
	if err != nil {
		return Member{}, err
	}
	switch role {
	case RoleAdmin:
		if actorRole != RoleOwner {
			return Member{}, ErrPermissionDenied
		}
	case RoleStudent:
		if actorRole != RoleOwner && actorRole != RoleAdmin {
			return Member{}, ErrPermissionDenied
		}
	default:
		return Member{}, core.NewValidationError(errors.Errorf("invalid role %q", role))
	}

	target, err := svc.users.GetByEmail(am.Email)
	if err != nil {
		return Member{}, err // user.ErrNotFound surfaces as-is
	}
	if target.ID == cls.OwnerID {
		return Member{}, ErrAlreadyMember
	}

	if err = svc.repo.AddMember(cls.ID, target.ID, role); err != nil {
		return Member{}, err
	}

	return Member{
		ID:        target.ID,
		UserName:  target.UserName,
		FullName:  target.FullName,
		AvatarURL: target.AvatarURL,
		Role:      role,
	}, nil
}

// RemoveStudent unenrolls a student; requires owner or admin rights.
func (svc *service) RemoveStudent(classroomID string, actor user.User, studentID string) error {
	cls, err := svc.repo.GetClassroomByID(classroomID)
	if err != nil {
		return err
	}

	actorRole, err := svc.resolveRole(cls, actor.ID)
	if err != nil {
		return err
	}
	if actorRole != RoleOwner && actorRole != RoleAdmin {
		return ErrPermissionDenied
	}

	return svc.repo.RemoveMember(cls.ID, studentID, RoleStudent)
}

func (svc *service) CreateWork(classroomID string, actor user.User, nw NewWork, files []Upload) (ContentItem, error) {
	due, err := time.Parse(DueDateFormat, nw.DueDate)
	if err != nil {
		return ContentItem{}, core.NewValidationError(err, core.FieldError{Field: "due_date", Error: dueDateText})
	}
	return svc.createContent(classroomID, actor, ContentItem{
		Type:    ContentWork,
		Title:   nw.Title,
		Body:    nw.Description,
		DueDate: &due,
	}, files)
}

func (svc *service) CreateBlog(classroomID string, actor user.User, nb NewBlog, files []Upload) (ContentItem, error) {
	return svc.createContent(classroomID, actor, ContentItem{
		Type:  ContentBlog,
		Title: nb.Title,
		Body:  nb.Context,
	}, files)
}

func (svc *service) createContent(classroomID string, actor user.User, item ContentItem, files []Upload) (ContentItem, error) {
	cls, err := svc.repo.GetClassroomByID(classroomID)
	if err != nil {
		return ContentItem{}, err
	}

	actorRole, err := svc.resolveRole(cls, actor.ID)
	if err != nil {
		return ContentItem{}, err
	}
	if actorRole != RoleOwner && actorRole != RoleAdmin {
		return ContentItem{}, ErrPermissionDenied
	}

	item.ID = uuid.New().String()
	item.UploadedAt = time.Now().UTC()
	item.Documents = make([]DocumentRef, 0, len(files))
	for _, f := range files {
		ref, err := svc.docs.Save(cls.ID, f.Name, f.Content)
		if err != nil {
			return ContentItem{}, errors.Wrapf(err, "saving attachment %s", f.Name)
		}
		item.Documents = append(item.Documents, ref)
	}

	return svc.repo.CreateContent(cls.ID, item)
}
