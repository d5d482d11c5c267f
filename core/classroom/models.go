package classroom

import (
	"io"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
)

// Membership roles within a single classroom.
const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// Content kinds.
const (
	ContentWork = "work"
	ContentBlog = "blog"
)

// DueDateFormat is the wire format for work due dates (DD-MM-YYYY).
const DueDateFormat = "02-01-2006"

type Classroom struct {
	ID        string    `json:"id"`
	Name      string    `json:"classname"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Summary is a classroom as it appears on the dashboard.
type Summary struct {
	ClassroomID   string `json:"classroomId"`
	ClassroomName string `json:"classroomName"`
	OwnerID       string `json:"ownerId,omitempty"`
	OwnerName     string `json:"ownerName"`
	Role          string `json:"role"`
	Color         string `json:"color"`
}

// Aggregate is the per-user dashboard view: the caller's classrooms
// partitioned by role. Fetched whole, replaced whole.
type Aggregate struct {
	UserName           string    `json:"userName"`
	FullName           string    `json:"fullName"`
	Email              string    `json:"email,omitempty"`
	OwnedClassrooms    []Summary `json:"ownedClassrooms"`
	EnrolledAsAdmins   []Summary `json:"enrolledAsAdmins"`
	EnrolledAsStudents []Summary `json:"enrolledAsStudents"`
}

type Member struct {
	ID        string `json:"id"`
	UserName  string `json:"userName"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Role      string `json:"role"`
}

type DocumentRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ContentItem is a classwork assignment or a blog post. Immutable once created.
type ContentItem struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"` // work | blog
	Title      string        `json:"title"`
	Body       string        `json:"body"`
	DueDate    *time.Time    `json:"dueDate,omitempty"` // work only
	Documents  []DocumentRef `json:"documents"`
	UploadedAt time.Time     `json:"uploadedAt"` // UTC
}

type Members struct {
	Owner    Member   `json:"owner"`
	Admins   []Member `json:"admins"`
	Students []Member `json:"students"`
}

// Detail is the full per-classroom record, fetched on demand and fully
// replaced on every re-fetch.
type Detail struct {
	Members           Members       `json:"members"`
	AllContent        []ContentItem `json:"allContent"`
	UpcomingDeadlines []ContentItem `json:"upcomingDeadlines"`
}

// Upload is a file attachment streamed in with a content-creation request.
type Upload struct {
	Name    string
	Content io.Reader
}

// NewClassroom is the create-class form.
type NewClassroom struct {
	Name string `json:"classname" validate:"required,max=120"`
}

func (nc *NewClassroom) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

// AddMember adds a single user, looked up by email, to a classroom.
type AddMember struct {
	Email string `json:"email" validate:"required,email"`
}

func (am *AddMember) Validate(validate *validator.Validate) error {
	am.Email = core.CleanString(am.Email, true /* lower */)
	return validate.Struct(am)
}

// NewWork is the multipart form for a classwork assignment.
type NewWork struct {
	Title       string `json:"work_title" form:"work_title" validate:"required,max=200"`
	Description string `json:"work_description" form:"work_description" validate:"required"`
	DueDate     string `json:"due_date" form:"due_date" validate:"required,duedate"`
}

func (nw *NewWork) Validate(validate *validator.Validate) error {
	nw.Title = core.CleanString(nw.Title)
	nw.Description = core.CleanString(nw.Description)
	nw.DueDate = core.CleanString(nw.DueDate)
	return validate.Struct(nw)
}

// NewBlog is the multipart form for a blog post. No due date.
type NewBlog struct {
	Title   string `json:"title" form:"title" validate:"required,max=200"`
	Context string `json:"context" form:"context" validate:"required"`
}

func (nb *NewBlog) Validate(validate *validator.Validate) error {
	nb.Title = core.CleanString(nb.Title)
	nb.Context = core.CleanString(nb.Context)
	return validate.Struct(nb)
}
