package sqlxrepos

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/classroom"
)

type (
	classroomRow struct {
		ID        string    `db:"id"`
		Name      string    `db:"name"`
		OwnerID   string    `db:"owner_id"`
		CreatedAt time.Time `db:"created_at"`
	}

	summaryRow struct {
		ID        string         `db:"id"`
		Name      string         `db:"name"`
		OwnerID   string         `db:"owner_id"`
		OwnerName sql.NullString `db:"owner_name"`
	}

	memberRow struct {
		ID        string         `db:"id"`
		UserName  sql.NullString `db:"username"`
		FullName  sql.NullString `db:"full_name"`
		AvatarURL sql.NullString `db:"avatar_url"`
		Role      string         `db:"role"`
	}

	contentRow struct {
		ID         string       `db:"id"`
		Type       string       `db:"type"`
		Title      string       `db:"title"`
		Body       string       `db:"body"`
		DueDate    sql.NullTime `db:"due_date"`
		UploadedAt time.Time    `db:"uploaded_at"`
	}

	documentRow struct {
		ID        string `db:"id"`
		ContentID string `db:"content_id"`
		Name      string `db:"name"`
		URL       string `db:"url"`
	}
)

func (r summaryRow) domain() classroom.Summary {
	return classroom.Summary{
		ClassroomID:   r.ID,
		ClassroomName: r.Name,
		OwnerID:       r.OwnerID,
		OwnerName:     r.OwnerName.String,
	}
}

func (r memberRow) domain() classroom.Member {
	return classroom.Member{
		ID:        r.ID,
		UserName:  r.UserName.String,
		FullName:  r.FullName.String,
		AvatarURL: r.AvatarURL.String,
		Role:      r.Role,
	}
}

func (r contentRow) domain() classroom.ContentItem {
	item := classroom.ContentItem{
		ID:         r.ID,
		Type:       r.Type,
		Title:      r.Title,
		Body:       r.Body,
		UploadedAt: r.UploadedAt.UTC(),
		Documents:  []classroom.DocumentRef{},
	}
	if r.DueDate.Valid {
		due := r.DueDate.Time.UTC()
		item.DueDate = &due
	}
	return item
}

type classroomRepository struct {
	db *sqlx.DB
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *sqlx.DB) classroom.Repository {
	return &classroomRepository{db: db}
}

func (repo classroomRepository) CreateClassroom(cls classroom.Classroom) (classroom.Classroom, error) {
	const query = `
		INSERT INTO classroom (id, name, owner_id, created_at)
		VALUES (:id, :name, :owner_id, :created_at)`
	row := classroomRow{ID: cls.ID, Name: cls.Name, OwnerID: cls.OwnerID, CreatedAt: cls.CreatedAt.UTC()}
	if _, err := repo.db.NamedExec(query, row); err != nil {
		return classroom.Classroom{}, errors.Wrap(err, "inserting classroom")
	}
	return cls, nil
}

// isUUID screens path-supplied ids before they reach a uuid-typed column;
// Postgres raises a cast error (not zero rows) on malformed input.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (repo classroomRepository) GetClassroomByID(id string) (classroom.Classroom, error) {
	if !isUUID(id) {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	var row classroomRow
	err := repo.db.Get(&row, "SELECT * FROM classroom WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	if err != nil {
		return classroom.Classroom{}, errors.Wrap(err, "getting classroom")
	}
	return classroom.Classroom{ID: row.ID, Name: row.Name, OwnerID: row.OwnerID, CreatedAt: row.CreatedAt.UTC()}, nil
}

func (repo classroomRepository) QueryOwnedClassrooms(ownerID string) ([]classroom.Summary, error) {
	const query = `
		SELECT c.id, c.name, c.owner_id, u.username AS owner_name
		FROM classroom c
		JOIN "user" u ON u.id = c.owner_id
		WHERE c.owner_id = $1
		ORDER BY c.created_at`
	var rows []summaryRow
	if err := repo.db.Select(&rows, query, ownerID); err != nil {
		return nil, errors.Wrap(err, "querying owned classrooms")
	}
	summaries := make([]classroom.Summary, 0, len(rows))
	for _, r := range rows {
		summaries = append(summaries, r.domain())
	}
	return summaries, nil
}

func (repo classroomRepository) QueryEnrolledClassrooms(userID, role string) ([]classroom.Summary, error) {
	const query = `
		SELECT c.id, c.name, c.owner_id, u.username AS owner_name
		FROM classroom c
		JOIN classroom_member m ON m.classroom_id = c.id
		JOIN "user" u ON u.id = c.owner_id
		WHERE m.user_id = $1 AND m.role = $2
		ORDER BY m.added_at`
	var rows []summaryRow
	if err := repo.db.Select(&rows, query, userID, role); err != nil {
		return nil, errors.Wrap(err, "querying enrolled classrooms")
	}
	summaries := make([]classroom.Summary, 0, len(rows))
	for _, r := range rows {
		summaries = append(summaries, r.domain())
	}
	return summaries, nil
}

func (repo classroomRepository) QueryMembers(classroomID string) (admins, students []classroom.Member, err error) {
	const query = `
		SELECT u.id, u.username, u.full_name, u.avatar_url, m.role
		FROM classroom_member m
		JOIN "user" u ON u.id = m.user_id
		WHERE m.classroom_id = $1
		ORDER BY m.added_at`
	var rows []memberRow
	if err = repo.db.Select(&rows, query, classroomID); err != nil {
		return nil, nil, errors.Wrap(err, "querying members")
	}
	admins = make([]classroom.Member, 0)
	students = make([]classroom.Member, 0)
	for _, r := range rows {
		switch r.Role {
		case classroom.RoleAdmin:
			admins = append(admins, r.domain())
		case classroom.RoleStudent:
			students = append(students, r.domain())
		}
	}
	return admins, students, nil
}

func (repo classroomRepository) AddMember(classroomID, userID, role string) error {
	const query = `INSERT INTO classroom_member (classroom_id, user_id, role) VALUES ($1, $2, $3)`
	if _, err := repo.db.Exec(query, classroomID, userID, role); err != nil {
		if strings.Contains(err.Error(), "classroom_member_pkey") {
			return classroom.ErrAlreadyMember
		}
		return errors.Wrap(err, "inserting member")
	}
	return nil
}

func (repo classroomRepository) RemoveMember(classroomID, userID, role string) error {
	if !isUUID(userID) {
		return classroom.ErrMemberNotFound
	}
	const query = `DELETE FROM classroom_member WHERE classroom_id = $1 AND user_id = $2 AND role = $3`
	res, err := repo.db.Exec(query, classroomID, userID, role)
	if err != nil {
		return errors.Wrap(err, "deleting member")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return classroom.ErrMemberNotFound
	}
	return nil
}

func (repo classroomRepository) QueryContent(classroomID string) ([]classroom.ContentItem, error) {
	const query = `
		SELECT id, type, title, body, due_date, uploaded_at
		FROM classroom_content
		WHERE classroom_id = $1`
	var rows []contentRow
	if err := repo.db.Select(&rows, query, classroomID); err != nil {
		return nil, errors.Wrap(err, "querying content")
	}

	items := make([]classroom.ContentItem, 0, len(rows))
	index := make(map[string]int, len(rows))
	ids := make([]interface{}, 0, len(rows))
	for i, r := range rows {
		items = append(items, r.domain())
		index[r.ID] = i
		ids = append(ids, r.ID)
	}
	if len(ids) == 0 {
		return items, nil
	}

	docQuery, args, err := sqlx.In("SELECT * FROM classroom_document WHERE content_id IN (?)", ids)
	if err != nil {
		return nil, errors.Wrap(err, "building document query")
	}
	var docs []documentRow
	if err = repo.db.Select(&docs, repo.db.Rebind(docQuery), args...); err != nil {
		return nil, errors.Wrap(err, "querying documents")
	}
	for _, d := range docs {
		i := index[d.ContentID]
		items[i].Documents = append(items[i].Documents, classroom.DocumentRef{ID: d.ID, Name: d.Name, URL: d.URL})
	}
	return items, nil
}

func (repo classroomRepository) CreateContent(classroomID string, item classroom.ContentItem) (classroom.ContentItem, error) {
	tx, err := repo.db.Beginx()
	if err != nil {
		return classroom.ContentItem{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	var due sql.NullTime
	if item.DueDate != nil {
		due = sql.NullTime{Time: item.DueDate.UTC(), Valid: true}
	}
	const query = `
		INSERT INTO classroom_content (id, classroom_id, type, title, body, due_date, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err = tx.Exec(query, item.ID, classroomID, item.Type, item.Title, item.Body, due, item.UploadedAt.UTC()); err != nil {
		return classroom.ContentItem{}, errors.Wrap(err, "inserting content")
	}

	const docQuery = `INSERT INTO classroom_document (id, content_id, name, url) VALUES ($1, $2, $3, $4)`
	for _, doc := range item.Documents {
		if _, err = tx.Exec(docQuery, doc.ID, item.ID, doc.Name, doc.URL); err != nil {
			return classroom.ContentItem{}, errors.Wrap(err, "inserting document")
		}
	}

	if err = tx.Commit(); err != nil {
		return classroom.ContentItem{}, errors.Wrap(err, "committing tx")
	}
	return item, nil
}
