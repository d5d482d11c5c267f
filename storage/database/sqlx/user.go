package sqlxrepos

import (
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/user"
)

type userRow struct {
	ID           string         `db:"id"`
	Email        string         `db:"email"`
	UserName     sql.NullString `db:"username"`
	FullName     sql.NullString `db:"full_name"`
	Age          sql.NullInt64  `db:"age"`
	Phone        sql.NullString `db:"phone"`
	AvatarURL    sql.NullString `db:"avatar_url"`
	Provider     sql.NullString `db:"provider"`
	IsActive     bool           `db:"is_active"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    sql.NullTime   `db:"last_login"`
}

func (r userRow) domain() user.User {
	return user.User{
		ID:           r.ID,
		Email:        r.Email,
		UserName:     r.UserName.String,
		FullName:     r.FullName.String,
		Age:          int(r.Age.Int64),
		Phone:        r.Phone.String,
		AvatarURL:    r.AvatarURL.String,
		Provider:     r.Provider.String,
		IsActive:     r.IsActive,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

func newUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Email:        usr.Email,
		UserName:     nullString(usr.UserName),
		FullName:     nullString(usr.FullName),
		Age:          sql.NullInt64{Int64: int64(usr.Age), Valid: usr.Age != 0},
		Phone:        nullString(usr.Phone),
		AvatarURL:    nullString(usr.AvatarURL),
		Provider:     nullString(usr.Provider),
		IsActive:     usr.IsActive,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    sql.NullTime{Time: usr.LastLogin.UTC(), Valid: !usr.LastLogin.IsZero()},
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo userRepository) checkUniqueness(column, value string, excludedUsers []user.User, dupErr error) error {
	query := `SELECT COUNT(*) FROM "user" WHERE ` + column + ` = ?`
	args := []interface{}{value}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		var err error
		query, args, err = sqlx.In(query+" AND id NOT IN (?)", value, ids)
		if err != nil {
			return errors.Wrap(err, "building query")
		}
	}

	var count int
	if err := repo.db.Get(&count, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}
	if count > 0 {
		return dupErr
	}
	return nil
}

func (repo userRepository) CheckEmailUniqueness(email string, excludedUsers ...user.User) error {
	return repo.checkUniqueness("email", email, excludedUsers, user.ErrEmailExists)
}

func (repo userRepository) CheckUsernameUniqueness(username string, excludedUsers ...user.User) error {
	return repo.checkUniqueness("username", username, excludedUsers, user.ErrUsernameExists)
}

func (repo userRepository) CreateUser(usr user.User) (user.User, error) {
	const query = `
		INSERT INTO "user" (id, email, username, full_name, age, phone, avatar_url, provider,
		                    is_active, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :email, :username, :full_name, :age, :phone, :avatar_url, :provider,
		        :is_active, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExec(query, newUserRow(usr)); err != nil {
		if strings.Contains(err.Error(), "user_email_key") {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) getUser(where string, arg interface{}) (user.User, error) {
	var row userRow
	err := repo.db.Get(&row, `SELECT * FROM "user" WHERE `+where, arg)
	if err == sql.ErrNoRows {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.domain(), nil
}

func (repo userRepository) GetUserByID(id string) (user.User, error) {
	return repo.getUser("id = $1", id)
}

func (repo userRepository) GetUserByEmail(email string) (user.User, error) {
	return repo.getUser("email = $1", email)
}

func (repo userRepository) GetUserByUsername(username string) (user.User, error) {
	return repo.getUser("username = $1", username)
}

func (repo userRepository) UpdateUser(usr user.User) (user.User, error) {
	const query = `
		UPDATE "user"
		SET email = :email, username = :username, full_name = :full_name, age = :age,
		    phone = :phone, avatar_url = :avatar_url, is_active = :is_active,
		    password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := repo.db.NamedExec(query, newUserRow(usr))
	if err != nil {
		if strings.Contains(err.Error(), "user_username_key") {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(usr.ID)
}
