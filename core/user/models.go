package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/darasahq/darasa/core"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	UserName     string    `json:"userName"`
	Age          int       `json:"age,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	Provider     string    `json:"-"` // empty for password accounts
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// HasProfile reports whether the user completed the profile form after
// signing up. The dashboard is unusable until this holds.
func (u *User) HasProfile() bool {
	return u.UserName != ""
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	DisplayName     string `json:"displayName"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc Service) error {
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.DisplayName = core.CleanString(nu.DisplayName)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(nu.Email)
}

// Profile is what the profile-completion form submits before the dashboard
// becomes usable.
type Profile struct {
	UserName string `json:"userName" validate:"required,min=3,alphanum_"`
	FullName string `json:"fullName" validate:"required"`
	Age      int    `json:"age" validate:"required,gte=5,lte=120"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"required"`
}

func (p *Profile) Validate(validate *validator.Validate, svc Service) error {
	p.UserName = core.CleanString(p.UserName, true /* lower */)
	p.FullName = core.CleanString(p.FullName)
	p.Email = core.CleanString(p.Email, true /* lower */)
	p.Phone = core.CleanString(p.Phone)

	if err := validate.Struct(p); err != nil {
		return err
	}
	return svc.CheckUsernameUniqueness(p.UserName)
}

// UpdatePassword carries a signed-in user's new password.
type UpdatePassword struct {
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (up UpdatePassword) Validate(validate *validator.Validate) error {
	return validate.Struct(up)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type ConfirmEmail struct {
	Token string `json:"token" validate:"required"`
	UID   string `json:"uid" validate:"required"`
}

func (ce ConfirmEmail) Validate(validate *validator.Validate) error {
	return validate.Struct(ce)
}

// ProviderAccount is the identity handed back by an external OAuth consent flow.
type ProviderAccount struct {
	Provider  string
	Email     string
	FullName  string
	AvatarURL string
}
