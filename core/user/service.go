package user

import (
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("this username is already taken")
	ErrProfileExists  = errors.New("user profile already exists")
)

type (
	Repository interface {
		CheckEmailUniqueness(email string, excludedUsers ...User) error
		CheckUsernameUniqueness(username string, excludedUsers ...User) error
		CreateUser(usr User) (User, error)
		GetUserByID(id string) (User, error)
		GetUserByEmail(email string) (User, error)
		GetUserByUsername(username string) (User, error)
		UpdateUser(usr User) (User, error)
	}

	Service interface {
		Register(nu NewUser) (User, error)
		ConfirmEmail(ce ConfirmEmail) (User, error)
		GetByID(id string) (User, error)
		GetByEmail(email string) (User, error)
		GetByUsername(uname string) (User, error)
		GetOrCreateFromProvider(acct ProviderAccount) (User, error)
		CompleteProfile(usr User, p Profile) (User, error)
		SetLastLogin(usr User) (User, error)
		UpdatePassword(usr User, up UpdatePassword) (User, error)
		RequestPasswordReset(email string) error
		ResetPassword(rp ResetUserPassword) error
		CheckEmailUniqueness(email string, excludedUsers ...User) error
		CheckUsernameUniqueness(uname string, excludedUsers ...User) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	secretKey = conf.SecretKey
	passwordResetTimeoutDelta = conf.PasswordResetTimeoutDelta
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *service) uniquenessError(err error) error {
	var field string
	switch errors.Cause(err) {
	case ErrUsernameExists:
		field = "userName"
	case ErrEmailExists:
		field = "email"
	default:
		return err
	}
	return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
}

func (svc *service) CheckEmailUniqueness(email string, excludedUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(email, excludedUsers...); err != nil {
		return svc.uniquenessError(err)
	}
	return nil
}

func (svc *service) CheckUsernameUniqueness(uname string, excludedUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(uname, excludedUsers...); err != nil {
		return svc.uniquenessError(err)
	}
	return nil
}

// Register creates a password account. When sign-up confirmation is enabled
// the account starts out deactivated and a confirmation link is emailed; the
// caller must not receive a session until the link is followed.
func (svc *service) Register(nu NewUser) (User, error) {
	usr, err := svc.register(nu)
	if err != nil {
		return User{}, err
	}
	if svc.conf.SignupEmailConfirm {
		go svc.sendConfirmationMail(usr)
	}
	return usr, nil
}

func (svc *service) register(nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		ID:        uuid.New().String(),
		Email:     nu.Email,
		FullName:  nu.DisplayName,
		IsActive:  !svc.conf.SignupEmailConfirm,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}

	usr, err := svc.repo.CreateUser(usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (svc *service) ConfirmEmail(ce ConfirmEmail) (User, error) {
	id, err := decodeUID(ce.UID)
	if err != nil {
		return User{}, core.NewValidationError(errInvalidToken)
	}
	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return User{}, core.NewValidationError(errInvalidToken)
	}
	if err = verifyToken(usr, ce.Token); err != nil {
		return User{}, core.NewValidationError(err)
	}

	usr.IsActive = true
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(usr)
}

func (svc *service) GetByID(id string) (User, error) {
	return svc.repo.GetUserByID(id)
}

func (svc *service) GetByEmail(email string) (User, error) {
	return svc.repo.GetUserByEmail(core.CleanString(email, true /* lower */))
}

func (svc *service) GetByUsername(uname string) (User, error) {
	return svc.repo.GetUserByUsername(core.CleanString(uname, true /* lower */))
}

// GetOrCreateFromProvider resolves the callback of an external consent flow:
// a returning user is matched by email, a first-time user gets an active
// account with no usable password.
func (svc *service) GetOrCreateFromProvider(acct ProviderAccount) (User, error) {
	email := core.CleanString(acct.Email, true /* lower */)
	if email == "" {
		return User{}, core.NewValidationError(errors.New("provider returned no email address"))
	}

	usr, err := svc.repo.GetUserByEmail(email)
	if err == nil {
		return usr, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return User{}, errors.Wrap(err, "finding user by email")
	}

	now := time.Now().UTC()
	usr = User{
		ID:        uuid.New().String(),
		Email:     email,
		FullName:  core.CleanString(acct.FullName),
		AvatarURL: acct.AvatarURL,
		Provider:  acct.Provider,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateUser(usr)
}

func (svc *service) CompleteProfile(usr User, p Profile) (User, error) {
	if usr.HasProfile() {
		return User{}, ErrProfileExists
	}
	usr.UserName = p.UserName
	usr.FullName = p.FullName
	usr.Age = p.Age
	usr.Phone = p.Phone
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(usr)
}

func (svc *service) SetLastLogin(usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(usr)
}

func (svc *service) UpdatePassword(usr User, up UpdatePassword) (User, error) {
	if err := usr.SetPassword(up.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(usr)
}

func (svc *service) RequestPasswordReset(email string) error {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		return err
	}
	go svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *service) ResetPassword(rp ResetUserPassword) error {
	id, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	if err = verifyToken(usr, rp.Token); err != nil {
		return core.NewValidationError(err)
	}

	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(usr)
	return errors.Wrap(err, "updating user")
}

func (svc *service) sendPasswordResetMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password-reset",
		TemplateData: struct {
			UID   string
			Token string
		}{EncodeUID(usr), makeToken(usr)},
	})
}

func (svc *service) sendConfirmationMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject:      "Confirm your email address",
		TemplateName: "email-confirm",
		TemplateData: struct {
			UID   string
			Token string
		}{EncodeUID(usr), makeToken(usr)},
	})
}
