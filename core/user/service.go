package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
)

var (
	// errors
	ErrNotFound               = core.NewNotFoundError("user not found")
	ErrEmailExists            = errors.New("a user with this email already exists")
	ErrInvalidActivationToken = core.NewValidationError(errors.New("invalid or expired activation token"))
	ErrInvalidActivationCode  = core.NewValidationError(errors.New("invalid activation code"))
	ErrInvalidCourseID        = core.NewValidationError(errors.New("invalid course id"))
	ErrInvalidCredentials     = core.NewValidationError(errors.New("invalid credentials"))
	ErrAccountDeactivated     = core.NewPermissionError("account deactivated")
)

type (
	Repository interface {
		// CreateUser fails with ErrEmailExists when the email is taken.
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		// AddUserCourse appends courseID to the user's courses unless already there.
		AddUserCourse(ctx context.Context, id, courseID string) (User, error)
	}

	Service struct {
		conf    *core.Config
		repo    Repository
		mailSvc core.EmailService
	}
)

func NewService(conf *core.Config, repo Repository, mailSvc core.EmailService) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(mailSvc, "mailSvc"),
	).CheckAndPanic()

	return &Service{
		conf:    conf,
		repo:    repo,
		mailSvc: mailSvc,
	}
}

func emailExistsError() error {
	return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
}

func (svc *Service) checkEmailUniqueness(ctx context.Context, email string) error {
	_, err := svc.repo.GetUserByEmail(ctx, email)
	switch errors.Cause(err) {
	case nil:
		return emailExistsError()
	case ErrNotFound:
		return nil
	default:
		return errors.Wrap(err, "finding user by email")
	}
}

// Register starts a registration: it emails a 4 digits activation code to the registrant
// and returns the activation token that must accompany the code on activation.
// Nothing is persisted until Activate succeeds.
func (svc *Service) Register(ctx context.Context, nr NewRegistration) (string, error) {
	email := core.CleanString(nr.Email, true /* lower */)
	if err := svc.checkEmailUniqueness(ctx, email); err != nil {
		return "", err
	}

	hash, err := hashPassword(nr.Password)
	if err != nil {
		return "", errors.Wrap(err, "hashing password")
	}
	pending := PendingUser{
		Name:         core.CleanString(nr.Name),
		Email:        email,
		PasswordHash: hash,
	}

	token, code, err := svc.createActivationToken(pending)
	if err != nil {
		return "", err
	}

	// the token is only handed out once the code is delivered
	if err := svc.mailSvc.Send(ctx, svc.activationMail(pending, code)); err != nil {
		return "", core.NewDownstreamError("could not send the activation email", err)
	}
	return token, nil
}

func (svc *Service) activationMail(pu PendingUser, code string) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: pu.Name, Address: pu.Email}},
		Subject:      "Activate your account!",
		TemplateName: "activation",
		TemplateData: map[string]interface{}{
			"Name":           pu.Name,
			"ActivationCode": code,
			"ExpiresIn":      svc.conf.ActivationTimeoutDelta.String(),
		},
	}
}

// Activate creates the user carried by a valid activation token once its code is confirmed.
func (svc *Service) Activate(ctx context.Context, au ActivateUser) (User, error) {
	pending, err := svc.parseActivationToken(au.Token, au.Code)
	if err != nil {
		return User{}, err
	}

	now := nowFunc().UTC()
	usr := User{
		ID:           uuid.NewString(),
		Name:         pending.Name,
		Email:        pending.Email,
		IsActive:     true,
		Roles:        []string{RoleStudent},
		Courses:      []string{},
		PasswordHash: pending.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	usr, err = svc.repo.CreateUser(ctx, usr)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return User{}, emailExistsError()
		}
		return User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

// Authenticate checks the credentials of an active user and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err := usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	usr, err = svc.SetLastLogin(ctx, usr)
	return usr, errors.Wrap(err, "setting last login")
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrNotFound
	}
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	now := time.Now().UTC()
	usr.LastLogin = null.TimeFrom(now)
	usr.UpdatedAt = now
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// Enroll grants the user access to the course's full content.
func (svc *Service) Enroll(ctx context.Context, usr User, courseID string) (User, error) {
	if !core.IsValidID(courseID) {
		return User{}, ErrInvalidCourseID
	}
	if usr.IsEnrolled(courseID) {
		return usr, nil
	}
	return svc.repo.AddUserCourse(ctx, usr.ID, courseID)
}
