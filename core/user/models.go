package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/elimu/core"
)

// Roles
const (
	// Admin
	RoleAdmin      = "admin:"
	RoleAdminOwner = "admin:owner"

	// Teacher
	RoleTeacher = "teacher:"

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleAdminOwner}
	TeacherRoles = []string{RoleTeacher}
	StudentRoles = []string{RoleStudent}
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	Roles        []string  `json:"roles"`
	Courses      []string  `json:"courses"` // enrolled course ids
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    null.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := hashPassword(pwd)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

func (u *User) IsTeacher() bool {
	return u.RoleStartsWith(RoleTeacher)
}

func (u *User) IsStudent() bool {
	return u.RoleStartsWith(RoleStudent)
}

// IsEnrolled reports whether courseID is in the user's enrolled courses.
func (u *User) IsEnrolled(courseID string) bool {
	for _, id := range u.Courses {
		if id == courseID {
			return true
		}
	}
	return false
}

func hashPassword(pwd string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
}

// NewRegistration contains the information a visitor submits to open an account.
type NewRegistration struct {
	Name     string `json:"name" validate:"required,notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (nr *NewRegistration) Validate(validate *validator.Validate) error {
	nr.Name = core.CleanString(nr.Name)
	nr.Email = core.CleanString(nr.Email, true /* lower */)
	return validate.Struct(nr)
}

// PendingUser is a registration waiting for its activation code. It only lives inside the activation token.
type PendingUser struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash []byte `json:"password_hash"`
}

// ActivateUser confirms a registration.
type ActivateUser struct {
	Token string `json:"activation_token" validate:"required"`
	Code  string `json:"activation_code" validate:"required,len=4,numeric"`
}

func (au *ActivateUser) Validate(validate *validator.Validate) error {
	au.Token = core.CleanString(au.Token)
	au.Code = core.CleanString(au.Code)
	return validate.Struct(au)
}
