package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core/user"
)

const (
	uniqueViolation = "23505"

	userColumns = `id, name, email, password_hash, roles, courses, is_active, created_at, updated_at, last_login`
)

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Email        string         `db:"email"`
	PasswordHash []byte         `db:"password_hash"`
	Roles        pq.StringArray `db:"roles"`
	Courses      pq.StringArray `db:"courses"`
	IsActive     bool           `db:"is_active"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func rowFromUser(usr user.User) userRow {
	row := userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		PasswordHash: usr.PasswordHash,
		Roles:        usr.Roles,
		Courses:      usr.Courses,
		IsActive:     usr.IsActive,
		CreatedAt:    usr.CreatedAt,
		UpdatedAt:    usr.UpdatedAt,
		LastLogin:    usr.LastLogin,
	}
	if row.Roles == nil {
		row.Roles = pq.StringArray{}
	}
	if row.Courses == nil {
		row.Courses = pq.StringArray{}
	}
	return row
}

func (row userRow) user() user.User {
	usr := user.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Roles:        []string(row.Roles),
		Courses:      []string(row.Courses),
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		LastLogin:    row.LastLogin,
	}
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	if usr.Courses == nil {
		usr.Courses = []string{}
	}
	if usr.LastLogin.Valid {
		usr.LastLogin.Time = usr.LastLogin.Time.UTC()
	}
	return usr
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db: sqlx.NewDb(db, "postgres")}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (repo *userRepository) getOne(ctx context.Context, query string, args ...interface{}) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return row.user(), nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO users (` + userColumns + `)
		VALUES (:id, :name, :email, :password_hash, :roles, :courses, :is_active, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, rowFromUser(usr)); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE users
		SET name = :name, email = :email, password_hash = :password_hash, roles = :roles,
			is_active = :is_active, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, rowFromUser(usr))
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo *userRepository) AddUserCourse(ctx context.Context, id, courseID string) (user.User, error) {
	q := `UPDATE users
		SET courses = array_append(courses, $2), updated_at = $3
		WHERE id = $1 AND NOT ($2 = ANY(courses))`
	if _, err := repo.db.ExecContext(ctx, q, id, courseID, time.Now().UTC()); err != nil {
		return user.User{}, errors.Wrap(err, "adding user course")
	}
	return repo.GetUserByID(ctx, id)
}
