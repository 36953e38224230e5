package inmemdb

import (
	"context"
	"strings"

	"github.com/trezcool/elimu/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db.user}
}

func cloneUser(usr user.User) user.User {
	usr.Roles = append([]string{}, usr.Roles...)
	usr.Courses = append([]string{}, usr.Courses...)
	usr.PasswordHash = append([]byte{}, usr.PasswordHash...)
	return usr
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, u := range repo.db.table {
		if strings.EqualFold(u.Email, usr.Email) {
			return user.User{}, user.ErrEmailExists
		}
	}
	stored := cloneUser(usr)
	repo.db.table[usr.ID] = &stored
	return cloneUser(stored), nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.table[id]; ok {
		return cloneUser(*usr), nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.table {
		if strings.EqualFold(usr.Email, email) {
			return cloneUser(*usr), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	origUsr, ok := repo.db.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	for id, u := range repo.db.table {
		if id != usr.ID && strings.EqualFold(u.Email, usr.Email) {
			return user.User{}, user.ErrEmailExists
		}
	}

	// courses are only changed through AddUserCourse
	updated := cloneUser(usr)
	updated.Courses = origUsr.Courses
	updated.CreatedAt = origUsr.CreatedAt
	repo.db.table[usr.ID] = &updated
	return cloneUser(updated), nil
}

func (repo *userRepository) AddUserCourse(_ context.Context, id, courseID string) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr, ok := repo.db.table[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if !usr.IsEnrolled(courseID) {
		usr.Courses = append(append([]string{}, usr.Courses...), courseID)
	}
	return cloneUser(*usr), nil
}
