package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(name, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	exists := err == nil
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{
			ID:        uuid.NewString(),
			Email:     email,
			Roles:     append([]string{}, user.StudentRoles...),
			Courses:   []string{},
			CreatedAt: now,
		}
	}
	usr.Name = name
	if isAdmin {
		usr.Roles = append(append(append([]string{}, user.AdminRoles...), user.TeacherRoles...), user.StudentRoles...)
	}
	usr.IsActive = true
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if exists {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	return err
}
