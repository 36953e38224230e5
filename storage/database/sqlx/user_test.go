package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
	sqlxrepos "github.com/trezcool/elimu/storage/database/sqlx"
	"github.com/trezcool/elimu/tests"
)

func TestUserRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewUserRepository(db)
	ctx := context.Background()

	jane := testutil.CreateUser(t, repo, "Jane Doe", "jane.doe@example.com", "Tr1cky#Pass", user.StudentRoles, true)

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetUserByID(ctx, jane.ID)
		require.NoError(t, err)
		assert.Equal(t, jane.Email, got.Email)
		assert.Equal(t, user.StudentRoles, got.Roles)
		assert.Equal(t, []string{}, got.Courses)
		assert.False(t, got.LastLogin.Valid)
		assert.NoError(t, got.CheckPassword("Tr1cky#Pass"))

		got, err = repo.GetUserByEmail(ctx, "JANE.DOE@example.com")
		require.NoError(t, err)
		assert.Equal(t, jane.ID, got.ID)

		_, err = repo.GetUserByEmail(ctx, "nobody@example.com")
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	t.Run("email is unique", func(t *testing.T) {
		dup := jane
		dup.ID = "8a1f0c7e-6d5b-4c3a-9f2e-1d0c9b8a7f6e"
		dup.Email = "Jane.Doe@example.com"
		_, err := repo.CreateUser(ctx, dup)
		assert.Equal(t, user.ErrEmailExists, errors.Cause(err))
	})

	t.Run("update", func(t *testing.T) {
		usr := jane
		usr.Name = "Jane D."
		usr.LastLogin = null.TimeFrom(time.Now().UTC())
		got, err := repo.UpdateUser(ctx, usr)
		require.NoError(t, err)
		assert.Equal(t, "Jane D.", got.Name)
		assert.True(t, got.LastLogin.Valid)

		usr.ID = "00000000-0000-4000-8000-000000000000"
		usr.Email = "ghost@example.com"
		_, err = repo.UpdateUser(ctx, usr)
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	t.Run("add course", func(t *testing.T) {
		courseID := core.NewID()
		got, err := repo.AddUserCourse(ctx, jane.ID, courseID)
		require.NoError(t, err)
		assert.Equal(t, []string{courseID}, got.Courses)

		got, err = repo.AddUserCourse(ctx, jane.ID, courseID)
		require.NoError(t, err)
		assert.Equal(t, []string{courseID}, got.Courses)
	})
}
