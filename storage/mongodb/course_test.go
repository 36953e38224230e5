package mongorepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	mongorepos "github.com/trezcool/elimu/storage/mongodb"
	"github.com/trezcool/elimu/tests"
)

func author(name string) course.Author {
	return course.Author{ID: core.NewID(), Name: name, Email: name + "@example.com"}
}

func TestCourseRepository(t *testing.T) {
	db := testutil.PrepareMongo(t)
	repo := mongorepos.NewCourseRepository(db)
	ctx := context.Background()

	c := testutil.CreateCourse(t, repo, "Go in Production", "Intro", "Channels")
	contentID := c.CourseData[1].ID

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetCourse(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.Name, got.Name)
		require.Len(t, got.CourseData, 2)
		assert.Equal(t, c.CourseData[0].VideoURL, got.CourseData[0].VideoURL)
		assert.Equal(t, c.CourseData[0].Links, got.CourseData[0].Links)

		_, err = repo.GetCourse(ctx, core.NewID())
		assert.Equal(t, course.ErrNotFound, errors.Cause(err))
	})

	t.Run("summaries hide the enrolled-only content", func(t *testing.T) {
		got, err := repo.GetCourseSummary(ctx, c.ID)
		require.NoError(t, err)
		for _, cu := range got.CourseData {
			assert.Empty(t, cu.VideoURL)
			assert.Empty(t, cu.Suggestion)
			assert.Empty(t, cu.Links)
			assert.Empty(t, cu.Questions)
		}

		all, err := repo.QueryCourseSummaries(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Empty(t, all[0].CourseData[0].VideoURL)
	})

	t.Run("update", func(t *testing.T) {
		name, price := "Go at Scale", 59.0
		got, err := repo.UpdateCourse(ctx, c.ID, course.CourseFields{Name: &name, Price: &price, UpdatedAt: time.Now().UTC()})
		require.NoError(t, err)
		assert.Equal(t, name, got.Name)
		assert.Equal(t, price, got.Price)
		assert.Equal(t, c.Description, got.Description)

		_, err = repo.UpdateCourse(ctx, core.NewID(), course.CourseFields{Name: &name})
		assert.Equal(t, course.ErrNotFound, errors.Cause(err))
	})

	var question course.Question
	t.Run("push question", func(t *testing.T) {
		q := course.Question{ID: core.NewID(), User: author("jane"), Question: "Why?", QuestionReplies: []course.Answer{}, CreatedAt: time.Now().UTC()}
		got, err := repo.PushQuestion(ctx, c.ID, contentID, q)
		require.NoError(t, err)
		cu, ok := got.Content(contentID)
		require.True(t, ok)
		require.Len(t, cu.Questions, 1)
		question = cu.Questions[0]
		assert.Equal(t, q.ID, question.ID)
		assert.Equal(t, "jane@example.com", question.User.Email)

		_, err = repo.PushQuestion(ctx, c.ID, core.NewID(), q)
		assert.Equal(t, course.ErrInvalidContentID, errors.Cause(err))
		_, err = repo.PushQuestion(ctx, core.NewID(), contentID, q)
		assert.Equal(t, course.ErrNotFound, errors.Cause(err))
	})

	t.Run("push answer", func(t *testing.T) {
		a := course.Answer{ID: core.NewID(), User: author("john"), Answer: "Because", CreatedAt: time.Now().UTC()}
		got, err := repo.PushAnswer(ctx, c.ID, contentID, question.ID, a)
		require.NoError(t, err)
		cu, _ := got.Content(contentID)
		q, ok := cu.Question(question.ID)
		require.True(t, ok)
		require.Len(t, q.QuestionReplies, 1)
		assert.Equal(t, "Because", q.QuestionReplies[0].Answer)

		_, err = repo.PushAnswer(ctx, c.ID, contentID, core.NewID(), a)
		assert.Equal(t, course.ErrInvalidQuestionID, errors.Cause(err))
		_, err = repo.PushAnswer(ctx, c.ID, core.NewID(), question.ID, a)
		assert.Equal(t, course.ErrInvalidContentID, errors.Cause(err))
		_, err = repo.PushAnswer(ctx, core.NewID(), contentID, question.ID, a)
		assert.Equal(t, course.ErrNotFound, errors.Cause(err))
	})

	var reviewID string
	t.Run("push review", func(t *testing.T) {
		for _, r := range []struct {
			rating float64
			want   float64
		}{{5, 5}, {3, 4}} {
			got, err := repo.PushReview(ctx, c.ID, course.Review{ID: core.NewID(), User: author("jane"), Rating: r.rating, Comment: "Nice", CreatedAt: time.Now().UTC()})
			require.NoError(t, err)
			assert.Equal(t, r.want, got.Rating)
			reviewID = got.Reviews[0].ID
		}

		_, err := repo.PushReview(ctx, core.NewID(), course.Review{ID: core.NewID(), Rating: 1})
		assert.Equal(t, course.ErrNotFound, errors.Cause(err))
	})

	t.Run("push review reply", func(t *testing.T) {
		reply := course.ReplyToReview{ID: core.NewID(), User: author("admin"), Comment: "Thanks", CreatedAt: time.Now().UTC()}
		got, err := repo.PushReviewReply(ctx, c.ID, reviewID, reply)
		require.NoError(t, err)
		r, ok := got.Review(reviewID)
		require.True(t, ok)
		require.Len(t, r.CommentReplies, 1)
		assert.Equal(t, "Thanks", r.CommentReplies[0].Comment)

		_, err = repo.PushReviewReply(ctx, c.ID, core.NewID(), reply)
		assert.Equal(t, course.ErrReviewNotFound, errors.Cause(err))
		_, err = repo.PushReviewReply(ctx, core.NewID(), reviewID, reply)
		assert.Equal(t, course.ErrNotFound, errors.Cause(err))
	})
}

func TestNotificationRepository(t *testing.T) {
	db := testutil.PrepareMongo(t)
	repo := mongorepos.NewNotificationRepository(db)
	ctx := context.Background()

	err := repo.Notify(ctx, course.Notification{
		UserID:    core.NewID(),
		Title:     "New Review Received",
		Message:   "Jane has given a review in Go in Production",
		Status:    course.NotificationUnread,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	n, err := db.Collection("notifications").CountDocuments(ctx, map[string]interface{}{"status": course.NotificationUnread})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
