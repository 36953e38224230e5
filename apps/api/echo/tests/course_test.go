package tests

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/services/email"
	"github.com/trezcool/elimu/tests"
)

const thumbnail = "data:image/png;base64," +
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

var errNotEligible = ErrorResponse{Message: "you are not eligible to access this course"}

func decodeCourse(t *testing.T, data []byte) course.Course {
	var resp CourseResponse
	unmarchall(t, data, &resp)
	require.True(t, resp.Success)
	return resp.Course
}

func TestCourseApi_Create(t *testing.T) {
	admin := createUser(t, "Admin", []string{user.RoleAdmin})
	student := createUser(t, "Student", []string{user.RoleStudent})

	body := []byte(`{
		"name": "Go in Production",
		"description": "Ship Go services",
		"price": 49,
		"thumbnail": "` + thumbnail + `",
		"tags": "go",
		"level": "intermediate",
		"demo_url": "https://example.com/demo",
		"benefits": [{"title": "Concurrency"}],
		"prerequisites": [{"title": "Go basics"}],
		"course_data": [{"title": "Intro", "video_url": "https://videos.example.com/1", "suggestion": "Relax"}]
	}`)

	tests := []httpTest{
		{name: "unauthenticated", body: body, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "not admin", body: body, token: getToken(t, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name:     "invalid data",
			body:     []byte(`{"name":" ","description":"d","tags":"go","level":"x","demo_url":"nope","price":-1}`),
			token:    getToken(t, admin),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"success":false,"errors":{"name":"this field is required","demo_url":"demo_url must be a valid URL","price":"price must be 0 or greater"}}`),
		},
		{
			name:     "malformed thumbnail",
			body:     []byte(strings.Replace(string(body), thumbnail, "data:image/png;base64,%%%", 1)),
			token:    getToken(t, admin),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"success":false,"errors":{"thumbnail":"thumbnail must be a base64 encoded image"}}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.path = http.MethodPost, "/api/courses"
			checkCodeAndData(t, tt, serve(tt))
		})
	}

	rec := serve(httpTest{method: http.MethodPost, path: "/api/courses", body: body, token: getToken(t, admin)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c := decodeCourse(t, rec.Body.Bytes())
	assert.True(t, core.IsValidID(c.ID))
	assert.Equal(t, "Go in Production", c.Name)
	require.Len(t, c.CourseData, 1)
	assert.True(t, core.IsValidID(c.CourseData[0].ID))
	assert.Equal(t, "https://videos.example.com/1", c.CourseData[0].VideoURL)

	// the thumbnail is uploaded & served
	require.True(t, strings.HasPrefix(c.Thumbnail.PublicID, "courses/"))
	_, err := os.Stat(filepath.Join(conf.Storage.MediaRoot, filepath.FromSlash(c.Thumbnail.PublicID)))
	require.NoError(t, err)
	req, rec := newRequest(http.MethodGet, "/media/"+c.Thumbnail.PublicID)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCourseApi_Catalog(t *testing.T) {
	c := testutil.CreateCourse(t, courseRepo, "Catalog course", "Intro", "Channels")

	t.Run("list", func(t *testing.T) {
		rec := serve(httpTest{method: http.MethodGet, path: "/api/courses"})
		require.Equal(t, http.StatusOK, rec.Code)
		var resp CoursesResponse
		unmarchall(t, rec.Body.Bytes(), &resp)
		assert.True(t, resp.Success)

		var found bool
		for _, got := range resp.Courses {
			if got.ID == c.ID {
				found = true
				assert.Len(t, got.CourseData, 2)
				for _, cu := range got.CourseData {
					assert.Empty(t, cu.VideoURL)
					assert.Empty(t, cu.Suggestion)
					assert.Empty(t, cu.Links)
				}
			}
		}
		assert.True(t, found)
	})

	tests := []httpTest{
		{
			name:     "summary",
			path:     "/api/courses/" + c.ID,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, CourseResponse{Success: true, Course: c.Summary()}),
		},
		{
			name:     "unknown id",
			path:     "/api/courses/" + core.NewID(),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, ErrorResponse{Message: "course not found"}),
		},
		{
			name:     "malformed id",
			path:     "/api/courses/nope",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, ErrorResponse{Message: "course not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodGet
			checkCodeAndData(t, tt, serve(tt))
		})
	}
}

func TestCourseApi_Update(t *testing.T) {
	admin := createUser(t, "Admin", []string{user.RoleAdmin})
	c := testutil.CreateCourse(t, courseRepo, "Update course", "Intro")

	// warm the cache
	rec := serve(httpTest{method: http.MethodGet, path: "/api/courses/" + c.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	tests := []httpTest{
		{
			name:     "nothing to update",
			path:     "/api/courses/" + c.ID,
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, ErrorResponse{Message: "no field to update"}),
		},
		{
			name:     "unknown course",
			path:     "/api/courses/" + core.NewID(),
			body:     []byte(`{"price": 10}`),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, ErrorResponse{Message: "course not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.token = http.MethodPut, getToken(t, admin)
			checkCodeAndData(t, tt, serve(tt))
		})
	}

	rec = serve(httpTest{
		method: http.MethodPut,
		path:   "/api/courses/" + c.ID,
		body:   []byte(`{"name": "Renamed", "price": 10}`),
		token:  getToken(t, admin),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeCourse(t, rec.Body.Bytes())
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, 10.0, updated.Price)
	assert.Equal(t, c.Description, updated.Description)

	// the cached summary is invalidated
	rec = serve(httpTest{method: http.MethodGet, path: "/api/courses/" + c.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Renamed", decodeCourse(t, rec.Body.Bytes()).Name)
}

func TestCourseApi_Content(t *testing.T) {
	c := testutil.CreateCourse(t, courseRepo, "Content course", "Intro")
	enrolled := createUser(t, "Enrolled", []string{user.RoleStudent}, c.ID)
	other := createUser(t, "Other", []string{user.RoleStudent})
	path := "/api/courses/" + c.ID + "/content"

	tests := []httpTest{
		{name: "unauthenticated", path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "not enrolled", path: path, token: getToken(t, other), wantCode: http.StatusForbidden, wantData: marchallObj(t, errNotEligible)},
		{
			name:     "not enrolled, unknown course",
			path:     "/api/courses/" + core.NewID() + "/content",
			token:    getToken(t, other),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errNotEligible),
		},
		{
			name:     "enrolled",
			path:     path,
			token:    getToken(t, enrolled),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, CourseResponse{Success: true, Course: c}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodGet
			checkCodeAndData(t, tt, serve(tt))
		})
	}
}

func TestCourseApi_QuestionsAndAnswers(t *testing.T) {
	c := testutil.CreateCourse(t, courseRepo, "Q&A course", "Intro")
	contentID := c.CourseData[0].ID
	student := createUser(t, "Student", []string{user.RoleStudent}, c.ID)
	teacher := createUser(t, "Teacher", []string{user.RoleTeacher})

	questionsPath := "/api/courses/" + c.ID + "/questions"
	tests := []httpTest{
		{name: "unauthenticated", path: questionsPath, body: []byte(`{}`), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name:     "missing question",
			path:     questionsPath,
			body:     []byte(`{"content_id":"` + contentID + `"}`),
			token:    getToken(t, student),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"success":false,"errors":{"question":"this field is required"}}`),
		},
		{
			name:     "malformed content id",
			path:     questionsPath,
			body:     []byte(`{"content_id":"nope","question":"Why?"}`),
			token:    getToken(t, student),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, ErrorResponse{Message: "invalid content id"}),
		},
		{
			name:     "unknown content id",
			path:     questionsPath,
			body:     []byte(`{"content_id":"` + core.NewID() + `","question":"Why?"}`),
			token:    getToken(t, student),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, ErrorResponse{Message: "invalid content id"}),
		},
		{
			name:     "unknown course",
			path:     "/api/courses/" + core.NewID() + "/questions",
			body:     []byte(`{"content_id":"` + contentID + `","question":"Why?"}`),
			token:    getToken(t, student),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, ErrorResponse{Message: "course not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPut
			checkCodeAndData(t, tt, serve(tt))
		})
	}

	rec := serve(httpTest{
		method: http.MethodPut,
		path:   questionsPath,
		body:   []byte(`{"content_id":"` + contentID + `","question":"Why channels?"}`),
		token:  getToken(t, student),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	questions := decodeCourse(t, rec.Body.Bytes()).CourseData[0].Questions
	require.Len(t, questions, 1)
	q := questions[0]
	assert.Equal(t, student.ID, q.User.ID)
	assert.NotContains(t, rec.Body.String(), student.Email)

	answersPath := "/api/courses/" + c.ID + "/answers"
	t.Run("malformed question id", func(t *testing.T) {
		tt := httpTest{
			method:   http.MethodPut,
			path:     answersPath,
			body:     []byte(`{"content_id":"` + contentID + `","question_id":"nope","answer":"Because"}`),
			token:    getToken(t, teacher),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, ErrorResponse{Message: "invalid question id"}),
		}
		checkCodeAndData(t, tt, serve(tt))
	})

	t.Run("answer emails the question author", func(t *testing.T) {
		emailsvc.ResetSentMessages()
		rec := serve(httpTest{
			method: http.MethodPut,
			path:   answersPath,
			body:   []byte(`{"content_id":"` + contentID + `","question_id":"` + q.ID + `","answer":"To communicate."}`),
			token:  getToken(t, teacher),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		replies := decodeCourse(t, rec.Body.Bytes()).CourseData[0].Questions[0].QuestionReplies
		require.Len(t, replies, 1)
		assert.Equal(t, teacher.ID, replies[0].User.ID)

		msg, ok := emailsvc.LastSentMessage()
		require.True(t, ok)
		assert.Equal(t, student.Email, msg.To[0].Address)
		assert.Equal(t, "question_reply", msg.TemplateName)
	})

	t.Run("answer by the author sends no email", func(t *testing.T) {
		emailsvc.ResetSentMessages()
		rec := serve(httpTest{
			method: http.MethodPut,
			path:   answersPath,
			body:   []byte(`{"content_id":"` + contentID + `","question_id":"` + q.ID + `","answer":"Got it!"}`),
			token:  getToken(t, student),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		_, sent := emailsvc.LastSentMessage()
		assert.False(t, sent)
	})
}

func TestCourseApi_Reviews(t *testing.T) {
	c := testutil.CreateCourse(t, courseRepo, "Reviewed course", "Intro")
	jane := createUser(t, "Jane", []string{user.RoleStudent}, c.ID)
	john := createUser(t, "John", []string{user.RoleStudent}, c.ID)
	eve := createUser(t, "Eve", []string{user.RoleStudent})
	admin := createUser(t, "Admin", []string{user.RoleAdmin})
	path := "/api/courses/" + c.ID + "/reviews"

	tests := []httpTest{
		{name: "not enrolled", body: []byte(`{"review":"meh","rating":1}`), token: getToken(t, eve), wantCode: http.StatusForbidden, wantData: marchallObj(t, errNotEligible)},
		{
			name:     "rating out of range",
			body:     []byte(`{"review":"wow","rating":6}`),
			token:    getToken(t, jane),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"success":false,"errors":{"rating":"rating must be 5 or less"}}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method, tt.path = http.MethodPut, path
			checkCodeAndData(t, tt, serve(tt))
		})
	}

	var reviewed course.Course
	for _, r := range []struct {
		usr    user.User
		rating string
		want   float64
	}{
		{jane, "5", 5},
		{john, "3", 4},
	} {
		rec := serve(httpTest{
			method: http.MethodPut,
			path:   path,
			body:   []byte(`{"review":"Nice","rating":` + r.rating + `}`),
			token:  getToken(t, r.usr),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		reviewed = decodeCourse(t, rec.Body.Bytes())
		assert.Equal(t, r.want, reviewed.Rating)
	}
	require.Len(t, reviewed.Reviews, 2)
	reviewID := reviewed.Reviews[0].ID

	repliesPath := func(courseID, reviewID string) string {
		return "/api/courses/" + courseID + "/reviews/" + reviewID + "/replies"
	}
	replyTests := []httpTest{
		{name: "not admin", path: repliesPath(c.ID, reviewID), body: []byte(`{"comment":"Thanks"}`), token: getToken(t, jane), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name:     "unknown review",
			path:     repliesPath(c.ID, core.NewID()),
			body:     []byte(`{"comment":"Thanks"}`),
			token:    getToken(t, admin),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, ErrorResponse{Message: "review not found"}),
		},
		{
			name:     "unknown course",
			path:     repliesPath(core.NewID(), reviewID),
			body:     []byte(`{"comment":"Thanks"}`),
			token:    getToken(t, admin),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, ErrorResponse{Message: "course not found"}),
		},
	}
	for _, tt := range replyTests {
		t.Run(tt.name, func(t *testing.T) {
			tt.method = http.MethodPut
			checkCodeAndData(t, tt, serve(tt))
		})
	}

	rec := serve(httpTest{
		method: http.MethodPut,
		path:   repliesPath(c.ID, reviewID),
		body:   []byte(`{"comment":"Thank you!"}`),
		token:  getToken(t, admin),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	review, ok := decodeCourse(t, rec.Body.Bytes()).Review(reviewID)
	require.True(t, ok)
	require.Len(t, review.CommentReplies, 1)
	assert.Equal(t, "Thank you!", review.CommentReplies[0].Comment)

	stored, err := courseRepo.GetCourse(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, stored.Rating)
}

func TestMetrics(t *testing.T) {
	rec := serve(httpTest{method: http.MethodGet, path: "/api/courses"})
	require.Equal(t, http.StatusOK, rec.Code)

	req, rec := newRequest(http.MethodGet, "/metrics")
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "elimu_cache_requests_total")
}

func TestHome(t *testing.T) {
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Elimu API!", rec.Body.String())
}
