package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
)

// NewConfig returns the configuration used across the tests.
func NewConfig() *core.Config {
	conf := &core.Config{
		TestMode:                  true,
		Env:                       "test",
		AppName:                   "Elimu",
		WorkDir:                   core.Getwd(),
		SecretKey:                 "test-secret-key",
		ActivationSecret:          "test-activation-secret",
		FrontendBaseURL:           "http://localhost:3000",
		JWTExpirationDelta:        15 * time.Minute,
		JWTRefreshExpirationDelta: 24 * time.Hour,
		ActivationTimeoutDelta:    5 * time.Minute,
	}
	conf.Cache.TTL = time.Hour
	conf.Storage.MediaRoot = "media"
	conf.Storage.MediaURL = "/media/"
	return conf
}

// Logger is a core.Logger recording the messages it receives.
type Logger struct {
	mu       sync.Mutex
	Messages []string
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger { return &Logger{} }

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	l.Messages = append(l.Messages, fmt.Sprintf("%s: %s", level, msg))
	l.mu.Unlock()
}

// Logged returns a copy of the recorded messages.
func (l *Logger) Logged() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.Messages...)
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("DEBUG", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("INFO", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("WARN", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("ERROR", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log("FATAL", msg) }

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	roles []string,
	isActive bool,
	courses ...string,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	usr := user.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Roles:     roles,
		Courses:   append([]string{}, courses...),
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateCourse stores a course made of one content unit per title in contentTitles.
func CreateCourse(t *testing.T, repo course.Repository, name string, contentTitles ...string) course.Course {
	t.Helper()
	tstamp := time.Now().UTC()
	c := course.Course{
		ID:            core.NewID(),
		Name:          name,
		Description:   name + " description",
		Price:         29.99,
		Tags:          "go,backend",
		Level:         "beginner",
		DemoURL:       "https://example.com/demo",
		Benefits:      []course.Title{{Title: "Write Go"}},
		Prerequisites: []course.Title{{Title: "Basic programming"}},
		CourseData:    []course.ContentUnit{},
		Reviews:       []course.Review{},
		CreatedAt:     tstamp,
		UpdatedAt:     tstamp,
	}
	for i, title := range contentTitles {
		c.CourseData = append(c.CourseData, course.ContentUnit{
			ID:           core.NewID(),
			Title:        title,
			Description:  title + " description",
			VideoURL:     fmt.Sprintf("https://videos.example.com/%d", i),
			VideoSection: "Section 1",
			VideoLength:  10,
			VideoPlayer:  "vimeo",
			Links:        []course.Link{{Title: "Docs", URL: "https://go.dev/doc"}},
			Suggestion:   "Take notes",
			Questions:    []course.Question{},
		})
	}
	c, err := repo.CreateCourse(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}
