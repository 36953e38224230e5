package tests

import (
	"fmt"
	"os"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	. "github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/services/cache"
	"github.com/trezcool/elimu/services/email"
	"github.com/trezcool/elimu/services/upload"
	"github.com/trezcool/elimu/storage/database/inmem"
	"github.com/trezcool/elimu/tests"
)

func TestMain(m *testing.M) {
	mediaRoot, err := os.MkdirTemp("", "elimu-media")
	if err != nil {
		fmt.Printf("os.MkdirTemp(): %v", err)
		os.Exit(1)
	}

	conf = testutil.NewConfig()
	conf.Storage.MediaRoot = mediaRoot
	logger := testutil.NewLogger()

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)
	courseRepo = inmemdb.NewCourseRepository(db)
	notifier := inmemdb.NewNotificationRepository(db)

	// set up validation
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up services
	registry := prometheus.NewRegistry()
	cache, err := cachesvc.WithMetrics(cachesvc.NewMemoryCache(conf.Cache.TTL), registry)
	if err != nil {
		fmt.Printf("cachesvc.WithMetrics(): %v", err)
		os.Exit(1)
	}
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	usrSvc := user.NewService(conf, usrRepo, mailSvc)
	courseSvc := course.NewService(conf, courseRepo, cache, uploadsvc.NewLocalUploader(conf), notifier, mailSvc, logger)

	// set up server
	app = NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    usrSvc,
		CourseSvc:  courseSvc,
		Validate:   validate,
		Translator: translator,
		Gatherer:   registry,
		MediaRoot:  mediaRoot,
	})

	// run tests
	code := m.Run()

	// clean up
	if err = os.RemoveAll(mediaRoot); err != nil {
		fmt.Printf("os.RemoveAll(): %v", err)
		os.Exit(1)
	}

	os.Exit(code)
}
