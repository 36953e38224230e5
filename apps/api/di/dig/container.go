package dig_container

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
	cachesvc "github.com/trezcool/elimu/services/cache"
	emailsvc "github.com/trezcool/elimu/services/email"
	logsvc "github.com/trezcool/elimu/services/logger"
	uploadsvc "github.com/trezcool/elimu/services/upload"
	"github.com/trezcool/elimu/storage/database"
	sqlxrepos "github.com/trezcool/elimu/storage/database/sqlx"
	mongorepos "github.com/trezcool/elimu/storage/mongodb"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	UserSvc    *user.Service
	CourseSvc  *course.Service
	Uploader   core.Uploader
	Validate   *validator.Validate
	Translator ut.Translator
	Registry   *prometheus.Registry
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sql.DB {
	setUp := func() (*sql.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newMongoDB(conf *core.Config, loggerParam DBLoggerParam) *mongo.Database {
	db, err := mongorepos.Open(context.Background(), conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up mongo: %v", err), err)
	}
	return db
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// newCache uses Redis when an address is configured, an in-process cache otherwise.
func newCache(conf *core.Config, reg *prometheus.Registry, logger core.Logger) (core.Cache, error) {
	var cache core.Cache
	if conf.Cache.RedisAddr != "" {
		client, err := cachesvc.NewRedisClient(context.Background(), conf)
		if err != nil {
			return nil, errors.Wrap(err, "setting up redis")
		}
		cache = cachesvc.NewRedisCache(client, conf)
	} else {
		logger.Info("no redis address configured: caching in memory")
		cache = cachesvc.NewMemoryCache(conf.Cache.TTL)
	}
	return cachesvc.WithMetrics(cache, reg)
}

// newUploader uses S3 when a bucket is configured, the local media root otherwise.
func newUploader(conf *core.Config) (core.Uploader, error) {
	if conf.Storage.Bucket == "" {
		return uploadsvc.NewLocalUploader(conf), nil
	}
	uploader, err := uploadsvc.NewS3Uploader(context.Background(), conf)
	if err != nil {
		return nil, errors.Wrap(err, "setting up s3")
	}
	return uploader, nil
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator() *validator.Validate {
	return validator.New()
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newServer(p serverParams) *echoapi.Server {
	deps := echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		UserSvc:    p.UserSvc,
		CourseSvc:  p.CourseSvc,
		Validate:   p.Validate,
		Translator: p.Translator,
		Gatherer:   p.Registry,
	}
	if local, ok := p.Uploader.(interface{ Root() string }); ok {
		deps.MediaRoot = local.Root()
	}
	return echoapi.NewServer(deps)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newMongoDB))
	must(c.Provide(newRegistry))
	must(c.Provide(newCache))
	must(c.Provide(newUploader))
	must(c.Provide(newEmailService))
	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(mongorepos.NewCourseRepository, dig.As(new(course.Repository))))
	must(c.Provide(mongorepos.NewNotificationRepository, dig.As(new(course.Notifier))))
	must(c.Provide(newValidator))
	must(c.Provide(newTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
