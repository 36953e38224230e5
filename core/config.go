package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	MongoConfig struct {
		URI     string
		Name    string
		Timeout time.Duration
	}

	CacheConfig struct {
		RedisAddr     string
		RedisPassword string
		RedisDB       int
		TTL           time.Duration
	}

	StorageConfig struct {
		Bucket          string
		Region          string
		AccessKeyID     string
		SecretAccessKey string
		Endpoint        string
		BaseURL         string
		MediaRoot       string
		MediaURL        string
	}

	Config struct {
		Debug    bool
		TestMode bool
		Env      string
		Build    string
		AppName  string
		WorkDir  string

		SecretKey        string
		ActivationSecret string
		FrontendBaseURL  string
		SendgridApiKey   string
		RollbarToken     string
		defaultFromEmail string

		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ActivationTimeoutDelta    time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Mongo    MongoConfig
		Cache    CacheConfig
		Storage  StorageConfig
	}
)

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

func (conf *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
}

// NewConfig loads the configuration for the current environment (ENV: DEV (default), TEST, QA, PROD).
// Values are read from `config/.env.<env>` when it exists, then from <ENV>_ prefixed environment variables.
func NewConfig() *Config {
	v := viper.New()

	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Elimu")
	v.SetDefault("secretKey", "mle4-wq1)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("activationSecret", "k2d9$e!b7-xq4=zp0&w^c3n8h(r)t5*v1jl6y@ms")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("activationTimeoutDelta", 5*time.Minute)

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "elimu")
	v.SetDefault("database.user", "elimu")
	v.SetDefault("database.password", "elimu")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.name", "elimu")
	v.SetDefault("mongo.timeout", 10*time.Second)

	v.SetDefault("cache.redisAddr", "")
	v.SetDefault("cache.redisPassword", "")
	v.SetDefault("cache.redisDB", 0)
	v.SetDefault("cache.ttl", time.Hour)

	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.accessKeyID", "")
	v.SetDefault("storage.secretAccessKey", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.baseURL", "")
	v.SetDefault("storage.mediaRoot", "media")
	v.SetDefault("storage.mediaURL", "http://localhost:8000/media/")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:    v.GetBool("debug"),
		TestMode: v.GetBool("testMode"),
		Env:      env,
		Build:    v.GetString("build"),
		AppName:  v.GetString("appName"),
		WorkDir:  wd,

		SecretKey:        v.GetString("secretKey"),
		ActivationSecret: v.GetString("activationSecret"),
		FrontendBaseURL:  strings.TrimSuffix(v.GetString("frontendBaseURL"), "/"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		defaultFromEmail: v.GetString("defaultFromEmail"),

		JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
		JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		ActivationTimeoutDelta:    v.GetDuration("activationTimeoutDelta"),

		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Mongo: MongoConfig{
			URI:     v.GetString("mongo.uri"),
			Name:    v.GetString("mongo.name"),
			Timeout: v.GetDuration("mongo.timeout"),
		},
		Cache: CacheConfig{
			RedisAddr:     v.GetString("cache.redisAddr"),
			RedisPassword: v.GetString("cache.redisPassword"),
			RedisDB:       v.GetInt("cache.redisDB"),
			TTL:           v.GetDuration("cache.ttl"),
		},
		Storage: StorageConfig{
			Bucket:          v.GetString("storage.bucket"),
			Region:          v.GetString("storage.region"),
			AccessKeyID:     v.GetString("storage.accessKeyID"),
			SecretAccessKey: v.GetString("storage.secretAccessKey"),
			Endpoint:        v.GetString("storage.endpoint"),
			BaseURL:         v.GetString("storage.baseURL"),
			MediaRoot:       v.GetString("storage.mediaRoot"),
			MediaURL:        v.GetString("storage.mediaURL"),
		},
	}
}
