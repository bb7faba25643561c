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
	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		WorkDir          string
		BaseURL          string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server    ServerConfig
		Database  DatabaseConfig
		Redis     RedisConfig
		Storage   StorageConfig
		Firebase  FirebaseConfig
		Reminders ReminderConfig
	}

	ServerConfig struct {
		Host                      string
		Addr                      string
		DebugHost                 string
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		PasswordResetTimeoutDelta time.Duration
		SessionTTL                time.Duration
		LoginRateLimit            float64 // requests per second per IP; <= 0 disables
		DisableReqLogs            bool
	}

	DatabaseConfig struct {
		Engine        string // postgres | memory
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr     string // empty: in-memory sessions
		Password string
		DB       int
	}

	StorageConfig struct {
		Backend           string // local | s3
		UploadDir         string
		URLPrefix         string
		MaxUploadSize     int64
		AllowedExtensions []string
		ImageExtensions   []string
		S3Bucket          string
		S3Region          string
	}

	FirebaseConfig struct {
		CredentialsFile string // empty: log notifications to the console
	}

	ReminderConfig struct {
		Enabled   bool
		Schedule  string
		DaysAhead int
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c DatabaseConfig) InMemory() bool {
	return c.Engine == "memory"
}

// NewConfig reads the configuration of the current ENV (DEV by default).
// Every key can be overridden with an env var prefixed by the ENV name, e.g. PROD_DATABASE_HOST.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	wd := os.Getenv("WORK_DIR")
	if wd == "" {
		wd, _ = os.Getwd()
	}

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "KIA")
	v.SetDefault("secretKey", "x7#kq1-n0t(s3cr3t)-ch4ng3-1n-pr0d!9z@d4w")
	v.SetDefault("baseURL", "http://localhost:8000")
	v.SetDefault("frontendBaseURL", "http://localhost:8000")
	v.SetDefault("defaultFromEmail", "KIA <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.debugHost", "localhost:4000")
	v.SetDefault("server.readTimeout", 10*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 15*time.Minute)
	v.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("server.sessionTTL", 12*time.Hour)
	v.SetDefault("server.loginRateLimit", 5.0)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "kia")
	v.SetDefault("database.user", "kia")
	v.SetDefault("database.password", "kia")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.uploadDir", filepath.Join(wd, "uploads"))
	v.SetDefault("storage.urlPrefix", "/uploads")
	v.SetDefault("storage.maxUploadSize", int64(50<<20))
	v.SetDefault("storage.allowedExtensions", []string{"pdf", "doc", "docx", "ppt", "pptx", "png", "jpg", "jpeg"})
	v.SetDefault("storage.imageExtensions", []string{"png", "jpg", "jpeg"})
	v.SetDefault("storage.s3Bucket", "")
	v.SetDefault("storage.s3Region", "eu-west-1")

	v.SetDefault("firebase.credentialsFile", "")

	v.SetDefault("reminders.enabled", true)
	v.SetDefault("reminders.schedule", "0 8 * * *")
	v.SetDefault("reminders.daysAhead", 3)

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

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

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	return &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         env == "TEST",
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		WorkDir:          wd,
		BaseURL:          strings.TrimRight(v.GetString("baseURL"), "/"),
		FrontendBaseURL:  strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		DefaultFromEmail: *from,
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Addr:                      v.GetString("server.addr"),
			DebugHost:                 v.GetString("server.debugHost"),
			ReadTimeout:               v.GetDuration("server.readTimeout"),
			WriteTimeout:              v.GetDuration("server.writeTimeout"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			PasswordResetTimeoutDelta: v.GetDuration("server.passwordResetTimeoutDelta"),
			SessionTTL:                v.GetDuration("server.sessionTTL"),
			LoginRateLimit:            v.GetFloat64("server.loginRateLimit"),
			DisableReqLogs:            v.GetBool("server.disableReqLogs"),
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
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Storage: StorageConfig{
			Backend:           v.GetString("storage.backend"),
			UploadDir:         v.GetString("storage.uploadDir"),
			URLPrefix:         v.GetString("storage.urlPrefix"),
			MaxUploadSize:     v.GetInt64("storage.maxUploadSize"),
			AllowedExtensions: v.GetStringSlice("storage.allowedExtensions"),
			ImageExtensions:   v.GetStringSlice("storage.imageExtensions"),
			S3Bucket:          v.GetString("storage.s3Bucket"),
			S3Region:          v.GetString("storage.s3Region"),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: v.GetString("firebase.credentialsFile"),
		},
		Reminders: ReminderConfig{
			Enabled:   v.GetBool("reminders.enabled"),
			Schedule:  v.GetString("reminders.schedule"),
			DaysAhead: v.GetInt("reminders.daysAhead"),
		},
	}
}
