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
	serverConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
	}

	databaseConfig struct {
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

	redisConfig struct {
		URL      string
		ScaleTTL time.Duration
	}

	auditConfig struct {
		Backend       string // sql | mongo
		MongoURI      string
		MongoDatabase string
	}

	gradingConfig struct {
		DefaultScaleFile string
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		WorkDir          string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server   serverConfig
		Database databaseConfig
		Redis    redisConfig
		Audit    auditConfig
		Grading  gradingConfig
	}
)

func (dc databaseConfig) Address() string {
	if dc.Port == "" {
		return dc.Host
	}
	return net.JoinHostPort(dc.Host, dc.Port)
}

// NewConfig reads the configuration from the environment, after loading `config/.env.<env>` when it exists.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Shule")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "shule")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.scaleTTL", 10*time.Minute)

	v.SetDefault("audit.backend", "sql")
	v.SetDefault("audit.mongoURI", "mongodb://localhost:27017")
	v.SetDefault("audit.mongoDatabase", "shule")

	v.SetDefault("grading.defaultScaleFile", "")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:             env,
		Build:           v.GetString("build"),
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		AppName:         v.GetString("appName"),
		SecretKey:       v.GetString("secretKey"),
		WorkDir:         wd,
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		SendgridApiKey:  v.GetString("sendgridApiKey"),
		RollbarToken:    v.GetString("rollbarToken"),
		Server: serverConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugHost:                 v.GetString("server.debugHost"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
		},
		Database: databaseConfig{
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
		Redis: redisConfig{
			URL:      v.GetString("redis.url"),
			ScaleTTL: v.GetDuration("redis.scaleTTL"),
		},
		Audit: auditConfig{
			Backend:       v.GetString("audit.backend"),
			MongoURI:      v.GetString("audit.mongoURI"),
			MongoDatabase: v.GetString("audit.mongoDatabase"),
		},
		Grading: gradingConfig{
			DefaultScaleFile: v.GetString("grading.defaultScaleFile"),
		},
	}

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.mail.ParseAddress(%s): %v", v.GetString("defaultFromEmail"), err)
	}
	conf.DefaultFromEmail = *from
	return conf
}

// NewTestConfig returns a Config suitable for tests: no .env file, no external services.
func NewTestConfig() *Config {
	return &Config{
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		AppName:          "Shule",
		SecretKey:        "test-secret",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Shule", Address: "noreply@localhost"},
		Server: serverConfig{
			Host:                      "localhost",
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			ShutdownTimeout:           time.Second,
		},
		Database: databaseConfig{Engine: "sqlite3", Name: ":memory:"},
		Redis:    redisConfig{ScaleTTL: time.Minute},
		Audit:    auditConfig{Backend: "sql"},
	}
}
