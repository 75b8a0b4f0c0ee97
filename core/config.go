package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName      string
		Env          string // DEV (local; default), TEST, QA, PROD
		Build        string
		Debug        bool
		TestMode     bool
		WorkDir      string
		RollbarToken string
		Server       ServerConfig
		Database     DatabaseConfig
		Export       ExportConfig
	}

	ServerConfig struct {
		Host            string
		Address         string
		DebugHost       string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		MaxUploadSize   string // echo BodyLimit format, eg. "10M"
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
		InMemory      bool
	}

	ExportConfig struct {
		HeaderScanRows int
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// NewConfig loads the app configuration from the environment.
// `config/.env.<env>` is loaded first if it exists.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "Gradebook")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDebugHost", ":4000")
	v.SetDefault("serverReadTimeout", 5*time.Second)
	v.SetDefault("serverWriteTimeout", 30*time.Second)
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("serverMaxUploadSize", "10M")

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", "5432")
	v.SetDefault("databaseName", "gradebook")
	v.SetDefault("databaseUser", "gradebook")
	v.SetDefault("databasePassword", "gradebook")
	v.SetDefault("databaseAdminUser", "postgres")
	v.SetDefault("databaseAdminPassword", "postgres")
	v.SetDefault("databaseDisableTLS", true)
	v.SetDefault("databaseInMemory", false)

	v.SetDefault("exportHeaderScanRows", 10)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		WorkDir:      workDir,
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            v.GetString("serverHost"),
			Address:         v.GetString("serverAddress"),
			DebugHost:       v.GetString("serverDebugHost"),
			ReadTimeout:     v.GetDuration("serverReadTimeout"),
			WriteTimeout:    v.GetDuration("serverWriteTimeout"),
			ShutdownTimeout: v.GetDuration("serverShutdownTimeout"),
			MaxUploadSize:   v.GetString("serverMaxUploadSize"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("databaseEngine"),
			Host:          v.GetString("databaseHost"),
			Port:          v.GetString("databasePort"),
			Name:          v.GetString("databaseName"),
			User:          v.GetString("databaseUser"),
			Password:      v.GetString("databasePassword"),
			AdminUser:     v.GetString("databaseAdminUser"),
			AdminPassword: v.GetString("databaseAdminPassword"),
			DisableTLS:    v.GetBool("databaseDisableTLS"),
			InMemory:      v.GetBool("databaseInMemory"),
		},
		Export: ExportConfig{
			HeaderScanRows: v.GetInt("exportHeaderScanRows"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: in-memory storage and no external reporting.
func NewTestConfig() *Config {
	return &Config{
		AppName:  "Gradebook",
		Env:      "TEST",
		Build:    "test",
		TestMode: true,
		Server: ServerConfig{
			Address:         ":0",
			ShutdownTimeout: time.Second,
			MaxUploadSize:   "10M",
		},
		Database: DatabaseConfig{InMemory: true},
		Export:   ExportConfig{HeaderScanRows: 10},
	}
}
