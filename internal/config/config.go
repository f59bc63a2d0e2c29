// Package config loads softfab.ini via viper, with a getEnv/getEnvInt/
// getEnvBool-style defaulting pattern preserved as viper.SetDefault
// fallbacks and environment-variable overrides layered on top of the file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the controller.
type Config struct {
	Server     ServerConfig
	Data       DataConfig
	Report     ReportConfig
	Mail       MailConfig
	Docs       DocsConfig
	Kubernetes KubernetesConfig
	Database   DatabaseConfig
}

// ServerConfig holds the HTTP listener's configuration.
type ServerConfig struct {
	ListenAddress   string
	UnixSocket      string
	Debug           bool
	NoAuth          bool
	InsecureCookie  bool
	LogLevel        string
	LogFormat       string // json or text
}

// DataConfig points at the root directory of the record stores
// (internal/store writes one subdirectory per entity kind under it).
type DataConfig struct {
	RootDir string
}

// ReportConfig configures where finished task reports are read from/served.
type ReportConfig struct {
	RootURL         string
	StorageEndpoint string
	Timeout         time.Duration

	// RetentionDays is how long a finished job's stored reports are kept
	// before the retention sweep deletes them. Zero disables the sweep.
	RetentionDays int
	SweepInterval time.Duration
}

// MailConfig configures outbound notification email.
type MailConfig struct {
	Sender   string
	SMTPHost string
	SMTPPort int
}

// DocsConfig points at the bundled documentation.
type DocsConfig struct {
	BundlePath string
}

// DatabaseConfig points the optional internal/projection read cache at a
// Postgres instance. Empty DSN disables the projection entirely — the
// controller remains fully functional against the XML stores alone.
type DatabaseConfig struct {
	DSN            string
	MaxConnections int
	MinConnections int
}

// KubernetesConfig configures the ephemeral Task Runner provisioner.
type KubernetesConfig struct {
	Namespace               string
	InCluster               bool
	KubeConfigPath          string
	ServiceAccount          string
	RunnerImage             string
	RunnerVersion           string
	TTLSecondsAfterFinished int
	BackoffLimit            int
	ActiveDeadlineSeconds   int
}

// Load reads softfab.ini from configPath (or the working directory if
// empty) via viper, applies SF_-prefixed environment variable overrides,
// and fills in defaults for anything unset.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("ini")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("softfab")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			ListenAddress:  v.GetString("server.listenaddress"),
			UnixSocket:     v.GetString("server.unixsocket"),
			Debug:          v.GetBool("server.debug"),
			NoAuth:         v.GetBool("server.noauth"),
			InsecureCookie: v.GetBool("server.insecurecookie"),
			LogLevel:       v.GetString("server.loglevel"),
			LogFormat:      v.GetString("server.logformat"),
		},
		Data: DataConfig{
			RootDir: v.GetString("data.rootdir"),
		},
		Report: ReportConfig{
			RootURL:         v.GetString("report.rooturl"),
			StorageEndpoint: v.GetString("report.storageendpoint"),
			Timeout:         v.GetDuration("report.timeout"),
			RetentionDays:   v.GetInt("report.retentiondays"),
			SweepInterval:   v.GetDuration("report.sweepinterval"),
		},
		Mail: MailConfig{
			Sender:   v.GetString("mail.sender"),
			SMTPHost: v.GetString("mail.smtphost"),
			SMTPPort: v.GetInt("mail.smtpport"),
		},
		Docs: DocsConfig{
			BundlePath: v.GetString("docs.bundlepath"),
		},
		Kubernetes: KubernetesConfig{
			Namespace:               v.GetString("kubernetes.namespace"),
			InCluster:               v.GetBool("kubernetes.incluster"),
			KubeConfigPath:          v.GetString("kubernetes.kubeconfigpath"),
			ServiceAccount:          v.GetString("kubernetes.serviceaccount"),
			RunnerImage:             v.GetString("kubernetes.runnerimage"),
			RunnerVersion:           v.GetString("kubernetes.runnerversion"),
			TTLSecondsAfterFinished: v.GetInt("kubernetes.ttlsecondsafterfinished"),
			BackoffLimit:            v.GetInt("kubernetes.backofflimit"),
			ActiveDeadlineSeconds:   v.GetInt("kubernetes.activedeadlineseconds"),
		},
		Database: DatabaseConfig{
			DSN:            v.GetString("database.dsn"),
			MaxConnections: v.GetInt("database.maxconnections"),
			MinConnections: v.GetInt("database.minconnections"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listenaddress", ":8080")
	v.SetDefault("server.debug", false)
	v.SetDefault("server.noauth", false)
	v.SetDefault("server.insecurecookie", false)
	v.SetDefault("server.loglevel", "info")
	v.SetDefault("server.logformat", "json")
	v.SetDefault("data.rootdir", "./data")
	v.SetDefault("report.timeout", 30*time.Second)
	v.SetDefault("report.retentiondays", 0)
	v.SetDefault("report.sweepinterval", time.Hour)
	v.SetDefault("kubernetes.namespace", "softfab")
	v.SetDefault("kubernetes.incluster", false)
	v.SetDefault("kubernetes.serviceaccount", "softfab-runner")
	v.SetDefault("kubernetes.runnerimage", "softfab/task-runner:latest")
	v.SetDefault("kubernetes.runnerversion", "latest")
	v.SetDefault("kubernetes.ttlsecondsafterfinished", 3600)
	v.SetDefault("kubernetes.backofflimit", 1)
	v.SetDefault("kubernetes.activedeadlineseconds", 3600)
	v.SetDefault("database.maxconnections", 10)
	v.SetDefault("database.minconnections", 2)
}

// Validate checks the configuration for the minimum needed to start.
func (c *Config) Validate() error {
	if c.Data.RootDir == "" {
		return fmt.Errorf("data.rootdir is required")
	}
	if c.Kubernetes.Namespace == "" {
		return fmt.Errorf("kubernetes.namespace is required")
	}
	return nil
}
