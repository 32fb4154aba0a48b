package main

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	internalhttp "github.com/labops/fleetprov/internal/api/http"
	"github.com/labops/fleetprov/internal/db"
)

type Config struct {
	Log        LogConfig
	Http       internalhttp.Config
	Fleet      FleetConfig
	Job        JobConfig
	Credential CredentialConfig
	Audit      AuditConfig
	Smtp       SmtpConfig
	Database   db.Config
}

type FleetConfig struct {
	AllowedDomain       string `mapstructure:"allowed_domain"`
	InventoryPath       string `mapstructure:"inventory_path"`
	AnsibleBinary       string `mapstructure:"ansible_binary"`
	ProbeTimeoutSeconds int    `mapstructure:"probe_timeout_seconds"`
}

func (c FleetConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

type JobConfig struct {
	PlaybookBinary string `mapstructure:"playbook_binary"`
	PlaybookPath   string `mapstructure:"playbook_path"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func (c JobConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type CredentialConfig struct {
	Length int `mapstructure:"length"`
}

type AuditConfig struct {
	CsvPath string `mapstructure:"csv_path"`
}

type SmtpConfig struct {
	Addr      string `mapstructure:"addr"`
	From      string `mapstructure:"from"`
	AdminAddr string `mapstructure:"admin_addr"`
}

var config Config

func InitConfig() {
	_ = godotenv.Load()

	viper.SetConfigName("application")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./cmd/fleetprov-server")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.BindEnv("http.admin_api_key", "ADMIN_API_KEY")
	_ = viper.BindEnv("database.url", "DATABASE_URL")

	viper.SetDefault("fleet.ansible_binary", "ansible")
	viper.SetDefault("fleet.probe_timeout_seconds", 15)
	viper.SetDefault("job.playbook_binary", "ansible-playbook")
	viper.SetDefault("job.timeout_seconds", 600)
	viper.SetDefault("credential.length", 12)
	viper.SetDefault("audit.csv_path", "users.csv")

	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}

	if err := viper.Unmarshal(&config); err != nil {
		panic(err)
	}

	initLogger(config.Log.Level)
}
