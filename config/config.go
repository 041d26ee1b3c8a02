/*
Copyright 2024 Locafin Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT                  = "5004"
	DEFAULT_RECALCULATION_WORKERS = 4
	DEFAULT_LOCK_TTL_SECONDS      = 30
	DEFAULT_RETRY_MAX_SECONDS     = 10
	DEFAULT_CURRENCY              = "BRL"
	DEFAULT_MONITORING_PORT       = "5005"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Secure    bool   `json:"secure" envconfig:"LOCAFIN_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"LOCAFIN_SERVER_SECRET_KEY"`
	Port      string `json:"port" envconfig:"LOCAFIN_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"LOCAFIN_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"LOCAFIN_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"LOCAFIN_REDIS_SKIP_TLS_VERIFY"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"LOCAFIN_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"LOCAFIN_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"LOCAFIN_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"LOCAFIN_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

// CompanyConfig identifies the collecting company in remittance headers.
type CompanyConfig struct {
	Name     string `json:"name" envconfig:"LOCAFIN_COMPANY_NAME"`
	Document string `json:"document" envconfig:"LOCAFIN_COMPANY_DOCUMENT"`
}

// RecalculationConfig tunes the position recalculator.
type RecalculationConfig struct {
	Workers         int    `json:"workers" envconfig:"LOCAFIN_RECALCULATION_WORKERS"`
	LockTTLSeconds  int    `json:"lock_ttl_seconds" envconfig:"LOCAFIN_RECALCULATION_LOCK_TTL"`
	RetryMaxSeconds int    `json:"retry_max_seconds" envconfig:"LOCAFIN_RECALCULATION_RETRY_MAX"`
	MonitoringPort  string `json:"monitoring_port" envconfig:"LOCAFIN_RECALCULATION_MONITORING_PORT"`
}

type OtelConfig struct {
	Enabled  bool   `json:"enabled" envconfig:"LOCAFIN_OTEL_ENABLED"`
	Endpoint string `json:"endpoint" envconfig:"LOCAFIN_OTEL_ENDPOINT"`
}

type Configuration struct {
	ProjectName   string              `json:"project_name" envconfig:"LOCAFIN_PROJECT_NAME"`
	Currency      string              `json:"currency" envconfig:"LOCAFIN_CURRENCY"`
	Server        ServerConfig        `json:"server"`
	DataSource    DataSourceConfig    `json:"data_source"`
	Redis         RedisConfig         `json:"redis"`
	Notification  Notification        `json:"notification"`
	RateLimit     RateLimitConfig     `json:"rate_limit"`
	Company       CompanyConfig       `json:"company"`
	Recalculation RecalculationConfig `json:"recalculation"`
	Otel          OtelConfig          `json:"otel"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// a .env file next to the binary is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: could not read .env file: %v", err)
	}

	// override config from environment variables
	err = envconfig.Process("locafin", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return nil
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called locafin.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Locafin"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Company.Name = strings.TrimSpace(cnf.Company.Name)
	cnf.Company.Document = strings.TrimSpace(cnf.Company.Document)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Currency == "" {
		cnf.Currency = DEFAULT_CURRENCY
	}

	if cnf.Recalculation.Workers <= 0 {
		cnf.Recalculation.Workers = DEFAULT_RECALCULATION_WORKERS
	}
	if cnf.Recalculation.LockTTLSeconds <= 0 {
		cnf.Recalculation.LockTTLSeconds = DEFAULT_LOCK_TTL_SECONDS
	}
	if cnf.Recalculation.RetryMaxSeconds <= 0 {
		cnf.Recalculation.RetryMaxSeconds = DEFAULT_RETRY_MAX_SECONDS
	}
	if cnf.Recalculation.MonitoringPort == "" {
		cnf.Recalculation.MonitoringPort = DEFAULT_MONITORING_PORT
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
