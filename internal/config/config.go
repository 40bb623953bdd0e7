package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// Config is the root configuration for the demo binaries.
type Config struct {
	Vertex   VertexConfig   `mapstructure:"vertex"`
	Models   ModelsConfig   `mapstructure:"models"`
	Claims   ClaimsConfig   `mapstructure:"claims"`
	Server   ServerConfig   `mapstructure:"server"`
	GCS      GCSConfig      `mapstructure:"gcs"`
	BigQuery BigQueryConfig `mapstructure:"bigquery"`
	Search   SearchConfig   `mapstructure:"search"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Hotel    HotelConfig    `mapstructure:"hotel"`
	Trip     TripConfig     `mapstructure:"trip"`
	Notion   NotionConfig   `mapstructure:"notion"`
	Log      LogConfig      `mapstructure:"log"`
}

// VertexConfig selects the Vertex AI project and region used for every model call.
type VertexConfig struct {
	ProjectID   string `mapstructure:"project_id"`
	Location    string `mapstructure:"location"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
}

// Timeout returns the per-request model timeout.
func (v VertexConfig) Timeout() time.Duration {
	return time.Duration(v.TimeoutSecs) * time.Second
}

// ModelsConfig holds the model identifier used by each demo.
type ModelsConfig struct {
	Claim     string `mapstructure:"claim"`
	Invoice   string `mapstructure:"invoice"`
	EBupot    string `mapstructure:"ebupot"`
	HotelTags string `mapstructure:"hotel_tags"`
	Exchange  string `mapstructure:"exchange"`
	Trip      string `mapstructure:"trip"`
	Tax       string `mapstructure:"tax"`
}

// ClaimsConfig tunes the two-stage claim pipeline.
type ClaimsConfig struct {
	Workers     int `mapstructure:"workers"`
	MaxUploadMB int `mapstructure:"max_upload_mb"`
}

// MaxUploadBytes returns the upload cap in bytes.
func (c ClaimsConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

type ServerConfig struct {
	Port       int `mapstructure:"port"`
	JobWorkers int `mapstructure:"job_workers"`
	QueueSize  int `mapstructure:"queue_size"`
}

type GCSConfig struct {
	Bucket string `mapstructure:"bucket"`
}

// BigQueryConfig enables run recording when Dataset is set.
type BigQueryConfig struct {
	Dataset string `mapstructure:"dataset"`
}

// Enabled reports whether BigQuery recording is configured.
func (b BigQueryConfig) Enabled() bool {
	return b.Dataset != ""
}

// SearchConfig points the tax assistant at a Vertex AI Search datastore.
type SearchConfig struct {
	DataStoreID string `mapstructure:"data_store_id"`
	Location    string `mapstructure:"location"`
}

type ExchangeConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
	MaxRounds   int    `mapstructure:"max_rounds"`
}

type HotelConfig struct {
	UserAgent string `mapstructure:"user_agent"`
	Referer   string `mapstructure:"referer"`
	MaxImages int    `mapstructure:"max_images"`
}

type TripConfig struct {
	Weather string `mapstructure:"weather"`
}

// NotionConfig names the review database claim items are published to.
type NotionConfig struct {
	Token      string `mapstructure:"token"`
	DatabaseID string `mapstructure:"database_id"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from an optional .env file, an optional config.yaml
// in the working directory and DEMOS_* environment variables.
func Load() (*Config, error) {
	// Existing environment variables take precedence over .env entries.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("DEMOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Conventional names used by the gcloud tooling and earlier deployments.
	bindings := map[string][]string{
		"vertex.project_id":    {"DEMOS_VERTEX_PROJECT_ID", "PROJECT_ID", "GOOGLE_CLOUD_PROJECT"},
		"vertex.location":      {"DEMOS_VERTEX_LOCATION", "REGION", "GOOGLE_CLOUD_LOCATION"},
		"search.data_store_id": {"DEMOS_SEARCH_DATA_STORE_ID", "DATA_STORE_ID"},
		"search.location":      {"DEMOS_SEARCH_LOCATION", "DATA_STORE_LOCATION"},
		"gcs.bucket":           {"DEMOS_GCS_BUCKET", "GCS_BUCKET"},
		"models.trip":          {"DEMOS_MODELS_TRIP", "MODEL"},
		"models.tax":           {"DEMOS_MODELS_TAX", "MODEL"},
		"bigquery.dataset":     {"DEMOS_BIGQUERY_DATASET", "BQ_DATASET"},
		"exchange.base_url":    {"DEMOS_EXCHANGE_BASE_URL", "FRANKFURTER_URL"},
		"claims.workers":       {"DEMOS_CLAIMS_WORKERS", "CLAIM_WORKERS"},
		"notion.token":         {"DEMOS_NOTION_TOKEN", "NOTION_TOKEN"},
		"notion.database_id":   {"DEMOS_NOTION_DATABASE_ID", "NOTION_DATABASE_ID"},
		"log.level":            {"DEMOS_LOG_LEVEL", "LOG_LEVEL"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	v.SetDefault("vertex.location", "us-central1")
	v.SetDefault("vertex.timeout_secs", 120)
	v.SetDefault("models.claim", "gemini-2.0-flash-001")
	v.SetDefault("models.invoice", "gemini-2.0-flash-001")
	v.SetDefault("models.ebupot", "gemini-2.0-flash-001")
	v.SetDefault("models.hotel_tags", "gemini-2.0-flash")
	v.SetDefault("models.exchange", "gemini-2.0-flash")
	v.SetDefault("models.trip", "gemini-2.0-flash")
	v.SetDefault("models.tax", "gemini-2.0-flash")
	v.SetDefault("claims.workers", 10)
	v.SetDefault("claims.max_upload_mb", 20)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.job_workers", 2)
	v.SetDefault("server.queue_size", 100)
	v.SetDefault("search.location", "global")
	v.SetDefault("exchange.base_url", "https://api.frankfurter.app")
	v.SetDefault("exchange.timeout_secs", 10)
	v.SetDefault("exchange.max_rounds", 5)
	v.SetDefault("hotel.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/100.0.4896.127 Safari/537.36")
	v.SetDefault("hotel.referer", "https://www.jalan.net/")
	v.SetDefault("hotel.max_images", 16)
	v.SetDefault("trip.weather", "29 C with 5% precipitation")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	if c.Claims.Workers < 1 {
		return eris.Errorf("config: claims.workers must be at least 1, got %d", c.Claims.Workers)
	}
	if c.Vertex.TimeoutSecs < 1 {
		return eris.Errorf("config: vertex.timeout_secs must be at least 1, got %d", c.Vertex.TimeoutSecs)
	}
	if c.Server.JobWorkers < 1 {
		return eris.Errorf("config: server.job_workers must be at least 1, got %d", c.Server.JobWorkers)
	}
	return nil
}

// RequireProject returns an error when no Google Cloud project is configured.
func (c *Config) RequireProject() error {
	if c.Vertex.ProjectID == "" {
		return eris.New("config: vertex.project_id is not set (PROJECT_ID or DEMOS_VERTEX_PROJECT_ID)")
	}
	return nil
}
