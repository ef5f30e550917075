package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	LLM      LLMConfig
	Analysis AnalysisConfig
	Redis    RedisConfig
	SQLite   SQLiteConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host              string
	Port              int
	ReadTimeout       int
	WriteTimeout      int
	BodyLimit         int
	RequestsPerMinute int
}

type LLMConfig struct {
	Provider    string
	Model       string
	APIKey      string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

// AnalysisConfig carries every threshold the analytics engines and the
// fact-pack builder gate on. It is passed explicitly into the builder and
// the confidence gate; nothing reads viper at analysis time.
type AnalysisConfig struct {
	MinOffers            int
	MinRequisitions      int
	MinHiresForCohort    int
	MinStageSamples      int
	MinLoadBucketHires   int
	MinLoadTotalHires    int
	StalledDaysMin       int
	StalledDaysMax       int
	ZombieDays           int
	SlowFillDays         int
	FastFillDays         int
	MaxInsights          int
	FallbackOnError      bool
	CacheEnabled         bool
	CacheTTLSec          int
	MaxRecordsPerRequest int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type SQLiteConfig struct {
	Path string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/pipeline-velocity")

	viper.SetEnvPrefix("PIPELINE_VELOCITY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// DefaultAnalysis returns the threshold set used when no configuration is
// loaded, e.g. in tests and library embedders.
func DefaultAnalysis() AnalysisConfig {
	return AnalysisConfig{
		MinOffers:            5,
		MinRequisitions:      5,
		MinHiresForCohort:    6,
		MinStageSamples:      3,
		MinLoadBucketHires:   3,
		MinLoadTotalHires:    10,
		StalledDaysMin:       14,
		StalledDaysMax:       30,
		ZombieDays:           30,
		SlowFillDays:         60,
		FastFillDays:         30,
		MaxInsights:          7,
		FallbackOnError:      true,
		CacheEnabled:         false,
		CacheTTLSec:          300,
		MaxRecordsPerRequest: 50000,
	}
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 20971520)
	viper.SetDefault("server.requestsPerMinute", 60)

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.maxTokens", 2048)
	viper.SetDefault("llm.timeoutSec", 45)

	def := DefaultAnalysis()
	viper.SetDefault("analysis.minOffers", def.MinOffers)
	viper.SetDefault("analysis.minRequisitions", def.MinRequisitions)
	viper.SetDefault("analysis.minHiresForCohort", def.MinHiresForCohort)
	viper.SetDefault("analysis.minStageSamples", def.MinStageSamples)
	viper.SetDefault("analysis.minLoadBucketHires", def.MinLoadBucketHires)
	viper.SetDefault("analysis.minLoadTotalHires", def.MinLoadTotalHires)
	viper.SetDefault("analysis.stalledDaysMin", def.StalledDaysMin)
	viper.SetDefault("analysis.stalledDaysMax", def.StalledDaysMax)
	viper.SetDefault("analysis.zombieDays", def.ZombieDays)
	viper.SetDefault("analysis.slowFillDays", def.SlowFillDays)
	viper.SetDefault("analysis.fastFillDays", def.FastFillDays)
	viper.SetDefault("analysis.maxInsights", def.MaxInsights)
	viper.SetDefault("analysis.fallbackOnError", def.FallbackOnError)
	viper.SetDefault("analysis.cacheEnabled", def.CacheEnabled)
	viper.SetDefault("analysis.cacheTTLSec", def.CacheTTLSec)
	viper.SetDefault("analysis.maxRecordsPerRequest", def.MaxRecordsPerRequest)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("sqlite.path", "./data/pipeline_velocity.db")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
