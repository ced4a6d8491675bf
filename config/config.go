package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is where Load looks when no path is given
const DefaultConfigPath = "config/config.yaml"

// Config holds all application configuration
type Config struct {
	Universe   UniverseConfig   `yaml:"universe"`
	MarketData MarketDataConfig `yaml:"market_data"`
	Alpaca     AlpacaConfig     `yaml:"alpaca"`
	NewsAPI    NewsAPIConfig    `yaml:"news_api"`
	LLM        LLMConfig        `yaml:"llm"`
	Sheets     SheetsConfig     `yaml:"google_sheets"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	HTTP       HTTPConfig       `yaml:"http"`
	Log        LogConfig        `yaml:"log"`
}

// UniverseConfig lists the instruments screened each run
type UniverseConfig struct {
	Stocks     []string          `yaml:"uk_stocks"`
	TestStocks []string          `yaml:"test_stocks"`
	Sectors    map[string]string `yaml:"sectors"`
}

// MarketDataConfig selects and tunes the series fetcher
type MarketDataConfig struct {
	Provider          string  `yaml:"provider"` // yahoo or alpaca
	LookbackDays      int     `yaml:"lookback_days"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	CacheTTLMinutes   int     `yaml:"cache_ttl_minutes"`
}

// AlpacaConfig holds Alpaca API configuration
type AlpacaConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
}

// NewsAPIConfig holds NewsAPI configuration
type NewsAPIConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	LookbackDays int    `yaml:"lookback_days"`
	PageSize     int    `yaml:"page_size"`
	SampleSize   int    `yaml:"sample_size"`
	Headlines    int    `yaml:"headlines"`
}

// LLMConfig holds ranking model configuration
type LLMConfig struct {
	Provider       string  `yaml:"provider"` // groq, openai or bedrock
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`
	BedrockRegion  string  `yaml:"bedrock_region"`
	BedrockModelID string  `yaml:"bedrock_model_id"`
}

// SheetsConfig holds Google Sheets publishing configuration
type SheetsConfig struct {
	CredentialsPath string `yaml:"credentials_path"`
	SpreadsheetID   string `yaml:"sheet_id"`
	WorksheetName   string `yaml:"worksheet_name"`
}

// AnalysisConfig holds per-run analysis limits
type AnalysisConfig struct {
	MaxConcurrent     int `yaml:"max_concurrent"`
	SymbolTimeoutSec  int `yaml:"symbol_timeout_seconds"`
	RankingTimeoutSec int `yaml:"ranking_timeout_seconds"`
	PublishTimeoutSec int `yaml:"publish_timeout_seconds"`
	TopPicks          int `yaml:"top_picks"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds the market data cache configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ScheduleConfig holds the serve-mode cron expression (with seconds field)
type ScheduleConfig struct {
	Cron string `yaml:"cron"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Addr               string `yaml:"addr"`
	CORSAllowedOrigins string `yaml:"cors_allowed_origins"`
}

// LogConfig holds logging and tracing configuration
type LogConfig struct {
	Production     bool   `yaml:"production"`
	Level          string `yaml:"level"`
	TracingEnabled bool   `yaml:"tracing_enabled"`
}

// DefaultUKStocks is the universe screened when the config file names none
var DefaultUKStocks = []string{
	"AAPL.L", "BARC.L", "BP.L", "BT-A.L", "LLOY.L", "HSBA.L", "VOD.L", "RIO.L",
	"SHEL.L", "AZN.L", "ULVR.L", "GSK.L", "DGE.L", "NG.L", "REL.L", "LSEG.L",
	"NWG.L", "STAN.L", "PRU.L", "FLTR.L", "IAG.L", "GLEN.L", "JD.L", "MNG.L",
	"PSON.L", "RKT.L", "TSCO.L", "WTB.L", "INF.L", "ANTO.L",
}

// DefaultTestStocks is the reduced universe used by test runs
var DefaultTestStocks = []string{"AAPL.L", "BARC.L", "BP.L", "LLOY.L", "VOD.L"}

// Defaults returns a Config populated with built-in defaults only
func Defaults() *Config {
	return &Config{
		Universe: UniverseConfig{
			Stocks:     append([]string(nil), DefaultUKStocks...),
			TestStocks: append([]string(nil), DefaultTestStocks...),
			Sectors:    map[string]string{},
		},
		MarketData: MarketDataConfig{
			Provider:          "yahoo",
			LookbackDays:      100,
			RequestsPerSecond: 2,
			Burst:             2,
			CacheTTLMinutes:   60,
		},
		Alpaca: AlpacaConfig{
			BaseURL: "https://paper-api.alpaca.markets",
		},
		NewsAPI: NewsAPIConfig{
			BaseURL:      "https://newsapi.org/v2",
			LookbackDays: 7,
			PageSize:     100,
			SampleSize:   10,
			Headlines:    3,
		},
		LLM: LLMConfig{
			Provider:       "groq",
			BaseURL:        "https://api.groq.com/openai/v1",
			Model:          "llama3-8b-8192",
			MaxTokens:      4000,
			Temperature:    0.1,
			BedrockRegion:  "us-east-1",
			BedrockModelID: "anthropic.claude-3-haiku-20240307-v1:0",
		},
		Sheets: SheetsConfig{
			CredentialsPath: "credentials.json",
			WorksheetName:   "Daily_Stock_Picks",
		},
		Analysis: AnalysisConfig{
			MaxConcurrent:     4,
			SymbolTimeoutSec:  30,
			RankingTimeoutSec: 120,
			PublishTimeoutSec: 60,
			TopPicks:          10,
		},
		Schedule: ScheduleConfig{
			Cron: "0 30 7 * * 1-5",
		},
		HTTP: HTTPConfig{
			Addr:               ":8080",
			CORSAllowedOrigins: "*",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if it
// exists), then environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		path = DefaultConfigPath
	}
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// An explicit empty list in the file still means "use the defaults".
	if len(c.Universe.Stocks) == 0 {
		c.Universe.Stocks = append([]string(nil), DefaultUKStocks...)
	}
	if len(c.Universe.TestStocks) == 0 {
		c.Universe.TestStocks = append([]string(nil), DefaultTestStocks...)
	}
	if c.Universe.Sectors == nil {
		c.Universe.Sectors = map[string]string{}
	}
	return nil
}

func (c *Config) applyEnv() {
	c.LLM.Provider = strings.ToLower(getEnvString("LLM_PROVIDER", c.LLM.Provider))
	c.LLM.APIKey = getEnvString("LLM_API_KEY", getEnvString("GROQ_API_KEY", c.LLM.APIKey))
	c.LLM.BaseURL = getEnvString("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = getEnvString("LLM_MODEL", c.LLM.Model)
	c.LLM.MaxTokens = getEnvInt("LLM_MAX_TOKENS", c.LLM.MaxTokens)
	c.LLM.BedrockRegion = getEnvString("AWS_REGION", c.LLM.BedrockRegion)
	c.LLM.BedrockModelID = getEnvString("BEDROCK_MODEL_ID", c.LLM.BedrockModelID)

	c.NewsAPI.APIKey = getEnvString("NEWS_API_KEY", c.NewsAPI.APIKey)

	c.Sheets.SpreadsheetID = getEnvString("GOOGLE_SHEET_ID", c.Sheets.SpreadsheetID)
	c.Sheets.CredentialsPath = getEnvString("GOOGLE_CREDENTIALS_PATH", c.Sheets.CredentialsPath)
	c.Sheets.WorksheetName = getEnvString("GOOGLE_WORKSHEET_NAME", c.Sheets.WorksheetName)

	c.MarketData.Provider = strings.ToLower(getEnvString("MARKET_DATA_PROVIDER", c.MarketData.Provider))
	c.MarketData.LookbackDays = getEnvInt("MARKET_DATA_LOOKBACK_DAYS", c.MarketData.LookbackDays)
	c.Alpaca.APIKey = getEnvString("ALPACA_API_KEY", c.Alpaca.APIKey)
	c.Alpaca.APISecret = getEnvString("ALPACA_API_SECRET", c.Alpaca.APISecret)
	c.Alpaca.BaseURL = getEnvString("ALPACA_BASE_URL", c.Alpaca.BaseURL)

	c.Analysis.MaxConcurrent = getEnvInt("ANALYSIS_MAX_CONCURRENT", c.Analysis.MaxConcurrent)

	c.Database.URL = getEnvString("DATABASE_URL", c.Database.URL)
	c.Redis.Addr = getEnvString("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnvString("REDIS_PASSWORD", c.Redis.Password)

	c.Schedule.Cron = getEnvString("SCHEDULE_CRON", c.Schedule.Cron)
	c.HTTP.Addr = getEnvString("HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.CORSAllowedOrigins = getEnvString("CORS_ALLOWED_ORIGINS", c.HTTP.CORSAllowedOrigins)

	c.Log.Level = getEnvString("LOG_LEVEL", c.Log.Level)
	c.Log.Production = getEnvBool("LOG_PRODUCTION", c.Log.Production)
	c.Log.TracingEnabled = getEnvBool("TRACING_ENABLED", c.Log.TracingEnabled)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.Universe.Stocks) == 0 {
		return fmt.Errorf("universe.uk_stocks must not be empty")
	}

	switch c.MarketData.Provider {
	case "yahoo", "alpaca":
	default:
		return fmt.Errorf("market_data.provider must be yahoo or alpaca, got %q", c.MarketData.Provider)
	}

	switch c.LLM.Provider {
	case "groq", "openai", "bedrock":
	default:
		return fmt.Errorf("llm.provider must be groq, openai or bedrock, got %q", c.LLM.Provider)
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %.2f", c.LLM.Temperature)
	}

	if c.MarketData.LookbackDays <= 0 {
		return fmt.Errorf("market_data.lookback_days must be positive, got %d", c.MarketData.LookbackDays)
	}
	if c.Analysis.MaxConcurrent <= 0 {
		return fmt.Errorf("analysis.max_concurrent must be positive, got %d", c.Analysis.MaxConcurrent)
	}
	if c.Analysis.TopPicks <= 0 {
		return fmt.Errorf("analysis.top_picks must be positive, got %d", c.Analysis.TopPicks)
	}
	if c.Analysis.SymbolTimeoutSec <= 0 || c.Analysis.RankingTimeoutSec <= 0 || c.Analysis.PublishTimeoutSec <= 0 {
		return fmt.Errorf("analysis timeouts must be positive")
	}

	return nil
}

// HasDatabase returns true if database configuration is available
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasRedis returns true if a market data cache is configured
func (c *Config) HasRedis() bool {
	return c.Redis.Addr != ""
}

// HasLLM returns true if the configured ranking provider has credentials
func (c *Config) HasLLM() bool {
	if c.LLM.Provider == "bedrock" {
		return c.LLM.BedrockModelID != ""
	}
	return c.LLM.APIKey != ""
}

// HasAlpaca returns true if Alpaca configuration is available
func (c *Config) HasAlpaca() bool {
	return c.Alpaca.APIKey != "" && c.Alpaca.APISecret != ""
}

// HasNewsAPI returns true if NewsAPI configuration is available
func (c *Config) HasNewsAPI() bool {
	return c.NewsAPI.APIKey != ""
}

// HasSheets returns true if a target spreadsheet is configured
func (c *Config) HasSheets() bool {
	return c.Sheets.SpreadsheetID != ""
}

// SectorFor returns the configured sector for a symbol, or "Unknown"
func (c *Config) SectorFor(symbol string) string {
	if s, ok := c.Universe.Sectors[symbol]; ok && s != "" {
		return s
	}
	return "Unknown"
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	cfg := Defaults()
	cfg.Sheets.CredentialsPath = ""
	cfg.Analysis.SymbolTimeoutSec = 5
	cfg.Analysis.RankingTimeoutSec = 5
	cfg.Analysis.PublishTimeoutSec = 5
	return cfg
}
