package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is frozen after Load
// and threaded through component constructors.
type Config struct {
	Input   InputConfig   `yaml:"input" mapstructure:"input"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Scraper ScraperConfig `yaml:"scraper" mapstructure:"scraper"`
	LLM     LLMConfig     `yaml:"llm" mapstructure:"llm"`
	Phone   PhoneConfig   `yaml:"phone" mapstructure:"phone"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// InputConfig configures input table reading.
type InputConfig struct {
	FilePath               string `yaml:"file_path" mapstructure:"file_path"`
	ProfileName            string `yaml:"profile_name" mapstructure:"profile_name"`
	RowProcessingRange     string `yaml:"row_processing_range" mapstructure:"row_processing_range"`
	ConsecutiveEmptyToStop int    `yaml:"consecutive_empty_rows_to_stop" mapstructure:"consecutive_empty_rows_to_stop"`
}

// OutputConfig configures report and artifact layout.
type OutputConfig struct {
	BaseDir               string `yaml:"base_dir" mapstructure:"base_dir"`
	ExcelFileNameTemplate string `yaml:"excel_file_name_template" mapstructure:"excel_file_name_template"`
	FilenameCompanyMaxLen int    `yaml:"filename_company_name_max_len" mapstructure:"filename_company_name_max_len"`
}

// ScraperConfig configures canonicalization, fetching, and the crawl loop.
type ScraperConfig struct {
	UserAgent          string        `yaml:"user_agent" mapstructure:"user_agent"`
	PageTimeout        time.Duration `yaml:"page_timeout" mapstructure:"page_timeout"`
	NavigationTimeout  time.Duration `yaml:"navigation_timeout" mapstructure:"navigation_timeout"`
	NetworkIdleTimeout time.Duration `yaml:"network_idle_timeout" mapstructure:"network_idle_timeout"` // 0 disables
	MaxRetries         int           `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelay         time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
	BrowserPoolSize    int           `yaml:"browser_pool_size" mapstructure:"browser_pool_size"`
	HostRequestsPerSec float64       `yaml:"host_requests_per_sec" mapstructure:"host_requests_per_sec"`

	TargetLinkKeywords       []string `yaml:"target_link_keywords" mapstructure:"target_link_keywords"`
	CriticalPriorityKeywords []string `yaml:"critical_priority_keywords" mapstructure:"critical_priority_keywords"`
	HighPriorityKeywords     []string `yaml:"high_priority_keywords" mapstructure:"high_priority_keywords"`
	MaxKeywordPathSegments   int      `yaml:"max_keyword_path_segments" mapstructure:"max_keyword_path_segments"`
	ExcludeLinkPathPatterns  []string `yaml:"exclude_link_path_patterns" mapstructure:"exclude_link_path_patterns"`

	MaxPagesPerDomain              int `yaml:"max_pages_per_domain" mapstructure:"max_pages_per_domain"` // 0 = unlimited
	MaxDepthInternalLinks          int `yaml:"max_depth_internal_links" mapstructure:"max_depth_internal_links"`
	MinScoreToQueue                int `yaml:"min_score_to_queue" mapstructure:"min_score_to_queue"`
	ScoreThresholdForLimitBypass   int `yaml:"score_threshold_for_limit_bypass" mapstructure:"score_threshold_for_limit_bypass"`
	MaxHighPriorityPagesAfterLimit int `yaml:"max_high_priority_pages_after_limit" mapstructure:"max_high_priority_pages_after_limit"`

	URLProbingTLDs          []string `yaml:"url_probing_tlds" mapstructure:"url_probing_tlds"`
	EnableDNSErrorFallbacks bool     `yaml:"enable_dns_error_fallbacks" mapstructure:"enable_dns_error_fallbacks"`

	RespectRobotsTxt   bool   `yaml:"respect_robots_txt" mapstructure:"respect_robots_txt"`
	RobotsTxtUserAgent string `yaml:"robots_txt_user_agent" mapstructure:"robots_txt_user_agent"`

	SnippetChars                    int `yaml:"snippet_chars" mapstructure:"snippet_chars"`
	MaxIdenticalNumbersPerPageToLLM int `yaml:"max_identical_numbers_per_page_to_llm" mapstructure:"max_identical_numbers_per_page_to_llm"`
}

// LLMConfig configures the extraction model.
type LLMConfig struct {
	APIKey                     string  `yaml:"api_key" mapstructure:"api_key"`
	ModelName                  string  `yaml:"model_name" mapstructure:"model_name"`
	Temperature                float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens                  int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	PromptTemplatePath         string  `yaml:"prompt_template_path" mapstructure:"prompt_template_path"`
	MaxRetriesOnNumberMismatch int     `yaml:"max_retries_on_number_mismatch" mapstructure:"max_retries_on_number_mismatch"`
	CandidateChunkSize         int     `yaml:"candidate_chunk_size" mapstructure:"candidate_chunk_size"`
	MaxChunksPerURL            int     `yaml:"max_chunks_per_url" mapstructure:"max_chunks_per_url"`
}

// PhoneConfig configures phone number normalization.
type PhoneConfig struct {
	TargetCountryCodes []string `yaml:"target_country_codes" mapstructure:"target_country_codes"`
	DefaultRegionCode  string   `yaml:"default_region_code" mapstructure:"default_region_code"`
}

// StoreConfig configures the run cache database.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "none"
	Path   string `yaml:"path" mapstructure:"path"`
}

// BatchConfig configures pipeline concurrency.
type BatchConfig struct {
	MaxConcurrentDomains int `yaml:"max_concurrent_domains" mapstructure:"max_concurrent_domains"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level        string `yaml:"level" mapstructure:"level"`
	ConsoleLevel string `yaml:"console_level" mapstructure:"console_level"`
	Format       string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PHONEPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("input.file_path", "data_to_be_inputed.xlsx")
	v.SetDefault("input.profile_name", "default")
	v.SetDefault("input.row_processing_range", "")
	v.SetDefault("input.consecutive_empty_rows_to_stop", 3)

	v.SetDefault("output.base_dir", "output_data")
	v.SetDefault("output.excel_file_name_template", "phone_validation_output_{run_id}.xlsx")
	v.SetDefault("output.filename_company_name_max_len", 25)

	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("scraper.page_timeout", 30*time.Second)
	v.SetDefault("scraper.navigation_timeout", 60*time.Second)
	v.SetDefault("scraper.network_idle_timeout", 5*time.Second)
	v.SetDefault("scraper.max_retries", 2)
	v.SetDefault("scraper.retry_delay", 5*time.Second)
	v.SetDefault("scraper.browser_pool_size", 3)
	v.SetDefault("scraper.host_requests_per_sec", 2.0)
	v.SetDefault("scraper.target_link_keywords", []string{"contact", "about", "support", "impressum", "kontakt", "legal", "privacy", "terms", "hilfe", "datenschutz", "ueber-uns"})
	v.SetDefault("scraper.critical_priority_keywords", []string{"impressum", "kontakt", "contact", "imprint"})
	v.SetDefault("scraper.high_priority_keywords", []string{"legal", "privacy", "terms", "datenschutz", "ueber-uns", "about", "about-us"})
	v.SetDefault("scraper.max_keyword_path_segments", 3)
	v.SetDefault("scraper.exclude_link_path_patterns", []string{"/media/", "/blog/", "/wp-content/", "/video/", "/hilfe-video/"})
	v.SetDefault("scraper.max_pages_per_domain", 20)
	v.SetDefault("scraper.max_depth_internal_links", 1)
	v.SetDefault("scraper.min_score_to_queue", 40)
	v.SetDefault("scraper.score_threshold_for_limit_bypass", 80)
	v.SetDefault("scraper.max_high_priority_pages_after_limit", 5)
	v.SetDefault("scraper.url_probing_tlds", []string{"de", "com", "at", "ch"})
	v.SetDefault("scraper.enable_dns_error_fallbacks", true)
	v.SetDefault("scraper.respect_robots_txt", true)
	v.SetDefault("scraper.robots_txt_user_agent", "*")
	v.SetDefault("scraper.snippet_chars", 300)
	v.SetDefault("scraper.max_identical_numbers_per_page_to_llm", 3)

	v.SetDefault("llm.model_name", "claude-haiku-4-5-20251001")
	v.SetDefault("llm.temperature", 0.5)
	v.SetDefault("llm.max_tokens", 8192)
	v.SetDefault("llm.prompt_template_path", "prompts/phone_validation_v1.txt")
	v.SetDefault("llm.max_retries_on_number_mismatch", 1)
	v.SetDefault("llm.candidate_chunk_size", 10)
	v.SetDefault("llm.max_chunks_per_url", 10)

	v.SetDefault("phone.target_country_codes", []string{"DE", "CH", "AT"})
	v.SetDefault("phone.default_region_code", "DE")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "phone_pipeline_cache.db")

	v.SetDefault("batch.max_concurrent_domains", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console_level", "warn")
	v.SetDefault("log.format", "json")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
