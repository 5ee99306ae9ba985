package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Locator  LocatorConfig  `yaml:"locator" mapstructure:"locator"`
	Extract  ExtractConfig  `yaml:"extract" mapstructure:"extract"`
	Digitize DigitizeConfig `yaml:"digitize" mapstructure:"digitize"`
	OCR      OCRConfig      `yaml:"ocr" mapstructure:"ocr"`
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// LocatorConfig configures the reverse-chronological document prober.
type LocatorConfig struct {
	BaseURL          string   `yaml:"base_url" mapstructure:"base_url"`
	FilenameTemplate string   `yaml:"filename_template" mapstructure:"filename_template"`
	OriginDate       string   `yaml:"origin_date" mapstructure:"origin_date"`
	Encodings        []string `yaml:"encodings" mapstructure:"encodings"`
	DelayMs          int      `yaml:"delay_ms" mapstructure:"delay_ms"`
	TimeoutSecs      int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent        string   `yaml:"user_agent" mapstructure:"user_agent"`
	OutputDir        string   `yaml:"output_dir" mapstructure:"output_dir"`
}

// ExtractConfig configures chart page selection and rasterization.
type ExtractConfig struct {
	OutputDir       string   `yaml:"output_dir" mapstructure:"output_dir"`
	Titles          []string `yaml:"titles" mapstructure:"titles"`
	FooterThreshold float64  `yaml:"footer_threshold" mapstructure:"footer_threshold"`
	Resolution      int      `yaml:"resolution" mapstructure:"resolution"`
	Renderer        string   `yaml:"renderer" mapstructure:"renderer"`
	PdfToPPMPath    string   `yaml:"pdftoppm_path" mapstructure:"pdftoppm_path"`
}

// DigitizeConfig configures chart digitizing.
type DigitizeConfig struct {
	InputDir         string        `yaml:"input_dir" mapstructure:"input_dir"`
	Variants         []string      `yaml:"variants" mapstructure:"variants"`
	MultiVariant     bool          `yaml:"multi_variant" mapstructure:"multi_variant"`
	Priority         []string      `yaml:"priority" mapstructure:"priority"`
	Tolerance        float64       `yaml:"tolerance" mapstructure:"tolerance"`
	MaxOffsetRatio   float64       `yaml:"max_offset_ratio" mapstructure:"max_offset_ratio"`
	Limit            int           `yaml:"limit" mapstructure:"limit"`
	Palette          PaletteConfig `yaml:"palette" mapstructure:"palette"`
	MaxColorDistance float64       `yaml:"max_color_distance" mapstructure:"max_color_distance"`
	SampleOffset     int           `yaml:"sample_offset" mapstructure:"sample_offset"`
	SampleHeight     int           `yaml:"sample_height" mapstructure:"sample_height"`
}

// PaletteConfig holds the reference bar colors as [r, g, b] triples.
type PaletteConfig struct {
	Dark       []int `yaml:"dark" mapstructure:"dark"`
	Light      []int `yaml:"light" mapstructure:"light"`
	Background []int `yaml:"background" mapstructure:"background"`
}

// OCRConfig configures the text-recognition oracle.
type OCRConfig struct {
	Provider  string          `yaml:"provider" mapstructure:"provider"`
	Vision    VisionConfig    `yaml:"vision" mapstructure:"vision"`
	Tesseract TesseractConfig `yaml:"tesseract" mapstructure:"tesseract"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
}

// VisionConfig holds Google Cloud Vision settings.
type VisionConfig struct {
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	AccessToken string `yaml:"access_token" mapstructure:"access_token"`
	Endpoint    string `yaml:"endpoint" mapstructure:"endpoint"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// TesseractConfig holds local Tesseract settings.
type TesseractConfig struct {
	Languages []string `yaml:"languages" mapstructure:"languages"`
}

// RetryConfig holds retry tuning for oracle calls.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// StorageConfig configures the two-tier table storage.
type StorageConfig struct {
	LocalDir      string      `yaml:"local_dir" mapstructure:"local_dir"`
	EstimatesKey  string      `yaml:"estimates_key" mapstructure:"estimates_key"`
	ConfidenceKey string      `yaml:"confidence_key" mapstructure:"confidence_key"`
	RunLogPath    string      `yaml:"run_log_path" mapstructure:"run_log_path"`
	Cloud         CloudConfig `yaml:"cloud" mapstructure:"cloud"`
}

// CloudConfig selects and configures the remote tier. An empty Driver disables it.
type CloudConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Endpoint    string `yaml:"endpoint" mapstructure:"endpoint"`
	Bucket      string `yaml:"bucket" mapstructure:"bucket"`
	Region      string `yaml:"region" mapstructure:"region"`
	AccessKey   string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey   string `yaml:"secret_key" mapstructure:"secret_key"`
	UseSSL      bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Username    string `yaml:"username" mapstructure:"username"`
	Password    string `yaml:"password" mapstructure:"password"`
	Prefix      string `yaml:"prefix" mapstructure:"prefix"`
}

// Enabled reports whether a remote tier is configured.
func (c CloudConfig) Enabled() bool {
	return c.Driver != ""
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultTitles are the known title variants of the bottom-up EPS chart.
var DefaultTitles = []string{
	"Bottom-Up EPS Estimates: Current & Historical",
	"Bottom-up EPS Estimates: Current & Historical",
	"Bottom-Up EPS: Current & Historical",
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ESTIMATES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("locator.base_url", "https://advantage.factset.com/hubfs/Website/Resources%20Section/Research%20Desk/Earnings%20Insight/")
	v.SetDefault("locator.filename_template", "EarningsInsight_{date}.pdf")
	v.SetDefault("locator.origin_date", "2016-01-01")
	v.SetDefault("locator.encodings", []string{"010206", "01022006"})
	v.SetDefault("locator.delay_ms", 50)
	v.SetDefault("locator.timeout_secs", 5)
	v.SetDefault("locator.user_agent", "Mozilla/5.0")
	v.SetDefault("locator.output_dir", "output/pdfs")
	v.SetDefault("extract.output_dir", "output/estimates")
	v.SetDefault("extract.titles", DefaultTitles)
	v.SetDefault("extract.footer_threshold", 700)
	v.SetDefault("extract.resolution", 300)
	v.SetDefault("extract.renderer", "pdftoppm")
	v.SetDefault("extract.pdftoppm_path", "pdftoppm")
	v.SetDefault("digitize.input_dir", "output/estimates")
	v.SetDefault("digitize.variants", []string{"original"})
	v.SetDefault("digitize.multi_variant", false)
	v.SetDefault("digitize.priority", []string{"original", "equalized", "otsu", "denoised", "upscaled"})
	v.SetDefault("digitize.tolerance", 0.005)
	v.SetDefault("digitize.max_offset_ratio", 0.6)
	v.SetDefault("digitize.palette.dark", []int{0, 51, 102})
	v.SetDefault("digitize.palette.light", []int{153, 187, 221})
	v.SetDefault("digitize.palette.background", []int{255, 255, 255})
	v.SetDefault("digitize.max_color_distance", 120)
	v.SetDefault("digitize.sample_offset", 6)
	v.SetDefault("digitize.sample_height", 12)
	v.SetDefault("ocr.provider", "vision")
	v.SetDefault("ocr.vision.endpoint", "https://vision.googleapis.com/v1")
	v.SetDefault("ocr.vision.timeout_secs", 30)
	v.SetDefault("ocr.tesseract.languages", []string{"eng"})
	v.SetDefault("ocr.retry.max_attempts", 3)
	v.SetDefault("ocr.retry.initial_backoff_ms", 500)
	v.SetDefault("ocr.retry.max_backoff_ms", 10000)
	v.SetDefault("storage.local_dir", "output")
	v.SetDefault("storage.estimates_key", "extracted_estimates.csv")
	v.SetDefault("storage.confidence_key", "extracted_estimates_confidence.csv")
	v.SetDefault("storage.run_log_path", "output/estimates.db")
	v.SetDefault("storage.cloud.use_ssl", true)
	v.SetDefault("storage.cloud.region", "auto")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Keys without a default are invisible to Unmarshal unless bound.
	for _, key := range boundKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

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

// boundKeys are settable keys that have no default.
var boundKeys = []string{
	"ocr.vision.api_key",
	"ocr.vision.access_token",
	"storage.cloud.driver",
	"storage.cloud.endpoint",
	"storage.cloud.bucket",
	"storage.cloud.access_key",
	"storage.cloud.secret_key",
	"storage.cloud.database_url",
	"storage.cloud.username",
	"storage.cloud.password",
	"storage.cloud.prefix",
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
