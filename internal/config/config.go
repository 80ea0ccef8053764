package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "taxtrend/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Paths      PathsConfig      `yaml:"paths" envconfig:"PATHS"`
	Input      InputConfig      `yaml:"input" envconfig:"INPUT"`
	Analysis   AnalysisConfig   `yaml:"analysis" envconfig:"ANALYSIS"`
	Formatting FormattingConfig `yaml:"formatting" envconfig:"FORMATTING"`
	Report     ReportConfig     `yaml:"report" envconfig:"REPORT"`
	Pipeline   PipelineConfig   `yaml:"pipeline" envconfig:"PIPELINE"`
	Archive    ArchiveConfig    `yaml:"archive" envconfig:"ARCHIVE"`
	Metrics    MetricsConfig    `yaml:"metrics" envconfig:"METRICS"`
	Tracing    TracingConfig    `yaml:"tracing" envconfig:"TRACING"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
}

// PathsConfig contains file system paths configuration.
// Relative paths are resolved against BaseDir.
type PathsConfig struct {
	BaseDir           string `yaml:"base_dir" envconfig:"BASE_DIR"`
	InputDir          string `yaml:"input_dir" envconfig:"INPUT_DIR" validate:"required"`
	OutputDir         string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	OutputFile        string `yaml:"output_file" envconfig:"OUTPUT_FILE" validate:"required,endswith=.xlsx"`
	MunicipalityTable string `yaml:"municipality_table" envconfig:"MUNICIPALITY_TABLE"`
}

// InputConfig describes the layout of the yearly CSV extracts
type InputConfig struct {
	Delimiter          string `yaml:"delimiter" envconfig:"DELIMITER" validate:"required,len=1"`
	Encoding           string `yaml:"encoding" envconfig:"ENCODING" validate:"oneof=iso-8859-1 windows-1252 utf-8"`
	CurrencySuffix     string `yaml:"currency_suffix" envconfig:"CURRENCY_SUFFIX" validate:"required"`
	YearPattern        string `yaml:"year_pattern" envconfig:"YEAR_PATTERN" validate:"required"`
	RegistrationColumn string `yaml:"registration_column" envconfig:"REGISTRATION_COLUMN" validate:"required"`
	NationalIDColumn   string `yaml:"national_id_column" envconfig:"NATIONAL_ID_COLUMN" validate:"required"`
	LegalNameColumn    string `yaml:"legal_name_column" envconfig:"LEGAL_NAME_COLUMN" validate:"required"`
	MunicipalityColumn string `yaml:"municipality_column" envconfig:"MUNICIPALITY_COLUMN" validate:"required"`
}

// AnalysisConfig holds the thresholds and top-N counts of the trend analysis.
// Percentages are expressed in percent units (5 means 5%).
type AnalysisConfig struct {
	InitialYear                        string  `yaml:"initial_year" envconfig:"INITIAL_YEAR" validate:"required,len=4,numeric"`
	MinimumAnalysisThresholdPercentage float64 `yaml:"minimum_analysis_threshold_percentage" envconfig:"MINIMUM_ANALYSIS_THRESHOLD_PERCENTAGE" validate:"gte=0,lte=100"`
	SignificantPositiveVariation       float64 `yaml:"significant_positive_variation" envconfig:"SIGNIFICANT_POSITIVE_VARIATION" validate:"gte=0"`
	SignificantNegativeVariation       float64 `yaml:"significant_negative_variation" envconfig:"SIGNIFICANT_NEGATIVE_VARIATION"`
	StandardDeviation                  int     `yaml:"standard_deviation" envconfig:"STANDARD_DEVIATION" validate:"gte=0"`
	TopContributors                    int     `yaml:"top_contributors" envconfig:"TOP_CONTRIBUTORS" validate:"gte=0"`
	TopTrends                          int     `yaml:"top_trends" envconfig:"TOP_TRENDS" validate:"gte=0"`
	BlockSpacing                       int     `yaml:"block_spacing" envconfig:"BLOCK_SPACING" validate:"gte=0"`
}

// FormattingConfig is passed through to the report sink
type FormattingConfig struct {
	StartRow         int     `yaml:"start_row" envconfig:"START_ROW" validate:"gte=2"`
	AnalysisStartRow int     `yaml:"analysis_start_row" envconfig:"ANALYSIS_START_ROW" validate:"gte=1"`
	StartTitle1      int     `yaml:"start_title1" envconfig:"START_TITLE1" validate:"gte=1"`
	StartTitle2      int     `yaml:"start_title2" envconfig:"START_TITLE2" validate:"gte=1"`
	StartTitle3      int     `yaml:"start_title3" envconfig:"START_TITLE3" validate:"gte=1"`
	FontNormal       string  `yaml:"font_normal" envconfig:"FONT_NORMAL" validate:"required"`
	FontSizeNormal   float64 `yaml:"font_size_normal" envconfig:"FONT_SIZE_NORMAL" validate:"gt=0"`
	FontBoldNormal   bool    `yaml:"font_style_normal" envconfig:"FONT_STYLE_NORMAL"`
	FontTitle        string  `yaml:"font_title" envconfig:"FONT_TITLE" validate:"required"`
	FontSizeTitle1   float64 `yaml:"font_size_title1" envconfig:"FONT_SIZE_TITLE1" validate:"gt=0"`
	FontSizeTitle2   float64 `yaml:"font_size_title2" envconfig:"FONT_SIZE_TITLE2" validate:"gt=0"`
	FontSizeTitle3   float64 `yaml:"font_size_title3" envconfig:"FONT_SIZE_TITLE3" validate:"gt=0"`
	FontBoldTitle    bool    `yaml:"font_style_bold" envconfig:"FONT_STYLE_BOLD"`
	AccountingFormat string  `yaml:"accounting_format" envconfig:"ACCOUNTING_FORMAT" validate:"required"`
	PercentFormat    string  `yaml:"percent_format" envconfig:"PERCENT_FORMAT" validate:"required"`
}

// ReportConfig toggles optional report outputs
type ReportConfig struct {
	Charts    bool `yaml:"charts" envconfig:"CHARTS"`
	CSVExport bool `yaml:"csv_export" envconfig:"CSV_EXPORT"`
}

// PipelineConfig bounds the per-municipality analysis fan-out
type PipelineConfig struct {
	Workers int `yaml:"workers" envconfig:"WORKERS" validate:"gte=1,lte=64"`
}

// ArchiveConfig enables the SQLite archive of the consolidated records
type ArchiveConfig struct {
	SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
}

// MetricsConfig enables the Prometheus textfile output
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path" envconfig:"TEXTFILE_PATH"`
}

// TracingConfig selects the span exporter
type TracingConfig struct {
	Exporter string `yaml:"exporter" envconfig:"EXPORTER" validate:"oneof=none stdout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// Load builds the configuration from defaults, the YAML file at path (or the
// first file found in the usual locations when path is empty) and TAXTREND_*
// environment variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	configFile := path
	if configFile == "" {
		configFile = getConfigFilePath()
	} else if _, err := os.Stat(configFile); err != nil {
		return nil, apperrors.NewConfigError("config file not readable", err).WithContext("path", configFile)
	}

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err).WithContext("path", configFile)
		}
		if cfg.Paths.BaseDir == "" {
			cfg.Paths.BaseDir = filepath.Dir(configFile)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys absent from the file keep
// their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks struct constraints and returns a CONFIG error listing every
// offending field.
func (c *Config) Validate() error {
	v := validator.New()
	// Use YAML key names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	err := v.Struct(c)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewConfigError("invalid configuration", err)
	}

	fields := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag()))
	}
	return apperrors.NewConfigError("invalid configuration", fmt.Errorf("%s", strings.Join(fields, "; ")))
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"resources/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration. InitialYear has no default and must
// be supplied.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			InputDir:   DefaultInputDir,
			OutputDir:  DefaultOutputDir,
			OutputFile: DefaultOutputFile,
		},
		Input: InputConfig{
			Delimiter:          ";",
			Encoding:           "iso-8859-1",
			CurrencySuffix:     "(R$)",
			YearPattern:        `\d{4}`,
			RegistrationColumn: "Inscricao",
			NationalIDColumn:   "CPF_CNPJ",
			LegalNameColumn:    "Nome",
			MunicipalityColumn: "Nome_Cidade",
		},
		Analysis: AnalysisConfig{
			MinimumAnalysisThresholdPercentage: 0.5,
			SignificantPositiveVariation:       10,
			SignificantNegativeVariation:       10,
			StandardDeviation:                  15,
			TopContributors:                    15,
			TopTrends:                          15,
			BlockSpacing:                       2,
		},
		Formatting: FormattingConfig{
			StartRow:         7,
			AnalysisStartRow: 7,
			StartTitle1:      1,
			StartTitle2:      2,
			StartTitle3:      3,
			FontNormal:       "Arial",
			FontSizeNormal:   10,
			FontTitle:        "Arial",
			FontSizeTitle1:   14,
			FontSizeTitle2:   12,
			FontSizeTitle3:   10,
			FontBoldTitle:    true,
			AccountingFormat: DefaultAccountingFormat,
			PercentFormat:    DefaultPercentFormat,
		},
		Pipeline: PipelineConfig{
			Workers: 4,
		},
		Tracing: TracingConfig{
			Exporter: "none",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/taxtrend.log",
		},
	}
}
