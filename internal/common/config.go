package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Store      StoreConfig
	PDF        PDFConfig
	OCR        OCRConfig
	Clustering ClusteringConfig
	Extraction ExtractionConfig
}

// StoreConfig holds persistence-related configuration
type StoreConfig struct {
	DSN              string
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// PDFConfig holds the external PDF tool configuration
type PDFConfig struct {
	Pdftotext string
	Pdftoppm  string
	Pdfinfo   string
	DPI       int
	MaxPages  int
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract   string
	TessdataDir string
	Language    string
	PSM         int
}

// ClusteringConfig holds clustering tuning parameters
type ClusteringConfig struct {
	MaxFeatures      int
	MinDocFreq       int
	StopDistance     float64
	CollapseDistance float64
}

// ExtractionConfig holds extraction batch parameters
type ExtractionConfig struct {
	Workers       int
	RegionTimeout time.Duration
	TemplatesDir  string
	TemplateStore string // "db" or "fs"
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Store: StoreConfig{
			DSN:              getEnv("DB_URL", "file:docmapper.db"),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		PDF: PDFConfig{
			Pdftotext: getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:  getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Pdfinfo:   getEnv("PDFINFO_BIN", "pdfinfo"),
			DPI:       getEnvAsInt("PDF_DPI", 300),
			MaxPages:  getEnvAsInt("PDF_MAX_PAGES", 0),
		},
		OCR: OCRConfig{
			Tesseract:   getEnv("TESSERACT_BIN", "tesseract"),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
			Language:    getEnv("OCR_LANGUAGE", "swe+eng"),
			PSM:         getEnvAsInt("OCR_PSM", 6),
		},
		Clustering: ClusteringConfig{
			MaxFeatures:      getEnvAsInt("CLUSTER_MAX_FEATURES", 500),
			MinDocFreq:       getEnvAsInt("CLUSTER_MIN_DOC_FREQ", 2),
			StopDistance:     getEnvAsFloat64("CLUSTER_STOP_DISTANCE", 0.95),
			CollapseDistance: getEnvAsFloat64("CLUSTER_COLLAPSE_DISTANCE", 0.15),
		},
		Extraction: ExtractionConfig{
			Workers:       getEnvAsInt("EXTRACT_WORKERS", 4),
			RegionTimeout: getEnvAsDuration("EXTRACT_REGION_TIMEOUT", 30*time.Second),
			TemplatesDir:  getEnv("TEMPLATES_DIR", "templates"),
			TemplateStore: getEnv("TEMPLATE_STORE", "db"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Store.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Extraction.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "EXTRACT_WORKERS must be positive", ErrInvalidInput)
	}
	if s := c.Extraction.TemplateStore; s != "db" && s != "fs" {
		return NewAppError("CONFIG_ERROR", "TEMPLATE_STORE must be db or fs", ErrInvalidInput)
	}
	return nil
}
