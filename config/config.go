package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config хранит настройки приложения из переменных окружения.
type Config struct {
	TelegramToken  string
	DatabasePath   string
	EmbeddingURL   string
	MemoryBankPath string

	// Пороги решения при сопоставлении с профилями.
	SimilarityThreshold float64
	MarginThreshold     float64
	OKThreshold         float64
	ImageWeight         float64
	TextWeight          float64
	TopK                int

	// Двухэтапный конвейер инспекции.
	EnableVisionPipeline bool
	MatchOnOK            bool // запускать сопоставление даже при вердикте OK

	// Параметры движка инспекции.
	AnomalyThreshold         float64
	EnableCrackDetector      bool
	EnableHoleDetector       bool
	EnableAnomalyDetector    bool
	CrackMinLength           int
	CrackMaxWidth            int
	CrackConfidenceThreshold float64
	HoleMinArea              int
	HoleMaxArea              int
	HoleCircularityThreshold float64
	ResizeWidth              int
	ResizeHeight             int
}

// Load читает конфигурацию из окружения и .env файла.
func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		DatabasePath:   envString("DATABASE_PATH", "defects.db"),
		EmbeddingURL:   envString("EMBEDDING_URL", "http://localhost:8100"),
		MemoryBankPath: os.Getenv("MEMORY_BANK_PATH"),

		SimilarityThreshold: envFloat("SIMILARITY_THRESHOLD", 0.6),
		MarginThreshold:     envFloat("MARGIN_THRESHOLD", 0.05),
		OKThreshold:         envFloat("OK_THRESHOLD", 0.8),
		ImageWeight:         envFloat("IMAGE_WEIGHT", 0.6),
		TextWeight:          envFloat("TEXT_WEIGHT", 0.4),
		TopK:                envInt("TOP_K", 3),

		EnableVisionPipeline: envBool("ENABLE_VISION_PIPELINE", true),
		MatchOnOK:            envBool("VISION_MATCH_ON_OK", false),

		AnomalyThreshold:         envFloat("VISION_ANOMALY_THRESHOLD", 0.5),
		EnableCrackDetector:      envBool("ENABLE_CRACK_DETECTOR", true),
		EnableHoleDetector:       envBool("ENABLE_HOLE_DETECTOR", true),
		EnableAnomalyDetector:    envBool("ENABLE_ANOMALY_DETECTOR", false),
		CrackMinLength:           envInt("CRACK_MIN_LENGTH", 20),
		CrackMaxWidth:            envInt("CRACK_MAX_WIDTH", 5),
		CrackConfidenceThreshold: envFloat("CRACK_CONFIDENCE_THRESHOLD", 0.7),
		HoleMinArea:              envInt("HOLE_MIN_AREA", 50),
		HoleMaxArea:              envInt("HOLE_MAX_AREA", 5000),
		HoleCircularityThreshold: envFloat("HOLE_CIRCULARITY_THRESHOLD", 0.6),
		ResizeWidth:              envInt("VISION_RESIZE_WIDTH", 0),
		ResizeHeight:             envInt("VISION_RESIZE_HEIGHT", 0),
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
