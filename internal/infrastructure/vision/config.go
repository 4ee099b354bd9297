package vision

import (
	"errors"
	"strings"
)

// Config — параметры движка инспекции.
// Валидируется один раз при создании движка: неверная конфигурация —
// фатальная ошибка запуска, а не ошибка обработки изображения.
type Config struct {
	// Порог аномальности: балл выше порога означает NG.
	AnomalyThreshold float64

	// Включение отдельных детекторов.
	EnableCrackDetector   bool
	EnableHoleDetector    bool
	EnableAnomalyDetector bool

	// Детектор трещин.
	CrackMinLength           int     // минимальная длина трещины, пиксели
	CrackMaxWidth            int     // максимальная ширина трещины, пиксели
	CrackConfidenceThreshold float64 // минимальная уверенность для отчёта

	// Детектор отверстий.
	HoleMinArea              int     // минимальная площадь, пиксели²
	HoleMaxArea              int     // максимальная площадь, пиксели²
	HoleCircularityThreshold float64 // минимальная округлость, 0-1

	// Предобработка: 0 означает исходный размер.
	ResizeWidth  int
	ResizeHeight int

	// Зарезервировано: текущая реализация работает только на CPU.
	UseGPU bool
}

// DefaultConfig возвращает конфигурацию с рабочими значениями по умолчанию.
func DefaultConfig() Config {
	return Config{
		AnomalyThreshold:         0.5,
		EnableCrackDetector:      true,
		EnableHoleDetector:       true,
		EnableAnomalyDetector:    true,
		CrackMinLength:           20,
		CrackMaxWidth:            5,
		CrackConfidenceThreshold: 0.7,
		HoleMinArea:              50,
		HoleMaxArea:              5000,
		HoleCircularityThreshold: 0.6,
	}
}

// Validate проверяет параметры и возвращает все найденные проблемы разом.
func (c Config) Validate() error {
	var problems []string

	if c.AnomalyThreshold < 0.0 || c.AnomalyThreshold > 1.0 {
		problems = append(problems, "anomaly threshold must be between 0.0 and 1.0")
	}
	if c.CrackMinLength <= 0 {
		problems = append(problems, "crack min length must be positive")
	}
	if c.CrackMaxWidth <= 0 {
		problems = append(problems, "crack max width must be positive")
	}
	if c.CrackConfidenceThreshold < 0.0 || c.CrackConfidenceThreshold > 1.0 {
		problems = append(problems, "crack confidence threshold must be between 0.0 and 1.0")
	}
	if c.HoleMinArea <= 0 {
		problems = append(problems, "hole min area must be positive")
	}
	if c.HoleMaxArea < c.HoleMinArea {
		problems = append(problems, "hole max area must be >= hole min area")
	}
	if c.HoleCircularityThreshold < 0.0 || c.HoleCircularityThreshold > 1.0 {
		problems = append(problems, "hole circularity threshold must be between 0.0 and 1.0")
	}
	if c.ResizeWidth < 0 || c.ResizeHeight < 0 {
		problems = append(problems, "resize dimensions must be non-negative")
	}

	if len(problems) > 0 {
		return errors.New("invalid vision config: " + strings.Join(problems, "; "))
	}
	return nil
}
