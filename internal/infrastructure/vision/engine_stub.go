//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"

	"defect-bot/internal/domain/entity"
	"defect-bot/internal/domain/port"
)

var errNoGoCV = errors.New("gocv build tag is not enabled")

// Engine — заглушка движка инспекции для сборки без OpenCV.
type Engine struct {
	config Config
}

// NewEngine возвращает ошибку, если сборка без тега gocv: приложение
// деградирует до сопоставления без визуальной инспекции.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return nil, errNoGoCV
}

// Inspect возвращает страховочный NG: оценить изображение нечем.
func (e *Engine) Inspect(ctx context.Context, imageData []byte, imageID string) *entity.InspectionResult {
	_ = ctx
	_ = imageData
	result := entity.NewNGResult(1.0, nil)
	result.ImageID = imageID
	result.DetectorsUsed = []string{"ERROR"}
	result.AnomalyThreshold = e.config.AnomalyThreshold
	return result
}

// CropBestRegion возвращает ошибку, если сборка без тега gocv.
func (e *Engine) CropBestRegion(imageData []byte, regions []entity.DefectRegion) ([]byte, error) {
	_ = imageData
	_ = regions
	return nil, errNoGoCV
}

// TrainAnomalyDetector возвращает ошибку, если сборка без тега gocv.
func (e *Engine) TrainAnomalyDetector(okImages [][]byte) error {
	_ = okImages
	return errNoGoCV
}

// SaveMemoryBank возвращает ошибку, если сборка без тега gocv.
func (e *Engine) SaveMemoryBank(path string) error {
	_ = path
	return errNoGoCV
}

// LoadMemoryBank возвращает ошибку, если сборка без тега gocv.
func (e *Engine) LoadMemoryBank(path string) error {
	_ = path
	return errNoGoCV
}

// Проверка реализации интерфейса
var _ port.VisionInspector = (*Engine)(nil)
