package port

import (
	"context"

	"defect-bot/internal/domain/entity"
)

// VisionInspector интерфейс движка визуальной инспекции.
type VisionInspector interface {
	// Inspect анализирует изображение и возвращает вердикт OK/NG.
	// Никогда не возвращает ошибку: нечитаемое изображение превращается
	// в страховочный NG-результат с маркером "ERROR".
	Inspect(ctx context.Context, imageData []byte, imageID string) *entity.InspectionResult

	// CropBestRegion вырезает лучшую область дефекта и кодирует её в JPEG.
	CropBestRegion(imageData []byte, regions []entity.DefectRegion) ([]byte, error)

	// TrainAnomalyDetector обучает детектор аномалий на OK-образцах.
	// Ошибка, если детектор аномалий выключен конфигурацией.
	TrainAnomalyDetector(okImages [][]byte) error
}
