package entity

import "time"

// Verdict — итоговое решение инспекции для одного изображения.
type Verdict string

const (
	VerdictOK Verdict = "OK" // дефекты не обнаружены
	VerdictNG Verdict = "NG" // найден дефект или превышен порог аномальности
)

// ModelVersion версия движка инспекции, попадает в аудит.
const ModelVersion = "2.0.0"

// InspectionResult хранит итог инспекции одного изображения.
// Инвариант: Result == NG тогда и только тогда, когда AnomalyScore
// превышает порог или список областей непуст. Результат создаётся
// только через NewOKResult/NewNGResult, чтобы инвариант жил в одном месте.
type InspectionResult struct {
	Result        Verdict        // OK или NG
	AnomalyScore  float64        // 0.0 (норма) .. 1.0 (сильная аномалия)
	DefectRegions []DefectRegion // найденные области дефектов

	// Метаданные для аудита.
	Timestamp        time.Time
	ImageID          string
	ModelVersion     string
	ProcessingTimeMS float64
	DetectorsUsed    []string
	AnomalyThreshold float64
}

// NewOKResult создаёт результат «дефектов нет».
func NewOKResult(anomalyScore float64) *InspectionResult {
	return &InspectionResult{
		Result:       VerdictOK,
		AnomalyScore: anomalyScore,
		Timestamp:    time.Now().UTC(),
		ModelVersion: ModelVersion,
	}
}

// NewNGResult создаёт результат «найден дефект».
func NewNGResult(anomalyScore float64, regions []DefectRegion) *InspectionResult {
	return &InspectionResult{
		Result:        VerdictNG,
		AnomalyScore:  anomalyScore,
		DefectRegions: regions,
		Timestamp:     time.Now().UTC(),
		ModelVersion:  ModelVersion,
	}
}

// DefectCount возвращает число найденных дефектов.
func (r *InspectionResult) DefectCount() int {
	return len(r.DefectRegions)
}

// HasDefects сообщает, есть ли хотя бы один дефект.
func (r *InspectionResult) HasDefects() bool {
	return len(r.DefectRegions) > 0
}

// DefectsByType группирует дефекты по типу.
func (r *InspectionResult) DefectsByType() map[string]int {
	counts := make(map[string]int)
	for _, region := range r.DefectRegions {
		counts[region.DefectType]++
	}
	return counts
}

// Failed сообщает, что конвейер не смог обработать изображение
// (страховочный NG с маркером "ERROR" в списке детекторов).
func (r *InspectionResult) Failed() bool {
	return len(r.DetectorsUsed) == 1 && r.DetectorsUsed[0] == "ERROR"
}
