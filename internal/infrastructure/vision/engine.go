//go:build gocv
// +build gocv

package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"gocv.io/x/gocv"

	"defect-bot/internal/domain/entity"
	"defect-bot/internal/domain/port"
)

// cropPadding — отступ вокруг области дефекта при вырезке под сопоставление.
const cropPadding = 10

// Engine координирует детекторы и выносит аудируемый вердикт OK/NG.
//
// Детектор аномалий хранится отдельно от правиловых: он требует обучения
// и, помимо областей, даёт глобальный балл аномальности. Порядок
// правиловых детекторов фиксирован (трещины, затем отверстия).
type Engine struct {
	config    Config
	detectors []Detector
	anomaly   *AnomalyDetector
}

// NewEngine создаёт движок. Неверная конфигурация — фатальная ошибка
// запуска: движок либо собирается целиком, либо не собирается вовсе.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{config: cfg}

	if cfg.EnableCrackDetector {
		d, err := NewCrackDetector(cfg)
		if err != nil {
			return nil, err
		}
		e.detectors = append(e.detectors, d)
	}
	if cfg.EnableHoleDetector {
		d, err := NewHoleDetector(cfg)
		if err != nil {
			return nil, err
		}
		e.detectors = append(e.detectors, d)
	}
	if cfg.EnableAnomalyDetector {
		d, err := NewAnomalyDetector(cfg)
		if err != nil {
			return nil, err
		}
		e.anomaly = d
	}

	log.Printf("vision: engine initialized with %d rule-based detectors (anomaly detector: %v)",
		len(e.detectors), e.anomaly != nil)
	return e, nil
}

// Inspect декодирует байты изображения и инспектирует его.
// Никогда не возвращает ошибку: нечитаемое изображение превращается в
// страховочный NG с баллом 1.0 и маркером "ERROR" — аудит должен
// отличать «дефектов нет» от «не смогли оценить».
func (e *Engine) Inspect(ctx context.Context, imageData []byte, imageID string) *entity.InspectionResult {
	_ = ctx
	start := time.Now()

	mat, err := decodeToMat(imageData)
	if err != nil {
		log.Printf("vision: inspect %q: %v", imageID, err)
		return e.errorResult(imageID, start)
	}
	defer mat.Close()

	return e.inspectMat(mat, imageID, start)
}

// InspectMat инспектирует уже декодированное изображение.
func (e *Engine) InspectMat(img gocv.Mat, imageID string) *entity.InspectionResult {
	return e.inspectMat(img, imageID, time.Now())
}

func (e *Engine) inspectMat(img gocv.Mat, imageID string, start time.Time) (result *entity.InspectionResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("vision: inspect %q panicked: %v", imageID, r)
			result = e.errorResult(imageID, start)
		}
	}()

	if !validImage("VisionEngine", img) {
		return e.errorResult(imageID, start)
	}

	processed, owned := e.preprocess(img)
	if owned {
		defer processed.Close()
	}

	// Этап 1: детектор аномалий — общая оценка качества поверхности.
	// Его отказ деградирует до «нет сигнала аномалии», а не до ошибки
	// конвейера (в отличие от нечитаемого входа выше).
	anomalyScore := 0.0
	var allRegions []entity.DefectRegion
	var detectorNames []string

	if e.anomaly != nil {
		anomalyScore = e.anomaly.Score(processed)
		anomalyRegions := e.anomaly.Detect(processed)
		allRegions = append(allRegions, anomalyRegions...)
		if len(anomalyRegions) > 0 || anomalyScore > 0 {
			detectorNames = append(detectorNames, e.anomaly.Name())
		}
	}

	// Этап 2: правиловые детекторы — конкретные типы дефектов.
	// Отказ одного не мешает остальным.
	for _, detector := range e.detectors {
		regions := detector.Detect(processed)
		allRegions = append(allRegions, regions...)
		if len(regions) > 0 {
			detectorNames = append(detectorNames, detector.Name())
		}
	}

	// Этап 3: дедупликация пересекающихся детекций и отсев областей,
	// вылезших за границы изображения.
	allRegions = suppressDuplicates(allRegions)

	validRegions := allRegions[:0]
	for _, region := range allRegions {
		if region.IsValid(processed.Cols(), processed.Rows()) {
			validRegions = append(validRegions, region)
		}
	}

	// Этап 4: решение OK/NG.
	if anomalyScore > e.config.AnomalyThreshold || len(validRegions) > 0 {
		result = entity.NewNGResult(anomalyScore, validRegions)
	} else {
		result = entity.NewOKResult(anomalyScore)
	}

	result.ImageID = imageID
	result.ProcessingTimeMS = elapsedMS(start)
	result.DetectorsUsed = uniqueStrings(detectorNames)
	result.AnomalyThreshold = e.config.AnomalyThreshold
	return result
}

// CropBestRegion вырезает самую крупную область дефекта и кодирует в JPEG.
func (e *Engine) CropBestRegion(imageData []byte, regions []entity.DefectRegion) ([]byte, error) {
	if len(regions) == 0 {
		return nil, errors.New("no defect regions to crop")
	}

	mat, err := decodeToMat(imageData)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	best := SelectBestRegion(regions, SelectLargest)
	if best == nil {
		return nil, errors.New("failed to select best region")
	}

	cropped, err := CropRegion(mat, best.X, best.Y, best.W, best.H, cropPadding)
	if err != nil {
		return nil, err
	}
	defer cropped.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, cropped)
	if err != nil {
		return nil, fmt.Errorf("encode cropped region: %w", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}

// TrainAnomalyDetector обучает детектор аномалий на OK-образцах.
// Вызов при выключенном детекторе — жёсткая ошибка: это ошибка
// программиста или конфигурации, а не данных.
func (e *Engine) TrainAnomalyDetector(okImages [][]byte) error {
	if e.anomaly == nil {
		return errors.New("anomaly detector not enabled in configuration")
	}

	mats := make([]gocv.Mat, 0, len(okImages))
	defer func() {
		for _, m := range mats {
			m.Close()
		}
	}()

	for i, data := range okImages {
		mat, err := decodeToMat(data)
		if err != nil {
			return fmt.Errorf("decode training image %d: %w", i, err)
		}
		processed, owned := e.preprocess(mat)
		if owned {
			mat.Close()
			mats = append(mats, processed)
		} else {
			mats = append(mats, mat)
		}
	}

	return e.anomaly.Train(mats)
}

// SaveMemoryBank сохраняет банк признаков детектора аномалий.
func (e *Engine) SaveMemoryBank(path string) error {
	if e.anomaly == nil {
		return errors.New("anomaly detector not enabled in configuration")
	}
	return e.anomaly.SaveBank(path)
}

// LoadMemoryBank восстанавливает банк признаков детектора аномалий.
func (e *Engine) LoadMemoryBank(path string) error {
	if e.anomaly == nil {
		return errors.New("anomaly detector not enabled in configuration")
	}
	return e.anomaly.LoadBank(path)
}

// preprocess выполняет настроенный resize. Второе значение — владеет ли
// вызывающий новой матрицей (и должен её закрыть).
func (e *Engine) preprocess(img gocv.Mat) (gocv.Mat, bool) {
	if e.config.ResizeWidth > 0 && e.config.ResizeHeight > 0 {
		resized := gocv.NewMat()
		gocv.Resize(img, &resized, image.Pt(e.config.ResizeWidth, e.config.ResizeHeight), 0, 0, gocv.InterpolationArea)
		return resized, true
	}
	return img, false
}

// errorResult — страховочный NG: вход не удалось оценить.
func (e *Engine) errorResult(imageID string, start time.Time) *entity.InspectionResult {
	result := entity.NewNGResult(1.0, nil)
	result.ImageID = imageID
	result.ProcessingTimeMS = elapsedMS(start)
	result.DetectorsUsed = []string{"ERROR"}
	result.AnomalyThreshold = e.config.AnomalyThreshold
	return result
}

// decodeToMat превращает байты изображения в gocv.Mat.
func decodeToMat(imageData []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	if !mat.Empty() {
		mat.Close()
	}
	return gocv.NewMat(), errors.New("failed to decode image")
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// uniqueStrings убирает повторы, сохраняя порядок первого появления.
func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Проверка реализации интерфейса
var _ port.VisionInspector = (*Engine)(nil)
