//go:build gocv
// +build gocv

package vision

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"math"

	"gocv.io/x/gocv"

	"defect-bot/internal/domain/entity"
)

// Параметры алгоритма, не выносимые в конфигурацию.
const (
	holeIntensityThreshold  = 80  // максимальная яркость тёмной области
	holeMaxIntensityStd     = 20  // максимальный разброс яркости внутри контура
	holeConfidenceThreshold = 0.7 // минимальная уверенность для отчёта
)

// HoleDetector ищет отверстия и раковины: тёмные округлые области
// с равномерной яркостью.
//
// Алгоритм: инвертированный порог по яркости → морфологическое
// открытие (убирает шум) → внешние контуры → фильтр по площади,
// округлости и равномерности яркости внутри контура.
type HoleDetector struct {
	minArea              int
	maxArea              int
	circularityThreshold float64
	confidenceThreshold  float64
}

// NewHoleDetector создаёт детектор отверстий. Неверные параметры —
// ошибка конструирования.
func NewHoleDetector(cfg Config) (*HoleDetector, error) {
	if cfg.HoleMinArea <= 0 {
		return nil, fmt.Errorf("hole detector: min area must be positive, got %d", cfg.HoleMinArea)
	}
	if cfg.HoleMaxArea < cfg.HoleMinArea {
		return nil, fmt.Errorf("hole detector: max area %d must be >= min area %d", cfg.HoleMaxArea, cfg.HoleMinArea)
	}
	if cfg.HoleCircularityThreshold < 0.0 || cfg.HoleCircularityThreshold > 1.0 {
		return nil, fmt.Errorf("hole detector: circularity threshold must be 0.0-1.0, got %v", cfg.HoleCircularityThreshold)
	}
	return &HoleDetector{
		minArea:              cfg.HoleMinArea,
		maxArea:              cfg.HoleMaxArea,
		circularityThreshold: cfg.HoleCircularityThreshold,
		confidenceThreshold:  holeConfidenceThreshold,
	}, nil
}

func (d *HoleDetector) Name() string { return "HoleDetector" }

// Detect ищет отверстия. Никогда не паникует: любая ошибка — пустой список.
func (d *HoleDetector) Detect(img gocv.Mat) (regions []entity.DefectRegion) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("%s: detect failed: %v", d.Name(), r)
			regions = nil
		}
	}()

	if !validImage(d.Name(), img) {
		return nil
	}

	gray := toGray(img)
	defer gray.Close()

	// Инвертированный порог: тёмные области становятся белыми.
	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray, &binary, holeIntensityThreshold, 255, gocv.ThresholdBinaryInv)

	// Открытие убирает мелкий шум, похожий на крошечные отверстия.
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(3, 3))
	defer kernel.Close()
	opened := gocv.NewMat()
	defer opened.Close()
	gocv.MorphologyEx(binary, &opened, gocv.MorphOpen, kernel)

	contours := gocv.FindContours(opened, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	for i := 0; i < contours.Size(); i++ {
		if region, ok := d.analyzeContour(contours, i, gray); ok {
			regions = append(regions, region)
		}
	}

	return regions
}

// Score возвращает 1.0, если найдено хоть одно отверстие.
func (d *HoleDetector) Score(img gocv.Mat) float64 {
	if len(d.Detect(img)) > 0 {
		return 1.0
	}
	return 0.0
}

// analyzeContour проверяет контур на критерии отверстия.
func (d *HoleDetector) analyzeContour(contours gocv.PointsVector, idx int, gray gocv.Mat) (entity.DefectRegion, bool) {
	contour := contours.At(idx)

	area := gocv.ContourArea(contour)
	if area < float64(d.minArea) || area > float64(d.maxArea) {
		return entity.DefectRegion{}, false
	}

	perimeter := gocv.ArcLength(contour, true)
	if perimeter == 0 {
		return entity.DefectRegion{}, false
	}

	// Округлость: 4π·площадь/периметр². Идеальный круг — 1.0.
	circularity := (4 * math.Pi * area) / (perimeter * perimeter)
	if circularity < d.circularityThreshold {
		return entity.DefectRegion{}, false
	}

	rect := gocv.BoundingRect(contour)

	if !d.uniformIntensity(contours, idx, gray) {
		return entity.DefectRegion{}, false
	}

	confidence := d.confidence(area, circularity)
	if confidence < d.confidenceThreshold {
		return entity.DefectRegion{}, false
	}

	region, err := entity.NewDefectRegion(
		rect.Min.X, rect.Min.Y, rect.Dx(), rect.Dy(),
		"hole", confidence, d.Name(),
	)
	if err != nil {
		log.Printf("%s: %v", d.Name(), err)
		return entity.DefectRegion{}, false
	}
	return region, true
}

// uniformIntensity проверяет, что область внутри контура тёмная и
// равномерная по яркости — характерный признак отверстия.
func (d *HoleDetector) uniformIntensity(contours gocv.PointsVector, idx int, gray gocv.Mat) bool {
	mask := gocv.NewMatWithSize(gray.Rows(), gray.Cols(), gocv.MatTypeCV8U)
	defer mask.Close()
	gocv.DrawContours(&mask, contours, idx, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)

	mean, std := matMeanStdWithMask(gray, mask)
	if mean > holeIntensityThreshold {
		return false
	}
	if std > holeMaxIntensityStd {
		return false
	}
	return true
}

// confidence смешивает округлость (вес 0.8) и близость площади к середине
// допустимого диапазона (вес 0.2). Округлость линейно пересчитывается
// из [порог, 1.0] в [0, 1].
func (d *HoleDetector) confidence(area, circularity float64) float64 {
	circularityConf := 1.0
	if circularityRange := 1.0 - d.circularityThreshold; circularityRange > 0 {
		circularityConf = (circularity - d.circularityThreshold) / circularityRange
	}

	midArea := float64(d.minArea+d.maxArea) / 2
	areaDeviation := math.Abs(area-midArea) / midArea
	areaConf := math.Max(0.0, 1.0-areaDeviation)

	confidence := 0.8*circularityConf + 0.2*areaConf
	return math.Max(0.0, math.Min(1.0, confidence))
}
