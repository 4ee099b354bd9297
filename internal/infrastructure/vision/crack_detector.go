//go:build gocv
// +build gocv

package vision

import (
	"fmt"
	"image"
	"log"
	"math"

	"gocv.io/x/gocv"

	"defect-bot/internal/domain/entity"
)

// Параметры алгоритма, не выносимые в конфигурацию.
const (
	crackEdgeThresholdLow  = 50
	crackEdgeThresholdHigh = 150
	crackMinAspectRatio    = 3.0
)

// CrackDetector ищет трещины: тонкие вытянутые тёмные контуры.
//
// Алгоритм: Canny → морфологическое закрытие (сшивает разорванные
// сегменты) → внешние контуры → фильтр по длине, ширине и вытянутости.
// Детектор консервативен: пороги стоит подстраивать по реальным
// образцам с производственной линии.
type CrackDetector struct {
	minLength           int
	maxWidth            int
	confidenceThreshold float64
}

// NewCrackDetector создаёт детектор трещин. Неверные параметры —
// ошибка конструирования, единственное место, где детектор может отказать.
func NewCrackDetector(cfg Config) (*CrackDetector, error) {
	if cfg.CrackMinLength <= 0 {
		return nil, fmt.Errorf("crack detector: min length must be positive, got %d", cfg.CrackMinLength)
	}
	if cfg.CrackMaxWidth <= 0 {
		return nil, fmt.Errorf("crack detector: max width must be positive, got %d", cfg.CrackMaxWidth)
	}
	if cfg.CrackConfidenceThreshold < 0.0 || cfg.CrackConfidenceThreshold > 1.0 {
		return nil, fmt.Errorf("crack detector: confidence threshold must be 0.0-1.0, got %v", cfg.CrackConfidenceThreshold)
	}
	return &CrackDetector{
		minLength:           cfg.CrackMinLength,
		maxWidth:            cfg.CrackMaxWidth,
		confidenceThreshold: cfg.CrackConfidenceThreshold,
	}, nil
}

func (d *CrackDetector) Name() string { return "CrackDetector" }

// Detect ищет трещины. Никогда не паникует: любая ошибка — пустой список.
func (d *CrackDetector) Detect(img gocv.Mat) (regions []entity.DefectRegion) {
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

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, crackEdgeThresholdLow, crackEdgeThresholdHigh)

	// Закрытие сшивает разорванные сегменты трещины в один контур.
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()
	closed := gocv.NewMat()
	defer closed.Close()
	gocv.MorphologyEx(edges, &closed, gocv.MorphClose, kernel)

	contours := gocv.FindContours(closed, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	for i := 0; i < contours.Size(); i++ {
		if region, ok := d.analyzeContour(contours.At(i)); ok {
			regions = append(regions, region)
		}
	}

	return regions
}

// Score возвращает 1.0, если найдена хоть одна трещина.
func (d *CrackDetector) Score(img gocv.Mat) float64 {
	if len(d.Detect(img)) > 0 {
		return 1.0
	}
	return 0.0
}

// analyzeContour проверяет контур на критерии трещины.
func (d *CrackDetector) analyzeContour(contour gocv.PointVector) (entity.DefectRegion, bool) {
	rect := gocv.BoundingRect(contour)
	length := max(rect.Dx(), rect.Dy())
	width := min(rect.Dx(), rect.Dy())

	if length < d.minLength {
		return entity.DefectRegion{}, false
	}
	if width > d.maxWidth {
		return entity.DefectRegion{}, false
	}

	aspectRatio := math.Inf(1)
	if width > 0 {
		aspectRatio = float64(length) / float64(width)
	}
	if aspectRatio < crackMinAspectRatio {
		return entity.DefectRegion{}, false
	}

	confidence := d.confidence(contour, length, width, aspectRatio)
	if confidence < d.confidenceThreshold {
		return entity.DefectRegion{}, false
	}

	region, err := entity.NewDefectRegion(
		rect.Min.X, rect.Min.Y, rect.Dx(), rect.Dy(),
		"crack", confidence, d.Name(),
	)
	if err != nil {
		log.Printf("%s: %v", d.Name(), err)
		return entity.DefectRegion{}, false
	}
	return region, true
}

// confidence смешивает вытянутость (вес 0.7) и прямизну (вес 0.3).
// Вытянутость 3.0 даёт 0.6, насыщение до 1.0 к 10.0; прямизна —
// диагональ рамки к периметру контура, обрезанная единицей.
func (d *CrackDetector) confidence(contour gocv.PointVector, length, width int, aspectRatio float64) float64 {
	aspectConfidence := math.Min(1.0, (aspectRatio-3.0)/7.0+0.6)

	perimeter := gocv.ArcLength(contour, true)
	diagonal := math.Hypot(float64(length), float64(width))
	straightness := 0.0
	if diagonal > 0 && perimeter > 0 {
		straightness = math.Min(1.0, diagonal/perimeter)
	}

	confidence := 0.7*aspectConfidence + 0.3*straightness
	return math.Max(0.0, math.Min(1.0, confidence))
}
