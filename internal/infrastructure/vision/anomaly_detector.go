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

const (
	featureSize    = 256 // сторона изображения для извлечения признаков
	histogramBins  = 8
	minAnomalyArea = 100 // минимальная площадь аномальной компоненты
)

// featureDim — размерность вектора признаков:
// среднее, отклонение, минимум, максимум, гистограмма, градиенты.
const featureDim = 4 + histogramBins + 2

// AnomalyDetector — статистический детектор аномалий по банку признаков
// «нормальных» образцов. Два состояния: необучен (банк nil, нейтральные
// ответы) и обучен (банк построен). Обучение создаёт новый неизменяемый
// банк, поэтому замену обученного детектора можно делать атомарно.
//
// Карта аномальности пока строится по величине градиента — заглушка
// до перехода на патчевые признаки предобученной сети.
type AnomalyDetector struct {
	anomalyThreshold float64
	bank             *MemoryBank
}

// NewAnomalyDetector создаёт необученный детектор аномалий.
func NewAnomalyDetector(cfg Config) (*AnomalyDetector, error) {
	if cfg.AnomalyThreshold < 0.0 || cfg.AnomalyThreshold > 1.0 {
		return nil, fmt.Errorf("anomaly detector: threshold must be 0.0-1.0, got %v", cfg.AnomalyThreshold)
	}
	return &AnomalyDetector{anomalyThreshold: cfg.AnomalyThreshold}, nil
}

func (d *AnomalyDetector) Name() string { return "AnomalyDetector" }

// Trained сообщает, построен ли банк признаков.
func (d *AnomalyDetector) Trained() bool { return d.bank != nil }

// Train строит банк признаков по OK-образцам. Требуется хотя бы одно
// изображение; это ошибка конфигурирования, а не инференса.
func (d *AnomalyDetector) Train(okImages []gocv.Mat) error {
	if len(okImages) == 0 {
		return fmt.Errorf("anomaly detector: need at least 1 OK sample for training")
	}

	features := make([][]float64, 0, len(okImages))
	for i, img := range okImages {
		if !validImage(d.Name(), img) {
			return fmt.Errorf("anomaly detector: training image %d is invalid", i)
		}
		features = append(features, d.extractFeatures(img))
	}

	bank, err := BuildMemoryBank(features)
	if err != nil {
		return fmt.Errorf("anomaly detector: %w", err)
	}

	d.bank = bank
	log.Printf("%s: trained on %d OK samples", d.Name(), bank.NumSamples)
	return nil
}

// SaveBank сохраняет банк признаков в файл.
func (d *AnomalyDetector) SaveBank(path string) error {
	if d.bank == nil {
		return fmt.Errorf("anomaly detector: cannot save untrained detector")
	}
	return d.bank.Save(path)
}

// LoadBank восстанавливает банк из файла со сверкой размерности признаков.
func (d *AnomalyDetector) LoadBank(path string) error {
	bank, err := LoadMemoryBank(path, featureDim)
	if err != nil {
		return fmt.Errorf("anomaly detector: %w", err)
	}
	d.bank = bank
	return nil
}

// Score возвращает аномальность изображения: максимальная z-оценка
// признаков против банка, насыщение на трёх сигмах. Необученный детектор
// отвечает 0.0 — без базовой линии оценивать нечего.
func (d *AnomalyDetector) Score(img gocv.Mat) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("%s: score failed: %v", d.Name(), r)
			score = 0.0
		}
	}()

	if d.bank == nil {
		return 0.0
	}
	if !validImage(d.Name(), img) {
		return 0.0
	}

	return d.bank.Score(d.extractFeatures(img))
}

// Detect локализует аномальные области. Необученный детектор возвращает
// пустой список. Никогда не паникует.
func (d *AnomalyDetector) Detect(img gocv.Mat) (regions []entity.DefectRegion) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("%s: detect failed: %v", d.Name(), r)
			regions = nil
		}
	}()

	if d.bank == nil {
		return nil
	}
	if !validImage(d.Name(), img) {
		return nil
	}

	anomalyMap := d.computeAnomalyMap(img)
	defer anomalyMap.Close()

	return d.localizeAnomalies(anomalyMap)
}

// extractFeatures собирает вектор статистических признаков по серому
// изображению 256×256: глобальные моменты, гистограмма, градиенты.
func (d *AnomalyDetector) extractFeatures(img gocv.Mat) []float64 {
	gray := toGray(img)
	defer gray.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(gray, &resized, image.Pt(featureSize, featureSize), 0, 0, gocv.InterpolationArea)

	features := make([]float64, 0, featureDim)

	mean, std := matMeanStd(resized)
	minVal, maxVal, _, _ := gocv.MinMaxLoc(resized)
	features = append(features, mean, std, float64(minVal), float64(maxVal))

	features = append(features, d.histogram(resized)...)

	gradMag := gradientMagnitude(resized)
	defer gradMag.Close()
	gradMean, gradStd := matMeanStd(gradMag)
	features = append(features, gradMean, gradStd)

	return features
}

// histogram возвращает нормированную 8-корзинную гистограмму яркости.
func (d *AnomalyDetector) histogram(gray gocv.Mat) []float64 {
	hist := gocv.NewMat()
	defer hist.Close()
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.CalcHist([]gocv.Mat{gray}, []int{0}, mask, &hist, []int{histogramBins}, []float64{0, 256}, false)

	bins := make([]float64, histogramBins)
	sum := 0.0
	for i := 0; i < histogramBins; i++ {
		bins[i] = float64(hist.GetFloatAt(i, 0))
		sum += bins[i]
	}
	for i := range bins {
		bins[i] /= sum + 1e-6
	}
	return bins
}

// computeAnomalyMap строит карту аномальности: величина градиента,
// нормированная в [0,1].
func (d *AnomalyDetector) computeAnomalyMap(img gocv.Mat) gocv.Mat {
	gray := toGray(img)
	defer gray.Close()

	gradMag := gradientMagnitude(gray)
	defer gradMag.Close()

	normalized := gocv.NewMat()
	gocv.Normalize(gradMag, &normalized, 0, 1, gocv.NormMinMax)
	return normalized
}

// localizeAnomalies превращает карту аномальности в области дефектов:
// порог, связные компоненты, отсев по площади; уверенность — средняя
// аномальность внутри маски компоненты.
func (d *AnomalyDetector) localizeAnomalies(anomalyMap gocv.Mat) []entity.DefectRegion {
	thresholded := gocv.NewMat()
	defer thresholded.Close()
	gocv.Threshold(anomalyMap, &thresholded, float32(d.anomalyThreshold), 1, gocv.ThresholdBinary)

	binary := gocv.NewMat()
	defer binary.Close()
	thresholded.ConvertToWithParams(&binary, gocv.MatTypeCV8U, 255, 0)

	contours := gocv.FindContours(binary, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var regions []entity.DefectRegion
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		if gocv.ContourArea(contour) < minAnomalyArea {
			continue
		}

		rect := gocv.BoundingRect(contour)

		mask := gocv.NewMatWithSize(anomalyMap.Rows(), anomalyMap.Cols(), gocv.MatTypeCV8U)
		gocv.DrawContours(&mask, contours, i, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
		confidence := anomalyMap.MeanWithMask(mask).Val1
		mask.Close()

		confidence = math.Max(0.0, math.Min(1.0, confidence))
		region, err := entity.NewDefectRegion(
			rect.Min.X, rect.Min.Y, rect.Dx(), rect.Dy(),
			"anomaly", confidence, d.Name(),
		)
		if err != nil {
			log.Printf("%s: %v", d.Name(), err)
			continue
		}
		regions = append(regions, region)
	}

	return regions
}

// gradientMagnitude считает величину градиента Собеля (CV32F).
func gradientMagnitude(gray gocv.Mat) gocv.Mat {
	gradX := gocv.NewMat()
	defer gradX.Close()
	gradY := gocv.NewMat()
	defer gradY.Close()
	gocv.Sobel(gray, &gradX, gocv.MatTypeCV32F, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(gray, &gradY, gocv.MatTypeCV32F, 0, 1, 3, 1, 0, gocv.BorderDefault)

	magnitude := gocv.NewMat()
	gocv.Magnitude(gradX, gradY, &magnitude)
	return magnitude
}
