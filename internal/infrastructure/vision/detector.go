//go:build gocv
// +build gocv

package vision

import (
	"log"
	"math"

	"gocv.io/x/gocv"

	"defect-bot/internal/domain/entity"
)

// Detector — контракт детектора дефектов.
// Detect и Score обязаны никогда не паниковать: любая внутренняя ошибка
// деградирует до пустого списка / нулевого балла и пишется в лог. Отказ
// одного детектора может ухудшить результат, но не роняет конвейер.
type Detector interface {
	// Name возвращает имя детектора для логов и аудита.
	Name() string

	// Detect ищет дефекты на изображении.
	Detect(img gocv.Mat) []entity.DefectRegion

	// Score возвращает общий балл дефектности изображения, 0.0-1.0.
	Score(img gocv.Mat) float64
}

// validImage проверяет, что матрица пригодна для анализа:
// непустая, с 1, 3 или 4 каналами. Невалидное изображение — не ошибка,
// а предупреждение в логе и пустой результат у вызывающего.
func validImage(name string, img gocv.Mat) bool {
	if img.Empty() {
		log.Printf("%s: image is empty", name)
		return false
	}
	if img.Rows() <= 0 || img.Cols() <= 0 {
		log.Printf("%s: image has no pixels", name)
		return false
	}
	if ch := img.Channels(); ch != 1 && ch != 3 && ch != 4 {
		log.Printf("%s: image channels must be 1, 3 or 4, got %d", name, ch)
		return false
	}
	return true
}

// toGray приводит изображение к одному каналу. Вызывающий закрывает Mat.
func toGray(img gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	switch img.Channels() {
	case 1:
		img.CopyTo(&gray)
	case 4:
		gocv.CvtColor(img, &gray, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	}
	return gray
}

// matMeanStd считает среднее и стандартное отклонение одноканальной
// матрицы через E[x²]−E[x]².
func matMeanStd(m gocv.Mat) (mean, std float64) {
	f := gocv.NewMat()
	defer f.Close()
	m.ConvertTo(&f, gocv.MatTypeCV32F)

	mean = f.Mean().Val1

	sq := gocv.NewMat()
	defer sq.Close()
	gocv.Multiply(f, f, &sq)
	meanSq := sq.Mean().Val1

	return mean, math.Sqrt(math.Max(0, meanSq-mean*mean))
}

// matMeanStdWithMask — как matMeanStd, но только по пикселям маски.
func matMeanStdWithMask(m, mask gocv.Mat) (mean, std float64) {
	f := gocv.NewMat()
	defer f.Close()
	m.ConvertTo(&f, gocv.MatTypeCV32F)

	mean = f.MeanWithMask(mask).Val1

	sq := gocv.NewMat()
	defer sq.Close()
	gocv.Multiply(f, f, &sq)
	meanSq := sq.MeanWithMask(mask).Val1

	return mean, math.Sqrt(math.Max(0, meanSq-mean*mean))
}
