//go:build gocv
// +build gocv

package vision

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// CropRegion безопасно вырезает область из изображения с симметричным
// отступом. Рамка прижимается к границам; выход за края — не ошибка.
// Ошибка возвращается только если изображение пустое или область после
// прижатия выродилась. Вызывающий закрывает полученную матрицу.
func CropRegion(img gocv.Mat, x, y, w, h, padding int) (gocv.Mat, error) {
	if img.Empty() {
		return gocv.Mat{}, errors.New("cannot crop from empty image")
	}

	if padding > 0 {
		x -= padding
		y -= padding
		w += 2 * padding
		h += 2 * padding
	}

	x, y, w, h = ClampBox(x, y, w, h, img.Cols(), img.Rows())
	if w <= 0 || h <= 0 {
		return gocv.Mat{}, fmt.Errorf("invalid crop region after clamping: w=%d, h=%d", w, h)
	}

	view := img.Region(image.Rect(x, y, x+w, y+h))
	defer view.Close()

	// Клонируем, чтобы вырезка жила независимо от исходной матрицы.
	return view.Clone(), nil
}
