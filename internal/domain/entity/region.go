package entity

import (
	"errors"
	"fmt"
)

// DefectRegion — прямоугольная область с обнаруженным дефектом.
// Координаты в пикселях, начало в левом верхнем углу изображения.
type DefectRegion struct {
	X          int     // координата X левого верхнего угла
	Y          int     // координата Y левого верхнего угла
	W          int     // ширина области в пикселях
	H          int     // высота области в пикселях
	DefectType string  // тип дефекта: "crack", "hole", "anomaly"
	Confidence float64 // уверенность детектора, 0.0-1.0
	Detector   string  // имя детектора для аудита
}

// NewDefectRegion создаёт область дефекта и валидирует поля.
func NewDefectRegion(x, y, w, h int, defectType string, confidence float64, detector string) (DefectRegion, error) {
	if confidence < 0.0 || confidence > 1.0 {
		return DefectRegion{}, fmt.Errorf("confidence must be 0.0-1.0, got %v", confidence)
	}
	if defectType == "" {
		return DefectRegion{}, errors.New("defect type must be non-empty")
	}
	if detector == "" {
		return DefectRegion{}, errors.New("detector name must be non-empty")
	}
	return DefectRegion{
		X:          x,
		Y:          y,
		W:          w,
		H:          h,
		DefectType: defectType,
		Confidence: confidence,
		Detector:   detector,
	}, nil
}

// Area возвращает площадь области в пикселях.
func (r DefectRegion) Area() int {
	return r.W * r.H
}

// Center возвращает координаты центра области.
func (r DefectRegion) Center() (x, y int) {
	return r.X + r.W/2, r.Y + r.H/2
}

// IsValid проверяет, что область целиком лежит внутри изображения.
func (r DefectRegion) IsValid(imageWidth, imageHeight int) bool {
	if r.X < 0 || r.Y < 0 {
		return false
	}
	if r.W <= 0 || r.H <= 0 {
		return false
	}
	if r.X+r.W > imageWidth {
		return false
	}
	if r.Y+r.H > imageHeight {
		return false
	}
	return true
}
