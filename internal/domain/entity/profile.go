package entity

import (
	"time"

	"github.com/google/uuid"
)

// Customer — заказчик, для которого выпускается продукция.
type Customer struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Product — изделие заказчика.
type Product struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	PartCode   string
	PartName   string
	CreatedAt  time.Time
}

// DefectProfile — эталонный профиль дефекта в базе знаний.
// Эмбеддинги нормированы (L2), их размерность задаёт внешний CLIP-сервис.
type DefectProfile struct {
	ID                uuid.UUID
	Customer          string
	PartCode          string
	PartName          string
	DefectType        string // "crack", "hole", "OK", ...
	DefectTitle       string
	DefectDescription string
	Keywords          []string
	Severity          string
	ReferenceImages   []string  // пути к эталонным изображениям
	ImageEmbedding    []float64 // усреднённый эмбеддинг эталонных фото
	TextEmbedding     []float64 // эмбеддинг описания
	CreatedAt         time.Time
}

// DefectIncident — запись о распознанном дефекте (аудит обращений).
type DefectIncident struct {
	ID                  uuid.UUID
	UserID              string
	PredictedDefectType string
	Confidence          float64
	ImageEmbedding      []float64
	CreatedAt           time.Time
}
