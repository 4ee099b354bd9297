package vision

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// bankEpsilon страхует от деления на ноль при нулевой дисперсии признака.
const bankEpsilon = 1e-6

// MemoryBank — банк признаков «нормальных» образцов: поэлементные среднее
// и стандартное отклонение векторов признаков OK-изображений. Банк
// неизменяем после построения, поэтому его можно безопасно читать из
// параллельных инспекций.
type MemoryBank struct {
	Mean       []float64 `json:"mean"`
	Std        []float64 `json:"std"`
	NumSamples int       `json:"num_samples"`
}

// BuildMemoryBank строит банк по векторам признаков OK-образцов.
// Требуется хотя бы один образец; векторы должны быть одной длины.
func BuildMemoryBank(features [][]float64) (*MemoryBank, error) {
	if len(features) == 0 {
		return nil, errors.New("need at least 1 OK sample for training")
	}

	dim := len(features[0])
	for i, f := range features {
		if len(f) != dim {
			return nil, fmt.Errorf("feature vector %d has length %d, want %d", i, len(f), dim)
		}
	}

	mean := make([]float64, dim)
	for _, f := range features {
		for j, v := range f {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(len(features))
	}

	std := make([]float64, dim)
	for _, f := range features {
		for j, v := range f {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j]/float64(len(features))) + bankEpsilon
	}

	return &MemoryBank{Mean: mean, Std: std, NumSamples: len(features)}, nil
}

// Score возвращает аномальность вектора признаков: максимальный модуль
// z-оценки, отображённый в [0,1] (три сигмы насыщают балл до 1.0).
// Несовпадение размерности трактуется как внутренняя ошибка и даёт 0.0.
func (b *MemoryBank) Score(features []float64) float64 {
	if len(features) != len(b.Mean) {
		return 0.0
	}

	maxZ := 0.0
	for i, v := range features {
		z := math.Abs((v - b.Mean[i]) / b.Std[i])
		if z > maxZ {
			maxZ = z
		}
	}

	return math.Min(1.0, maxZ/3.0)
}

// Dim возвращает размерность вектора признаков банка.
func (b *MemoryBank) Dim() int {
	return len(b.Mean)
}

// Save сериализует банк в JSON-файл.
func (b *MemoryBank) Save(path string) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal memory bank: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write memory bank: %w", err)
	}
	return nil
}

// LoadMemoryBank читает банк из файла и сверяет размерность признаков
// с текущим экстрактором: банк от другой версии не должен молча
// включать режим «обучен».
func LoadMemoryBank(path string, wantDim int) (*MemoryBank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read memory bank: %w", err)
	}

	var bank MemoryBank
	if err := json.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("parse memory bank: %w", err)
	}

	if len(bank.Mean) == 0 || len(bank.Mean) != len(bank.Std) {
		return nil, errors.New("memory bank is malformed")
	}
	if wantDim > 0 && bank.Dim() != wantDim {
		return nil, fmt.Errorf("memory bank dimension %d does not match feature extractor dimension %d", bank.Dim(), wantDim)
	}

	return &bank, nil
}
