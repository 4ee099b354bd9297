package vision

import (
	"log"

	"defect-bot/internal/domain/entity"
)

// ClampBox прижимает рамку к границам изображения: левый верхний угол
// загоняется внутрь, ширина и высота урезаются так, чтобы рамка не
// выходила за края. Положительность w и h НЕ гарантируется — вызывающий
// обязан проверить итоговую площадь.
func ClampBox(x, y, w, h, imageWidth, imageHeight int) (int, int, int, int) {
	x = max(0, min(x, imageWidth-1))
	y = max(0, min(y, imageHeight-1))

	w = min(w, imageWidth-x)
	h = min(h, imageHeight-y)

	return x, y, w, h
}

// SelectionStrategy — стратегия выбора лучшей области из списка.
type SelectionStrategy string

const (
	SelectLargest           SelectionStrategy = "largest"            // максимальная площадь
	SelectHighestConfidence SelectionStrategy = "highest_confidence" // максимальная уверенность
	SelectFirst             SelectionStrategy = "first"              // первая в списке
)

// SelectBestRegion выбирает область по стратегии. Пустой список — nil.
// Неизвестная стратегия деградирует к "largest" с предупреждением в логе.
func SelectBestRegion(regions []entity.DefectRegion, strategy SelectionStrategy) *entity.DefectRegion {
	if len(regions) == 0 {
		return nil
	}

	switch strategy {
	case SelectFirst:
		return &regions[0]

	case SelectHighestConfidence:
		best := &regions[0]
		for i := 1; i < len(regions); i++ {
			if regions[i].Confidence > best.Confidence {
				best = &regions[i]
			}
		}
		return best

	case SelectLargest:
		best := &regions[0]
		for i := 1; i < len(regions); i++ {
			if regions[i].Area() > best.Area() {
				best = &regions[i]
			}
		}
		return best

	default:
		log.Printf("vision: unknown selection strategy %q, using %q", strategy, SelectLargest)
		return SelectBestRegion(regions, SelectLargest)
	}
}
