package vision

import (
	"sort"

	"defect-bot/internal/domain/entity"
)

// iouDuplicateThreshold: области с пересечением выше считаются дубликатами.
const iouDuplicateThreshold = 0.5

// IoU вычисляет отношение пересечения к объединению двух областей.
// Непересекающиеся области и нулевое объединение дают 0.0.
func IoU(a, b entity.DefectRegion) float64 {
	interMinX := max(a.X, b.X)
	interMinY := max(a.Y, b.Y)
	interMaxX := min(a.X+a.W, b.X+b.W)
	interMaxY := min(a.Y+a.H, b.Y+b.H)

	if interMaxX <= interMinX || interMaxY <= interMinY {
		return 0.0
	}

	interArea := (interMaxX - interMinX) * (interMaxY - interMinY)
	unionArea := a.Area() + b.Area() - interArea
	if unionArea == 0 {
		return 0.0
	}

	return float64(interArea) / float64(unionArea)
}

// suppressDuplicates убирает дублирующие детекции жадным подавлением
// немаксимумов: области сортируются по убыванию уверенности, область
// выбрасывается, если её IoU с уже оставленной превышает порог.
func suppressDuplicates(regions []entity.DefectRegion) []entity.DefectRegion {
	if len(regions) <= 1 {
		return regions
	}

	sorted := make([]entity.DefectRegion, len(regions))
	copy(sorted, regions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	keep := make([]entity.DefectRegion, 0, len(sorted))
	for _, region := range sorted {
		duplicate := false
		for _, kept := range keep {
			if IoU(region, kept) > iouDuplicateThreshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			keep = append(keep, region)
		}
	}

	return keep
}
