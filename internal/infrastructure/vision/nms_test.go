package vision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"defect-bot/internal/domain/entity"
)

func TestIoUIdentical(t *testing.T) {
	a := entity.DefectRegion{X: 10, Y: 10, W: 20, H: 20}
	require.Equal(t, 1.0, IoU(a, a))
}

func TestIoUDisjoint(t *testing.T) {
	a := entity.DefectRegion{X: 0, Y: 0, W: 10, H: 10}
	b := entity.DefectRegion{X: 50, Y: 50, W: 10, H: 10}
	require.Equal(t, 0.0, IoU(a, b))
}

func TestIoUTouching(t *testing.T) {
	// Соприкосновение рёбрами — пересечение нулевой площади.
	a := entity.DefectRegion{X: 0, Y: 0, W: 10, H: 10}
	b := entity.DefectRegion{X: 10, Y: 0, W: 10, H: 10}
	require.Equal(t, 0.0, IoU(a, b))
}

func TestIoUPartialOverlap(t *testing.T) {
	a := entity.DefectRegion{X: 0, Y: 0, W: 10, H: 10}
	b := entity.DefectRegion{X: 5, Y: 0, W: 10, H: 10}
	// Пересечение 50, объединение 150.
	require.InDelta(t, 1.0/3.0, IoU(a, b), 1e-9)
}

func TestSuppressDuplicatesKeepsMostConfident(t *testing.T) {
	regions := []entity.DefectRegion{
		{X: 0, Y: 0, W: 10, H: 10, Confidence: 0.6, DefectType: "crack"},
		{X: 1, Y: 1, W: 10, H: 10, Confidence: 0.9, DefectType: "crack"},
	}
	kept := suppressDuplicates(regions)
	require.Len(t, kept, 1)
	require.Equal(t, 0.9, kept[0].Confidence)
}

func TestSuppressDuplicatesKeepsDistinct(t *testing.T) {
	regions := []entity.DefectRegion{
		{X: 0, Y: 0, W: 10, H: 10, Confidence: 0.9},
		{X: 100, Y: 100, W: 10, H: 10, Confidence: 0.8},
		{X: 1, Y: 1, W: 10, H: 10, Confidence: 0.7},
	}
	kept := suppressDuplicates(regions)
	require.Len(t, kept, 2)

	// Среди оставленных нет пары с IoU выше порога.
	for i := 0; i < len(kept); i++ {
		for j := i + 1; j < len(kept); j++ {
			require.LessOrEqual(t, IoU(kept[i], kept[j]), iouDuplicateThreshold)
		}
	}
}

func TestSuppressDuplicatesSingle(t *testing.T) {
	regions := []entity.DefectRegion{{X: 0, Y: 0, W: 10, H: 10, Confidence: 0.5}}
	require.Len(t, suppressDuplicates(regions), 1)
}
