package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewOKResult(t *testing.T) {
	r := NewOKResult(0.2)
	require.Equal(t, VerdictOK, r.Result)
	require.Equal(t, 0.2, r.AnomalyScore)
	require.Empty(t, r.DefectRegions)
	require.False(t, r.HasDefects())
	require.Equal(t, ModelVersion, r.ModelVersion)
}

func TestNewNGResult(t *testing.T) {
	regions := []DefectRegion{{X: 1, Y: 2, W: 3, H: 4, DefectType: "crack", Confidence: 0.8, Detector: "crack_detector"}}
	r := NewNGResult(0.7, regions)
	require.Equal(t, VerdictNG, r.Result)
	require.True(t, r.HasDefects())
	require.Equal(t, 1, r.DefectCount())
}

func TestDefectsByType(t *testing.T) {
	r := NewNGResult(0.9, []DefectRegion{
		{DefectType: "crack"},
		{DefectType: "crack"},
		{DefectType: "hole"},
	})
	counts := r.DefectsByType()
	require.Equal(t, 2, counts["crack"])
	require.Equal(t, 1, counts["hole"])
}

func TestFailed(t *testing.T) {
	r := NewNGResult(1.0, nil)
	r.DetectorsUsed = []string{"ERROR"}
	require.True(t, r.Failed())

	ok := NewOKResult(0.1)
	ok.DetectorsUsed = []string{"crack_detector", "hole_detector"}
	require.False(t, ok.Failed())
}
