//go:build gocv
// +build gocv

package vision

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"defect-bot/internal/domain/entity"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.EnableAnomalyDetector = false
	return cfg
}

// brightMat создаёт светлое однотонное изображение детали.
func brightMat(rows, cols int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(200, 200, 200, 0), rows, cols, gocv.MatTypeCV8UC3)
}

func encodePNG(t *testing.T, img gocv.Mat) []byte {
	t.Helper()
	buf, err := gocv.IMEncode(gocv.PNGFileExt, img)
	require.NoError(t, err)
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.AnomalyThreshold = 2.0
	_, err := NewEngine(cfg)
	require.Error(t, err)
}

func TestInspectUnreadableBytes(t *testing.T) {
	engine, err := NewEngine(testConfig())
	require.NoError(t, err)

	result := engine.Inspect(context.Background(), []byte("not an image"), "img-1")
	require.Equal(t, entity.VerdictNG, result.Result)
	require.Equal(t, 1.0, result.AnomalyScore)
	require.Equal(t, []string{"ERROR"}, result.DetectorsUsed)
	require.True(t, result.Failed())
	require.Equal(t, "img-1", result.ImageID)
}

func TestInspectCleanSurface(t *testing.T) {
	engine, err := NewEngine(testConfig())
	require.NoError(t, err)

	img := brightMat(600, 800)
	defer img.Close()

	result := engine.InspectMat(img, "clean-1")
	require.Equal(t, entity.VerdictOK, result.Result)
	require.False(t, result.HasDefects())
	require.False(t, result.Failed())
	require.Equal(t, entity.ModelVersion, result.ModelVersion)
}

func TestInspectDetectsCrack(t *testing.T) {
	engine, err := NewEngine(testConfig())
	require.NoError(t, err)

	img := brightMat(400, 400)
	defer img.Close()
	// Тонкая тёмная линия — модель трещины.
	gocv.Line(&img, image.Pt(50, 200), image.Pt(350, 200),
		color.RGBA{R: 30, G: 30, B: 30, A: 255}, 2)

	result := engine.InspectMat(img, "crack-1")
	require.Equal(t, entity.VerdictNG, result.Result)
	require.Contains(t, result.DefectsByType(), "crack")
	require.Contains(t, result.DetectorsUsed, "CrackDetector")
}

func TestInspectDetectsHole(t *testing.T) {
	engine, err := NewEngine(testConfig())
	require.NoError(t, err)

	img := brightMat(400, 400)
	defer img.Close()
	// Залитый тёмный круг — модель отверстия.
	gocv.Circle(&img, image.Pt(200, 200), 25,
		color.RGBA{R: 30, G: 30, B: 30, A: 255}, -1)

	result := engine.InspectMat(img, "hole-1")
	require.Equal(t, entity.VerdictNG, result.Result)
	require.Contains(t, result.DefectsByType(), "hole")
	require.Contains(t, result.DetectorsUsed, "HoleDetector")

	for _, region := range result.DefectRegions {
		require.True(t, region.IsValid(400, 400))
		require.GreaterOrEqual(t, region.Confidence, 0.0)
		require.LessOrEqual(t, region.Confidence, 1.0)
	}
}

func TestInspectFromBytes(t *testing.T) {
	engine, err := NewEngine(testConfig())
	require.NoError(t, err)

	img := brightMat(400, 400)
	defer img.Close()
	gocv.Circle(&img, image.Pt(200, 200), 25,
		color.RGBA{R: 30, G: 30, B: 30, A: 255}, -1)

	result := engine.Inspect(context.Background(), encodePNG(t, img), "bytes-1")
	require.Equal(t, entity.VerdictNG, result.Result)
	require.True(t, result.HasDefects())
}

func TestCropBestRegion(t *testing.T) {
	engine, err := NewEngine(testConfig())
	require.NoError(t, err)

	img := brightMat(400, 400)
	defer img.Close()
	gocv.Circle(&img, image.Pt(200, 200), 25,
		color.RGBA{R: 30, G: 30, B: 30, A: 255}, -1)
	data := encodePNG(t, img)

	regions := []entity.DefectRegion{
		{X: 175, Y: 175, W: 50, H: 50, DefectType: "hole", Confidence: 0.9, Detector: "HoleDetector"},
	}

	cropped, err := engine.CropBestRegion(data, regions)
	require.NoError(t, err)
	require.NotEmpty(t, cropped)

	mat, err := decodeToMat(cropped)
	require.NoError(t, err)
	defer mat.Close()
	// Вырезка включает отступ вокруг области.
	require.Equal(t, 70, mat.Cols())
	require.Equal(t, 70, mat.Rows())
}

func TestCropBestRegionNoRegions(t *testing.T) {
	engine, err := NewEngine(testConfig())
	require.NoError(t, err)

	_, err = engine.CropBestRegion([]byte("ignored"), nil)
	require.Error(t, err)
}

func TestTrainAnomalyDetectorDisabled(t *testing.T) {
	engine, err := NewEngine(testConfig())
	require.NoError(t, err)

	err = engine.TrainAnomalyDetector(nil)
	require.Error(t, err)
}

func TestAnomalyDetectorTrainAndInspect(t *testing.T) {
	cfg := testConfig()
	cfg.EnableAnomalyDetector = true
	engine, err := NewEngine(cfg)
	require.NoError(t, err)

	img := brightMat(400, 400)
	defer img.Close()
	samples := [][]byte{encodePNG(t, img), encodePNG(t, img)}
	require.NoError(t, engine.TrainAnomalyDetector(samples))

	// Изображение из обучающей выборки не аномально.
	result := engine.InspectMat(img, "trained-1")
	require.Equal(t, entity.VerdictOK, result.Result)
	require.LessOrEqual(t, result.AnomalyScore, cfg.AnomalyThreshold)
}

func TestDetectorsHandleEmptyMat(t *testing.T) {
	cfg := testConfig()

	crack, err := NewCrackDetector(cfg)
	require.NoError(t, err)
	hole, err := NewHoleDetector(cfg)
	require.NoError(t, err)

	empty := gocv.NewMat()
	defer empty.Close()

	require.Empty(t, crack.Detect(empty))
	require.Equal(t, 0.0, crack.Score(empty))
	require.Empty(t, hole.Detect(empty))
	require.Equal(t, 0.0, hole.Score(empty))
}
