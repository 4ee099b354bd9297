package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"defect-bot/internal/domain/entity"
)

// fakeEmbedder возвращает заранее заданные эмбеддинги.
type fakeEmbedder struct {
	imageEmbedding []float64
	textEmbedding  []float64
	err            error
}

func (f *fakeEmbedder) ImageEmbedding(ctx context.Context, imageData []byte) ([]float64, error) {
	return f.imageEmbedding, f.err
}

func (f *fakeEmbedder) TextEmbedding(ctx context.Context, text string) ([]float64, error) {
	return f.textEmbedding, f.err
}

func testMatcherConfig() MatcherConfig {
	return MatcherConfig{
		SimilarityThreshold: 0.6,
		MarginThreshold:     0.05,
		OKThreshold:         0.8,
		ImageWeight:         0.6,
		TextWeight:          0.4,
		TopK:                3,
	}
}

// profileWithEmbedding — профиль с единичным эмбеддингом вдоль одной оси,
// чтобы косинусная близость к запросу была предсказуемой.
func profileWithEmbedding(defectType string, embedding []float64) *entity.DefectProfile {
	return &entity.DefectProfile{DefectType: defectType, DefectTitle: defectType, ImageEmbedding: embedding}
}

func TestFindTopKRanksByImageSimilarity(t *testing.T) {
	m := NewMatcher(testMatcherConfig(), &fakeEmbedder{})

	candidates := []*entity.DefectProfile{
		profileWithEmbedding("scratch", []float64{0.0, 1.0}),
		profileWithEmbedding("crack", []float64{1.0, 0.0}),
	}

	matches, err := m.FindTopK(context.Background(), []float64{1.0, 0.0}, "", candidates, 0)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "crack", matches[0].Profile.DefectType)
	require.InDelta(t, 1.0, matches[0].Score, 1e-9)
	require.InDelta(t, 0.0, matches[1].Score, 1e-9)
}

func TestFindTopKTruncates(t *testing.T) {
	m := NewMatcher(testMatcherConfig(), &fakeEmbedder{})

	candidates := []*entity.DefectProfile{
		profileWithEmbedding("a", []float64{1.0, 0.0}),
		profileWithEmbedding("b", []float64{0.9, 0.1}),
		profileWithEmbedding("c", []float64{0.8, 0.2}),
		profileWithEmbedding("d", []float64{0.7, 0.3}),
	}

	matches, err := m.FindTopK(context.Background(), []float64{1.0, 0.0}, "", candidates, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
}

func TestFindTopKWeighted(t *testing.T) {
	embedder := &fakeEmbedder{textEmbedding: []float64{1.0, 0.0}}
	m := NewMatcher(testMatcherConfig(), embedder)

	profile := profileWithEmbedding("crack", []float64{1.0, 0.0})
	profile.TextEmbedding = []float64{0.0, 1.0}

	matches, err := m.FindTopK(context.Background(), []float64{1.0, 0.0}, "трещина", []*entity.DefectProfile{profile}, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	// 0.6·1.0 (изображение) + 0.4·0.0 (текст).
	require.InDelta(t, 0.6, matches[0].Score, 1e-9)
	require.InDelta(t, 1.0, matches[0].ImageSimilarity, 1e-9)
	require.InDelta(t, 0.0, matches[0].TextSimilarity, 1e-9)
}

func TestFindTopKNoTextEmbeddingFallsBackToImage(t *testing.T) {
	// У кандидата нет текстового эмбеддинга: итог равен чистой близости
	// изображений, веса не перенормируются.
	embedder := &fakeEmbedder{textEmbedding: []float64{1.0, 0.0}}
	m := NewMatcher(testMatcherConfig(), embedder)

	profile := profileWithEmbedding("crack", []float64{1.0, 0.0})

	matches, err := m.FindTopK(context.Background(), []float64{1.0, 0.0}, "трещина", []*entity.DefectProfile{profile}, 0)
	require.NoError(t, err)
	require.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

func TestFindTopKTextEmbeddingError(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("service down")}
	m := NewMatcher(testMatcherConfig(), embedder)

	_, err := m.FindTopK(context.Background(), []float64{1.0}, "трещина", nil, 0)
	require.Error(t, err)
}

func TestDecideEmptyCandidates(t *testing.T) {
	m := NewMatcher(testMatcherConfig(), &fakeEmbedder{})

	decision := m.Decide(nil)
	require.Equal(t, entity.MatchUnknown, decision.Outcome)
	require.NotEmpty(t, decision.Warning)
}

func TestDecideConfidentDefect(t *testing.T) {
	m := NewMatcher(testMatcherConfig(), &fakeEmbedder{})

	decision := m.Decide([]entity.ScoredMatch{
		{Profile: profileWithEmbedding("crack", nil), Score: 0.91},
		{Profile: profileWithEmbedding("hole", nil), Score: 0.60},
		{Profile: profileWithEmbedding("scratch", nil), Score: 0.40},
	})
	require.Equal(t, entity.MatchDefect, decision.Outcome)
	require.Equal(t, "crack", decision.Best().Profile.DefectType)
	require.Empty(t, decision.Warning)
}

func TestDecideBelowSimilarityThreshold(t *testing.T) {
	m := NewMatcher(testMatcherConfig(), &fakeEmbedder{})

	decision := m.Decide([]entity.ScoredMatch{
		{Profile: profileWithEmbedding("crack", nil), Score: 0.55},
	})
	require.Equal(t, entity.MatchUnknown, decision.Outcome)
	require.Contains(t, decision.Warning, "below threshold")
}

func TestDecideAmbiguousMargin(t *testing.T) {
	m := NewMatcher(testMatcherConfig(), &fakeEmbedder{})

	decision := m.Decide([]entity.ScoredMatch{
		{Profile: profileWithEmbedding("crack", nil), Score: 0.75},
		{Profile: profileWithEmbedding("hole", nil), Score: 0.74},
	})
	require.Equal(t, entity.MatchUnknown, decision.Outcome)
	require.Contains(t, decision.Warning, "crack")
	require.Contains(t, decision.Warning, "hole")
}

func TestDecideOKProfile(t *testing.T) {
	m := NewMatcher(testMatcherConfig(), &fakeEmbedder{})

	decision := m.Decide([]entity.ScoredMatch{
		{Profile: profileWithEmbedding("OK", nil), Score: 0.85},
	})
	require.Equal(t, entity.MatchOK, decision.Outcome)
}

func TestDecideOKProfileBelowOKThreshold(t *testing.T) {
	// «OK» прошёл общий порог, но не прошёл строгий порог для OK.
	m := NewMatcher(testMatcherConfig(), &fakeEmbedder{})

	decision := m.Decide([]entity.ScoredMatch{
		{Profile: profileWithEmbedding("OK", nil), Score: 0.70},
	})
	require.Equal(t, entity.MatchUnknown, decision.Outcome)
	require.Contains(t, decision.Warning, "OK threshold")
}

func TestDecideSingleDefectCandidate(t *testing.T) {
	// Один кандидат: проверка отрыва пропускается.
	m := NewMatcher(testMatcherConfig(), &fakeEmbedder{})

	decision := m.Decide([]entity.ScoredMatch{
		{Profile: profileWithEmbedding("crack", nil), Score: 0.65},
	})
	require.Equal(t, entity.MatchDefect, decision.Outcome)
}

func TestCosineSimilarityLengthMismatch(t *testing.T) {
	require.Equal(t, 0.0, cosineSimilarity([]float64{1.0}, []float64{1.0, 0.0}))
	require.Equal(t, 0.0, cosineSimilarity(nil, nil))
}
