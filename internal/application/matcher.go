package app

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"defect-bot/internal/domain/entity"
	"defect-bot/internal/domain/port"
)

// MatcherConfig — пороги и веса политики сопоставления.
// Взаимный порядок трёх порогов алгоритм не проверяет: это вопрос
// операционной настройки, а не корректности.
type MatcherConfig struct {
	SimilarityThreshold float64 // минимальная итоговая близость лидера
	MarginThreshold     float64 // минимальный отрыв лидера от второго места
	OKThreshold         float64 // отдельный, более строгий порог для профиля «OK»
	ImageWeight         float64 // вес близости изображений
	TextWeight          float64 // вес близости текстов
	TopK                int
}

// Matcher ранжирует профили дефектов по эмбеддингам и применяет
// политику принятия решения к топ-K.
type Matcher struct {
	cfg      MatcherConfig
	embedder port.Embedder
}

// NewMatcher создаёт сопоставитель.
func NewMatcher(cfg MatcherConfig, embedder port.Embedder) *Matcher {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	return &Matcher{cfg: cfg, embedder: embedder}
}

// FindTopK считает взвешенную близость изображения и текста для каждого
// кандидата и возвращает топ-K по убыванию. Без текстового запроса (или
// без текстового эмбеддинга у кандидата) итог равен чистой близости
// изображений — веса не перенормируются.
func (m *Matcher) FindTopK(ctx context.Context, imageEmbedding []float64, textQuery string, candidates []*entity.DefectProfile, k int) ([]entity.ScoredMatch, error) {
	if k <= 0 {
		k = m.cfg.TopK
	}

	// Эмбеддинг запроса считается один раз на все кандидаты.
	var queryTextEmbedding []float64
	if textQuery != "" {
		emb, err := m.embedder.TextEmbedding(ctx, textQuery)
		if err != nil {
			return nil, fmt.Errorf("text query embedding: %w", err)
		}
		queryTextEmbedding = emb
	}

	matches := make([]entity.ScoredMatch, 0, len(candidates))
	for _, profile := range candidates {
		imageSim := cosineSimilarity(imageEmbedding, profile.ImageEmbedding)

		match := entity.ScoredMatch{
			Profile:         profile,
			ImageSimilarity: imageSim,
			Score:           imageSim,
		}

		if queryTextEmbedding != nil && len(profile.TextEmbedding) > 0 {
			textSim := cosineSimilarity(queryTextEmbedding, profile.TextEmbedding)
			match.TextSimilarity = textSim
			match.Score = m.cfg.ImageWeight*imageSim + m.cfg.TextWeight*textSim
		}

		matches = append(matches, match)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Decide применяет политику принятия решения к отранжированному топ-K.
// UNKNOWN — ожидаемый бизнес-результат («нет уверенного совпадения»),
// поэтому причины возвращаются предупреждением, а не ошибкой.
func (m *Matcher) Decide(matches []entity.ScoredMatch) entity.MatchDecision {
	if len(matches) == 0 {
		return entity.MatchDecision{
			Outcome: entity.MatchUnknown,
			Warning: "no defect profiles available for matching",
		}
	}

	top := matches[0]

	if top.Score < m.cfg.SimilarityThreshold {
		return entity.MatchDecision{
			Outcome: entity.MatchUnknown,
			Matches: matches,
			Warning: fmt.Sprintf("confidence %.2f below threshold %.2f", top.Score, m.cfg.SimilarityThreshold),
		}
	}

	if len(matches) >= 2 {
		margin := top.Score - matches[1].Score
		if margin < m.cfg.MarginThreshold {
			return entity.MatchDecision{
				Outcome: entity.MatchUnknown,
				Matches: matches,
				Warning: fmt.Sprintf("ambiguous match: %q vs %q (margin %.3f below %.3f)",
					top.Profile.DefectType, matches[1].Profile.DefectType, margin, m.cfg.MarginThreshold),
			}
		}
	}

	if strings.EqualFold(top.Profile.DefectType, "OK") {
		if top.Score >= m.cfg.OKThreshold {
			return entity.MatchDecision{Outcome: entity.MatchOK, Matches: matches}
		}
		return entity.MatchDecision{
			Outcome: entity.MatchUnknown,
			Matches: matches,
			Warning: fmt.Sprintf("OK matched but score %.2f below OK threshold %.2f", top.Score, m.cfg.OKThreshold),
		}
	}

	return entity.MatchDecision{Outcome: entity.MatchDefect, Matches: matches}
}

// cosineSimilarity — скалярное произведение L2-нормированных векторов.
// Несовпадение размерностей трактуется как нулевая близость.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		log.Printf("matcher: embedding length mismatch: %d vs %d", len(a), len(b))
		return 0.0
	}
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
