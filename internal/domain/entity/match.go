package entity

// ScoredMatch — профиль-кандидат с посчитанной близостью к запросу.
type ScoredMatch struct {
	Profile         *DefectProfile
	Score           float64 // взвешенная итоговая близость
	ImageSimilarity float64
	TextSimilarity  float64
}

// MatchOutcome — итог сопоставления с базой профилей.
type MatchOutcome string

const (
	MatchOK      MatchOutcome = "OK"      // уверенно совпал профиль «OK»
	MatchDefect  MatchOutcome = "DEFECT"  // уверенно совпал профиль дефекта
	MatchUnknown MatchOutcome = "UNKNOWN" // нет уверенного совпадения
)

// MatchDecision — результат политики принятия решения над топ-K.
// UNKNOWN — ожидаемый бизнес-результат, а не ошибка: Warning объясняет причину.
type MatchDecision struct {
	Outcome MatchOutcome
	Matches []ScoredMatch // топ-K по убыванию Score
	Warning string
}

// Best возвращает лидирующего кандидата или nil.
func (d MatchDecision) Best() *ScoredMatch {
	if len(d.Matches) == 0 {
		return nil
	}
	return &d.Matches[0]
}
