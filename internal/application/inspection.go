package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"defect-bot/internal/domain/entity"
	"defect-bot/internal/domain/port"
)

// InspectionService — двухэтапный конвейер распознавания дефектов:
// этап 1 — визуальная инспекция (OK/NG + области), этап 2 — вырезка
// лучшей области и сопоставление с базой профилей по эмбеддингам.
// Инспектор опционален: без него сервис работает в режиме «только
// сопоставление» по целому кадру.
type InspectionService struct {
	users     *UserService
	inspector port.VisionInspector // nil — визуальный конвейер выключен
	embedder  port.Embedder
	matcher   *Matcher
	profiles  port.ProfileRepository
	incidents port.IncidentRepository
	matchOnOK bool
}

// InspectionOutput — итог обработки одного фото.
type InspectionOutput struct {
	Vision   *entity.InspectionResult // nil, если визуальный конвейер выключен
	Decision entity.MatchDecision
	Matched  bool // выполнялось ли сопоставление
	Cropped  bool // сопоставление шло по вырезанной области дефекта
}

// NewInspectionService создаёт сервис распознавания.
func NewInspectionService(
	users *UserService,
	inspector port.VisionInspector,
	embedder port.Embedder,
	matcher *Matcher,
	profiles port.ProfileRepository,
	incidents port.IncidentRepository,
	matchOnOK bool,
) *InspectionService {
	return &InspectionService{
		users:     users,
		inspector: inspector,
		embedder:  embedder,
		matcher:   matcher,
		profiles:  profiles,
		incidents: incidents,
		matchOnOK: matchOnOK,
	}
}

// ProcessDefectPhoto прогоняет фото через двухэтапный конвейер.
// Поток: инспекция → при NG вырезка лучшей области → эмбеддинг →
// сопоставление с профилями контекста → запись инцидента при
// уверенном исходе.
func (s *InspectionService) ProcessDefectPhoto(ctx context.Context, userID string, photo []byte, textQuery string, filter port.ProfileFilter) (*InspectionOutput, error) {
	if s.embedder == nil || s.matcher == nil {
		return nil, errors.New("matcher is not configured")
	}

	output := &InspectionOutput{}
	matchInput := photo

	if s.inspector != nil {
		imageID := uuid.NewString()
		output.Vision = s.inspector.Inspect(ctx, photo, imageID)

		if output.Vision.Result == entity.VerdictNG && output.Vision.HasDefects() {
			cropped, err := s.inspector.CropBestRegion(photo, output.Vision.DefectRegions)
			if err != nil {
				// Неудачная вырезка деградирует до целого кадра.
				log.Printf("inspection: crop best region: %v", err)
			} else if len(cropped) > 0 {
				matchInput = cropped
				output.Cropped = true
			}
		}

		// Вердикт OK без принудительного сопоставления завершает конвейер.
		if output.Vision.Result == entity.VerdictOK && !s.matchOnOK {
			return output, nil
		}
	}

	imageEmbedding, err := s.embedder.ImageEmbedding(ctx, matchInput)
	if err != nil {
		return nil, fmt.Errorf("image embedding: %w", err)
	}

	candidates, err := s.profiles.ListProfiles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list defect profiles: %w", err)
	}

	matches, err := s.matcher.FindTopK(ctx, imageEmbedding, textQuery, candidates, 0)
	if err != nil {
		return nil, err
	}

	output.Decision = s.matcher.Decide(matches)
	output.Matched = true

	// Уверенный исход фиксируется в журнале; отказ журнала не должен
	// ломать ответ пользователю.
	if output.Decision.Outcome == entity.MatchOK || output.Decision.Outcome == entity.MatchDefect {
		best := output.Decision.Best()
		incident := &entity.DefectIncident{
			UserID:              userID,
			PredictedDefectType: best.Profile.DefectType,
			Confidence:          best.Score,
			ImageEmbedding:      imageEmbedding,
		}
		if err := s.incidents.CreateIncident(ctx, incident); err != nil {
			log.Printf("inspection: record incident: %v", err)
		}
	}

	return output, nil
}

// History возвращает последние инциденты пользователя.
func (s *InspectionService) History(ctx context.Context, userID string, limit int) ([]*entity.DefectIncident, error) {
	return s.incidents.ListIncidentsByUser(ctx, userID, limit)
}

// TrainAnomalyDetector обучает детектор аномалий движка на OK-образцах.
func (s *InspectionService) TrainAnomalyDetector(okImages [][]byte) error {
	if s.inspector == nil {
		return errors.New("vision pipeline is not configured")
	}
	return s.inspector.TrainAnomalyDetector(okImages)
}
