package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"defect-bot/internal/domain/entity"
	"defect-bot/internal/domain/port"
)

// CreateIncident записывает инцидент распознавания в журнал.
func (s *Store) CreateIncident(ctx context.Context, incident *entity.DefectIncident) error {
	if incident.ID == uuid.Nil {
		incident.ID = uuid.New()
	}
	if incident.CreatedAt.IsZero() {
		incident.CreatedAt = time.Now().UTC()
	}

	embedding, err := json.Marshal(incident.ImageEmbedding)
	if err != nil {
		return fmt.Errorf("marshal incident embedding: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO defect_incidents (
			id, user_id, predicted_defect_type, confidence, image_embedding, created_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
		incident.ID.String(),
		incident.UserID,
		incident.PredictedDefectType,
		incident.Confidence,
		string(embedding),
		incident.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert defect incident: %w", err)
	}
	return nil
}

// ListIncidentsByUser возвращает последние инциденты пользователя.
func (s *Store) ListIncidentsByUser(ctx context.Context, userID string, limit int) ([]*entity.DefectIncident, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, user_id, predicted_defect_type, confidence, image_embedding, created_at
		FROM defect_incidents
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list defect incidents: %w", err)
	}
	defer rows.Close()

	var incidents []*entity.DefectIncident
	for rows.Next() {
		var (
			incident  entity.DefectIncident
			id        string
			embedding string
			createdAt string
		)
		if scanErr := rows.Scan(&id, &incident.UserID, &incident.PredictedDefectType, &incident.Confidence, &embedding, &createdAt); scanErr != nil {
			return nil, fmt.Errorf("scan defect incident: %w", scanErr)
		}

		incident.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse incident id: %w", err)
		}
		if err := json.Unmarshal([]byte(embedding), &incident.ImageEmbedding); err != nil {
			return nil, fmt.Errorf("parse incident embedding: %w", err)
		}
		incident.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}

		incidents = append(incidents, &incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list defect incidents: %w", err)
	}
	return incidents, nil
}

// Проверка реализации интерфейса
var _ port.IncidentRepository = (*Store)(nil)
