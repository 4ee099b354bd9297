package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"defect-bot/internal/domain/entity"
	"defect-bot/internal/domain/port"
)

// ErrNotFound — запись не найдена.
var ErrNotFound = errors.New("not found")

// CreateProfile сохраняет профиль дефекта.
func (s *Store) CreateProfile(ctx context.Context, profile *entity.DefectProfile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}

	keywords, err := json.Marshal(profile.Keywords)
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}
	references, err := json.Marshal(profile.ReferenceImages)
	if err != nil {
		return fmt.Errorf("marshal reference images: %w", err)
	}
	imageEmb, err := json.Marshal(profile.ImageEmbedding)
	if err != nil {
		return fmt.Errorf("marshal image embedding: %w", err)
	}
	textEmb, err := json.Marshal(profile.TextEmbedding)
	if err != nil {
		return fmt.Errorf("marshal text embedding: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO defect_profiles (
			id, customer, part_code, part_name, defect_type, defect_title,
			defect_description, keywords, severity, reference_images,
			image_embedding, text_embedding, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		profile.ID.String(),
		profile.Customer,
		profile.PartCode,
		profile.PartName,
		profile.DefectType,
		profile.DefectTitle,
		profile.DefectDescription,
		string(keywords),
		profile.Severity,
		string(references),
		string(imageEmb),
		string(textEmb),
		profile.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert defect profile: %w", err)
	}
	return nil
}

// GetProfile возвращает профиль по идентификатору.
func (s *Store) GetProfile(ctx context.Context, id uuid.UUID) (*entity.DefectProfile, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, customer, part_code, part_name, defect_type, defect_title,
			defect_description, keywords, severity, reference_images,
			image_embedding, text_embedding, created_at
		FROM defect_profiles WHERE id = ?`,
		id.String(),
	)

	profile, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get defect profile: %w", err)
	}
	return profile, nil
}

// ListProfiles возвращает профили, отфильтрованные контекстом продукта.
func (s *Store) ListProfiles(ctx context.Context, filter port.ProfileFilter) ([]*entity.DefectProfile, error) {
	query := `SELECT id, customer, part_code, part_name, defect_type, defect_title,
		defect_description, keywords, severity, reference_images,
		image_embedding, text_embedding, created_at
	FROM defect_profiles`

	var conditions []string
	var args []any
	if filter.Customer != "" {
		conditions = append(conditions, "customer = ?")
		args = append(args, filter.Customer)
	}
	if filter.PartCode != "" {
		conditions = append(conditions, "part_code = ?")
		args = append(args, filter.PartCode)
	}
	if filter.DefectType != "" {
		conditions = append(conditions, "defect_type = ?")
		args = append(args, filter.DefectType)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list defect profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*entity.DefectProfile
	for rows.Next() {
		profile, scanErr := scanProfile(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan defect profile: %w", scanErr)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list defect profiles: %w", err)
	}
	return profiles, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*entity.DefectProfile, error) {
	var (
		profile    entity.DefectProfile
		id         string
		keywords   string
		references string
		imageEmb   string
		textEmb    string
		createdAt  string
	)

	err := row.Scan(
		&id, &profile.Customer, &profile.PartCode, &profile.PartName,
		&profile.DefectType, &profile.DefectTitle, &profile.DefectDescription,
		&keywords, &profile.Severity, &references, &imageEmb, &textEmb, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	profile.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse profile id: %w", err)
	}
	if err := json.Unmarshal([]byte(keywords), &profile.Keywords); err != nil {
		return nil, fmt.Errorf("parse keywords: %w", err)
	}
	if err := json.Unmarshal([]byte(references), &profile.ReferenceImages); err != nil {
		return nil, fmt.Errorf("parse reference images: %w", err)
	}
	if err := json.Unmarshal([]byte(imageEmb), &profile.ImageEmbedding); err != nil {
		return nil, fmt.Errorf("parse image embedding: %w", err)
	}
	if err := json.Unmarshal([]byte(textEmb), &profile.TextEmbedding); err != nil {
		return nil, fmt.Errorf("parse text embedding: %w", err)
	}
	profile.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &profile, nil
}

// Проверка реализации интерфейса
var _ port.ProfileRepository = (*Store)(nil)
