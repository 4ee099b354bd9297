package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"defect-bot/internal/domain/entity"
	"defect-bot/internal/domain/port"
)

// CatalogService управляет базой знаний: заказчики, изделия и
// эталонные профили дефектов.
type CatalogService struct {
	catalog  port.CatalogRepository
	profiles port.ProfileRepository
	embedder port.Embedder
}

// NewCatalogService создаёт сервис базы знаний.
func NewCatalogService(catalog port.CatalogRepository, profiles port.ProfileRepository, embedder port.Embedder) *CatalogService {
	return &CatalogService{catalog: catalog, profiles: profiles, embedder: embedder}
}

// ProfileInput — данные нового профиля дефекта.
type ProfileInput struct {
	Customer          string
	PartCode          string
	PartName          string
	DefectType        string
	DefectTitle       string
	DefectDescription string
	Keywords          []string
	Severity          string
	ReferenceImages   []string // пути к сохранённым эталонным файлам
	ImageData         [][]byte // байты эталонных изображений
}

// CreateProfile строит профиль дефекта: эмбеддинги эталонных фото
// усредняются, текстовый эмбеддинг считается по склейке заголовка,
// описания и ключевых слов.
func (s *CatalogService) CreateProfile(ctx context.Context, input ProfileInput) (*entity.DefectProfile, error) {
	if input.DefectType == "" {
		return nil, errors.New("defect type is required")
	}
	if len(input.ImageData) == 0 {
		return nil, errors.New("at least one reference image is required")
	}

	embeddings := make([][]float64, 0, len(input.ImageData))
	for i, data := range input.ImageData {
		emb, err := s.embedder.ImageEmbedding(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("reference image %d embedding: %w", i, err)
		}
		embeddings = append(embeddings, emb)
	}

	imageEmbedding, err := averageEmbeddings(embeddings)
	if err != nil {
		return nil, err
	}

	textSource := fmt.Sprintf("%s. %s. %s", input.DefectTitle, input.DefectDescription, strings.Join(input.Keywords, ", "))
	textEmbedding, err := s.embedder.TextEmbedding(ctx, textSource)
	if err != nil {
		return nil, fmt.Errorf("text embedding: %w", err)
	}

	severity := input.Severity
	if severity == "" {
		severity = "minor"
	}

	profile := &entity.DefectProfile{
		Customer:          input.Customer,
		PartCode:          input.PartCode,
		PartName:          input.PartName,
		DefectType:        input.DefectType,
		DefectTitle:       input.DefectTitle,
		DefectDescription: input.DefectDescription,
		Keywords:          input.Keywords,
		Severity:          severity,
		ReferenceImages:   input.ReferenceImages,
		ImageEmbedding:    imageEmbedding,
		TextEmbedding:     textEmbedding,
	}

	if err := s.profiles.CreateProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// GetProfile возвращает профиль по идентификатору.
func (s *CatalogService) GetProfile(ctx context.Context, id uuid.UUID) (*entity.DefectProfile, error) {
	return s.profiles.GetProfile(ctx, id)
}

// ListProfiles возвращает профили по фильтру контекста.
func (s *CatalogService) ListProfiles(ctx context.Context, filter port.ProfileFilter) ([]*entity.DefectProfile, error) {
	return s.profiles.ListProfiles(ctx, filter)
}

// CreateCustomer сохраняет заказчика.
func (s *CatalogService) CreateCustomer(ctx context.Context, name string) (*entity.Customer, error) {
	if name == "" {
		return nil, errors.New("customer name is required")
	}
	customer := &entity.Customer{Name: name}
	if err := s.catalog.CreateCustomer(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

// ListCustomers возвращает всех заказчиков.
func (s *CatalogService) ListCustomers(ctx context.Context) ([]*entity.Customer, error) {
	return s.catalog.ListCustomers(ctx)
}

// CreateProduct сохраняет изделие заказчика.
func (s *CatalogService) CreateProduct(ctx context.Context, customerID uuid.UUID, partCode, partName string) (*entity.Product, error) {
	if partCode == "" {
		return nil, errors.New("part code is required")
	}
	product := &entity.Product{CustomerID: customerID, PartCode: partCode, PartName: partName}
	if err := s.catalog.CreateProduct(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// ListProducts возвращает изделия заказчика.
func (s *CatalogService) ListProducts(ctx context.Context, customerID uuid.UUID) ([]*entity.Product, error) {
	return s.catalog.ListProducts(ctx, customerID)
}

// averageEmbeddings усредняет эмбеддинги эталонных изображений.
func averageEmbeddings(embeddings [][]float64) ([]float64, error) {
	if len(embeddings) == 0 {
		return nil, errors.New("no embeddings to average")
	}

	dim := len(embeddings[0])
	for i, emb := range embeddings {
		if len(emb) != dim {
			return nil, fmt.Errorf("embedding %d has length %d, want %d", i, len(emb), dim)
		}
	}

	avg := make([]float64, dim)
	for _, emb := range embeddings {
		for j, v := range emb {
			avg[j] += v
		}
	}
	for j := range avg {
		avg[j] /= float64(len(embeddings))
	}
	return avg, nil
}
