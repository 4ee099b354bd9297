package port

import (
	"context"

	"github.com/google/uuid"

	"defect-bot/internal/domain/entity"
)

// ProfileFilter ограничивает выборку профилей контекстом продукта.
type ProfileFilter struct {
	Customer   string
	PartCode   string
	DefectType string
	Limit      int
}

// ProfileRepository интерфейс хранилища профилей дефектов.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile *entity.DefectProfile) error
	GetProfile(ctx context.Context, id uuid.UUID) (*entity.DefectProfile, error)
	ListProfiles(ctx context.Context, filter ProfileFilter) ([]*entity.DefectProfile, error)
}

// IncidentRepository интерфейс журнала инцидентов.
type IncidentRepository interface {
	CreateIncident(ctx context.Context, incident *entity.DefectIncident) error
	ListIncidentsByUser(ctx context.Context, userID string, limit int) ([]*entity.DefectIncident, error)
}

// CatalogRepository интерфейс справочников заказчиков и изделий.
type CatalogRepository interface {
	CreateCustomer(ctx context.Context, customer *entity.Customer) error
	ListCustomers(ctx context.Context) ([]*entity.Customer, error)
	CreateProduct(ctx context.Context, product *entity.Product) error
	ListProducts(ctx context.Context, customerID uuid.UUID) ([]*entity.Product, error)
}
