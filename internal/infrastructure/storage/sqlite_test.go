package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"defect-bot/internal/domain/entity"
	"defect-bot/internal/domain/port"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestProfileRoundtrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	profile := &entity.DefectProfile{
		Customer:          "Завод №1",
		PartCode:          "P-100",
		PartName:          "Корпус насоса",
		DefectType:        "crack",
		DefectTitle:       "Трещина корпуса",
		DefectDescription: "Продольная трещина вдоль ребра жёсткости",
		Keywords:          []string{"трещина", "корпус"},
		Severity:          "critical",
		ReferenceImages:   []string{"refs/crack_01.jpg"},
		ImageEmbedding:    []float64{0.1, 0.2, 0.3},
		TextEmbedding:     []float64{0.4, 0.5, 0.6},
	}
	require.NoError(t, store.CreateProfile(ctx, profile))
	require.NotEqual(t, uuid.Nil, profile.ID)

	got, err := store.GetProfile(ctx, profile.ID)
	require.NoError(t, err)
	require.Equal(t, profile.DefectType, got.DefectType)
	require.Equal(t, profile.Keywords, got.Keywords)
	require.Equal(t, profile.ImageEmbedding, got.ImageEmbedding)
	require.Equal(t, profile.TextEmbedding, got.TextEmbedding)
	require.Equal(t, profile.ReferenceImages, got.ReferenceImages)
}

func TestGetProfileNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetProfile(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListProfilesFilter(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, p := range []*entity.DefectProfile{
		{Customer: "Завод №1", PartCode: "P-100", DefectType: "crack"},
		{Customer: "Завод №1", PartCode: "P-200", DefectType: "hole"},
		{Customer: "Завод №2", PartCode: "P-100", DefectType: "crack"},
	} {
		require.NoError(t, store.CreateProfile(ctx, p))
	}

	all, err := store.ListProfiles(ctx, port.ProfileFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	byCustomer, err := store.ListProfiles(ctx, port.ProfileFilter{Customer: "Завод №1"})
	require.NoError(t, err)
	require.Len(t, byCustomer, 2)

	byPart, err := store.ListProfiles(ctx, port.ProfileFilter{Customer: "Завод №1", PartCode: "P-100"})
	require.NoError(t, err)
	require.Len(t, byPart, 1)
	require.Equal(t, "crack", byPart[0].DefectType)

	byType, err := store.ListProfiles(ctx, port.ProfileFilter{DefectType: "hole"})
	require.NoError(t, err)
	require.Len(t, byType, 1)

	limited, err := store.ListProfiles(ctx, port.ProfileFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
}

func TestIncidentRoundtrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	older := &entity.DefectIncident{
		UserID:              "u1",
		PredictedDefectType: "crack",
		Confidence:          0.91,
		ImageEmbedding:      []float64{0.1, 0.2},
		CreatedAt:           time.Now().UTC().Add(-time.Hour),
	}
	newer := &entity.DefectIncident{
		UserID:              "u1",
		PredictedDefectType: "hole",
		Confidence:          0.84,
	}
	require.NoError(t, store.CreateIncident(ctx, older))
	require.NoError(t, store.CreateIncident(ctx, newer))
	require.NoError(t, store.CreateIncident(ctx, &entity.DefectIncident{UserID: "u2", PredictedDefectType: "crack"}))

	incidents, err := store.ListIncidentsByUser(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, incidents, 2)

	// Свежие инциденты первыми.
	require.Equal(t, "hole", incidents[0].PredictedDefectType)
	require.Equal(t, "crack", incidents[1].PredictedDefectType)
	require.Equal(t, []float64{0.1, 0.2}, incidents[1].ImageEmbedding)
}

func TestCatalogRoundtrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	customer := &entity.Customer{Name: "Завод №1"}
	require.NoError(t, store.CreateCustomer(ctx, customer))
	require.NotEqual(t, uuid.Nil, customer.ID)

	customers, err := store.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 1)

	product := &entity.Product{CustomerID: customer.ID, PartCode: "P-100", PartName: "Корпус насоса"}
	require.NoError(t, store.CreateProduct(ctx, product))

	products, err := store.ListProducts(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "P-100", products[0].PartCode)

	// Изделия другого заказчика не попадают в выборку.
	other, err := store.ListProducts(ctx, uuid.New())
	require.NoError(t, err)
	require.Empty(t, other)
}
