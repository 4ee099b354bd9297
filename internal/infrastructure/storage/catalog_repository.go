package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"defect-bot/internal/domain/entity"
	"defect-bot/internal/domain/port"
)

// CreateCustomer сохраняет заказчика.
func (s *Store) CreateCustomer(ctx context.Context, customer *entity.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO customers (id, name, created_at) VALUES (?, ?, ?)`,
		customer.ID.String(), customer.Name, customer.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// ListCustomers возвращает всех заказчиков.
func (s *Store) ListCustomers(ctx context.Context) ([]*entity.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM customers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []*entity.Customer
	for rows.Next() {
		var (
			customer  entity.Customer
			id        string
			createdAt string
		)
		if scanErr := rows.Scan(&id, &customer.Name, &createdAt); scanErr != nil {
			return nil, fmt.Errorf("scan customer: %w", scanErr)
		}
		customer.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse customer id: %w", err)
		}
		customer.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		customers = append(customers, &customer)
	}
	return customers, rows.Err()
}

// CreateProduct сохраняет изделие заказчика.
func (s *Store) CreateProduct(ctx context.Context, product *entity.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO products (id, customer_id, part_code, part_name, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		product.ID.String(), product.CustomerID.String(),
		product.PartCode, product.PartName,
		product.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// ListProducts возвращает изделия заказчика.
func (s *Store) ListProducts(ctx context.Context, customerID uuid.UUID) ([]*entity.Product, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, customer_id, part_code, part_name, created_at
		FROM products WHERE customer_id = ? ORDER BY part_code`,
		customerID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []*entity.Product
	for rows.Next() {
		var (
			product    entity.Product
			id         string
			customerID string
			createdAt  string
		)
		if scanErr := rows.Scan(&id, &customerID, &product.PartCode, &product.PartName, &createdAt); scanErr != nil {
			return nil, fmt.Errorf("scan product: %w", scanErr)
		}
		product.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse product id: %w", err)
		}
		product.CustomerID, err = uuid.Parse(customerID)
		if err != nil {
			return nil, fmt.Errorf("parse customer id: %w", err)
		}
		product.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		products = append(products, &product)
	}
	return products, rows.Err()
}

// Проверка реализации интерфейса
var _ port.CatalogRepository = (*Store)(nil)
