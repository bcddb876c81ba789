package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/money"
)

// ErrNotFound indicates the named product is not in the catalog.
var ErrNotFound = errors.New("product not found")

// ErrInvalidInput is returned when the provided product fields are invalid.
var ErrInvalidInput = errors.New("invalid input")

// ErrPersistence wraps durable-store failures.
var ErrPersistence = errors.New("persistence failure")

// Product is a saved quick-add catalog entry.
type Product struct {
	Name  string      `json:"name"`
	Price money.Money `json:"price"`
}

type productRow struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	Name       string    `gorm:"uniqueIndex"`
	PriceCents int64
	CreatedAt  time.Time
}

func (productRow) TableName() string { return "saved_products" }

// Service manages the saved-products catalog backing the register's
// quick-add buttons.
type Service struct {
	DB     *gorm.DB
	Events *events.Bus
}

// NewService runs schema migration and returns a Service over the connection.
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, errors.New("catalog: db is required")
	}
	if err := db.AutoMigrate(&productRow{}); err != nil {
		return nil, fmt.Errorf("catalog: migrate: %w", err)
	}
	return &Service{DB: db}, nil
}

// Add saves a new product. Names are unique case-insensitively.
func (s *Service) Add(ctx context.Context, name string, price money.Money) (Product, error) {
	if s == nil || s.DB == nil {
		return Product{}, errors.New("catalog service not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Product{}, fmt.Errorf("product name required: %w", ErrInvalidInput)
	}
	if price <= 0 {
		return Product{}, fmt.Errorf("product price must be positive: %w", ErrInvalidInput)
	}
	var count int64
	if err := s.DB.WithContext(ctx).Model(&productRow{}).
		Where("LOWER(name) = LOWER(?)", name).Count(&count).Error; err != nil {
		return Product{}, fmt.Errorf("check product %q: %v: %w", name, err, ErrPersistence)
	}
	if count > 0 {
		return Product{}, fmt.Errorf("product %q already exists: %w", name, ErrInvalidInput)
	}
	row := productRow{Name: name, PriceCents: price}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return Product{}, fmt.Errorf("save product %q: %v: %w", name, err, ErrPersistence)
	}
	s.emit(ctx, "added", name)
	return Product{Name: name, Price: price}, nil
}

// Remove deletes a product by name.
func (s *Service) Remove(ctx context.Context, name string) error {
	if s == nil || s.DB == nil {
		return errors.New("catalog service not configured")
	}
	res := s.DB.WithContext(ctx).Where("LOWER(name) = LOWER(?)", strings.TrimSpace(name)).Delete(&productRow{})
	if res.Error != nil {
		return fmt.Errorf("remove product %q: %v: %w", name, res.Error, ErrPersistence)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %q: %w", name, ErrNotFound)
	}
	s.emit(ctx, "removed", name)
	return nil
}

// Get loads one product by name.
func (s *Service) Get(ctx context.Context, name string) (Product, error) {
	if s == nil || s.DB == nil {
		return Product{}, errors.New("catalog service not configured")
	}
	var row productRow
	err := s.DB.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", strings.TrimSpace(name)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Product{}, fmt.Errorf("product %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Product{}, fmt.Errorf("load product %q: %v: %w", name, err, ErrPersistence)
	}
	return Product{Name: row.Name, Price: row.PriceCents}, nil
}

// List returns all saved products in insertion order. An absent or empty
// store yields an empty list.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("catalog service not configured")
	}
	var rows []productRow
	if err := s.DB.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list products: %v: %w", err, ErrPersistence)
	}
	out := make([]Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, Product{Name: row.Name, Price: row.PriceCents})
	}
	return out, nil
}

func (s *Service) emit(ctx context.Context, action, name string) {
	if s.Events == nil {
		return
	}
	_, _ = s.Events.Emit(ctx, events.TopicCatalogUpdated, map[string]any{
		"action": action,
		"name":   name,
	})
}
