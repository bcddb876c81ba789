package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ErrPersistence wraps durable-store read/write failures. Callers surface it;
// nothing retries internally and in-memory session state stays authoritative.
var ErrPersistence = errors.New("persistence failure")

// ErrNotFound indicates the requested sale is not in the log.
var ErrNotFound = errors.New("sale not found")

// DefaultRecentLimit caps ListRecent when the caller does not provide one.
const DefaultRecentLimit = 20

type saleRow struct {
	ID                string    `gorm:"primaryKey"`
	CreatedAt         time.Time `gorm:"index"`
	SubtotalCents     int64
	TaxCents          int64
	DiscountCents     int64
	TotalCents        int64
	PaymentMethod     string
	CashReceivedCents *int64
	ChangeGivenCents  *int64
	Items             []saleItemRow `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

func (saleRow) TableName() string { return "sales" }

type saleItemRow struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	SaleID         string `gorm:"index"`
	Position       int
	Name           string
	UnitPriceCents int64
	Qty            int
	LineTotalCents int64
}

func (saleItemRow) TableName() string { return "sale_items" }

// Store is the append-only durable log of finalized sales.
type Store struct {
	DB *gorm.DB
}

// NewStore runs schema migration and returns a Store over the connection.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("history: db is required")
	}
	if err := db.AutoMigrate(&saleRow{}, &saleItemRow{}); err != nil {
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &Store{DB: db}, nil
}

// Record appends a finalized sale. The sale is stored verbatim; nothing is
// recomputed here.
func (s *Store) Record(ctx context.Context, sale Sale) error {
	if s == nil || s.DB == nil {
		return errors.New("history store not configured")
	}
	if sale.ID == "" {
		return errors.New("history: sale id is required")
	}
	row := saleRow{
		ID:            sale.ID,
		CreatedAt:     sale.Timestamp,
		SubtotalCents: sale.Subtotal,
		TaxCents:      sale.Tax,
		DiscountCents: sale.Discount,
		TotalCents:    sale.Total,
		PaymentMethod: string(sale.PaymentMethod),
	}
	if sale.CashReceived != nil {
		v := *sale.CashReceived
		row.CashReceivedCents = &v
	}
	if sale.ChangeGiven != nil {
		v := *sale.ChangeGiven
		row.ChangeGivenCents = &v
	}
	for i, it := range sale.Items {
		row.Items = append(row.Items, saleItemRow{
			Position:       i,
			Name:           it.Name,
			UnitPriceCents: it.UnitPrice,
			Qty:            it.Qty,
			LineTotalCents: it.LineTotal,
		})
	}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("record sale %s: %v: %w", sale.ID, err, ErrPersistence)
	}
	return nil
}

// ListRecent returns the last n sales, most recent first. n is capped at the
// store size; non-positive n falls back to DefaultRecentLimit.
func (s *Store) ListRecent(ctx context.Context, n int) ([]Sale, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("history store not configured")
	}
	if n <= 0 {
		n = DefaultRecentLimit
	}
	var rows []saleRow
	// Sales sharing a timestamp tiebreak on sqlite's insert order, not the
	// random sale id.
	err := s.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at DESC, rowid DESC").
		Limit(n).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list recent sales: %v: %w", err, ErrPersistence)
	}
	out := make([]Sale, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}

// Get loads one sale by id.
func (s *Store) Get(ctx context.Context, id string) (Sale, error) {
	if s == nil || s.DB == nil {
		return Sale{}, errors.New("history store not configured")
	}
	var row saleRow
	err := s.DB.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Sale{}, fmt.Errorf("sale %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Sale{}, fmt.Errorf("load sale %s: %v: %w", id, err, ErrPersistence)
	}
	return fromRow(row), nil
}

// Clear irreversibly empties the log. The collaborator layer gathers the user
// confirmation before calling this.
func (s *Store) Clear(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("history store not configured")
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&saleItemRow{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&saleRow{}).Error
	})
	if err != nil {
		return fmt.Errorf("clear history: %v: %w", err, ErrPersistence)
	}
	return nil
}

// Count reports the number of recorded sales.
func (s *Store) Count(ctx context.Context) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("history store not configured")
	}
	var count int64
	if err := s.DB.WithContext(ctx).Model(&saleRow{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count sales: %v: %w", err, ErrPersistence)
	}
	return count, nil
}

// DailyAggregate sums count and total over sales whose timestamp falls on the
// given calendar date in the date's location. The aggregate is recomputed from
// the full log on every call; the log is small and append-only, so no cache.
func (s *Store) DailyAggregate(ctx context.Context, date time.Time) (DailySummary, error) {
	if s == nil || s.DB == nil {
		return DailySummary{}, errors.New("history store not configured")
	}
	var rows []saleRow
	if err := s.DB.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return DailySummary{}, fmt.Errorf("scan sales log: %v: %w", err, ErrPersistence)
	}
	loc := date.Location()
	wantYear, wantMonth, wantDay := date.Date()
	summary := DailySummary{Date: date.Format("2006-01-02")}
	for _, row := range rows {
		y, m, d := row.CreatedAt.In(loc).Date()
		if y == wantYear && m == wantMonth && d == wantDay {
			summary.Count++
			summary.Total += row.TotalCents
		}
	}
	return summary, nil
}

func fromRow(row saleRow) Sale {
	sale := Sale{
		ID:            row.ID,
		Timestamp:     row.CreatedAt,
		Subtotal:      row.SubtotalCents,
		Tax:           row.TaxCents,
		Discount:      row.DiscountCents,
		Total:         row.TotalCents,
		PaymentMethod: Method(row.PaymentMethod),
	}
	if row.CashReceivedCents != nil {
		v := *row.CashReceivedCents
		sale.CashReceived = &v
	}
	if row.ChangeGivenCents != nil {
		v := *row.ChangeGivenCents
		sale.ChangeGiven = &v
	}
	for _, it := range row.Items {
		sale.Items = append(sale.Items, SaleItem{
			Name:      it.Name,
			UnitPrice: it.UnitPriceCents,
			Qty:       it.Qty,
			LineTotal: it.LineTotalCents,
		})
	}
	return sale
}
