// Package gormstore implements the engine's persistence interfaces on
// top of gorm. The sqlite driver keeps local and test setups
// dependency-free; the schema carries over to other gorm dialects.
package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brennholz24/invoicegen"
)

// Compile-time interface checks.
var (
	_ invoicegen.OrderStore    = (*orderStore)(nil)
	_ invoicegen.InvoiceStore  = (*invoiceStore)(nil)
	_ invoicegen.CustomerStore = (*customerStore)(nil)
	_ invoicegen.DiscountStore = (*Store)(nil)
	_ invoicegen.SettingsStore = (*Store)(nil)
	_ invoicegen.CounterStore  = (*Store)(nil)
)

// Store owns the gorm handle and exposes the engine's persistence
// interfaces. Order, invoice, and customer lookups live on dedicated
// facets because their interfaces share method names with differing
// return types.
type Store struct {
	db   *gorm.DB
	node *snowflake.Node
}

// Open opens (and creates if needed) the sqlite database at path.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// New creates a Store and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("creating id node: %w", err)
	}

	if err := db.AutoMigrate(
		&Order{}, &OrderItem{}, &Invoice{}, &Customer{},
		&DiscountCode{}, &Setting{}, &DocumentCounter{},
	); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &Store{db: db, node: node}, nil
}

// Stores bundles this Store into the engine's collaborator set. The
// blob store is passed in because binary documents live on disk, not
// in the database.
func (s *Store) Stores(blobs invoicegen.BlobStore) invoicegen.Stores {
	return invoicegen.Stores{
		Orders:    s.Orders(),
		Invoices:  s.Invoices(),
		Customers: s.Customers(),
		Discounts: s,
		Settings:  s,
		Counters:  s,
		Blobs:     blobs,
	}
}

// Orders returns the order lookup facet.
func (s *Store) Orders() invoicegen.OrderStore { return &orderStore{db: s.db} }

// Invoices returns the invoice facet.
func (s *Store) Invoices() invoicegen.InvoiceStore { return &invoiceStore{db: s.db, node: s.node} }

// Customers returns the customer lookup facet.
func (s *Store) Customers() invoicegen.CustomerStore { return &customerStore{db: s.db} }

type orderStore struct {
	db *gorm.DB
}

func (s *orderStore) FindByID(ctx context.Context, id string) (*invoicegen.Order, error) {
	var row Order
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return orderToEngine(&row)
}

func (s *orderStore) FindByNumber(ctx context.Context, number string) (*invoicegen.Order, error) {
	var row Order
	if err := s.db.WithContext(ctx).First(&row, "order_number = ?", number).Error; err != nil {
		return nil, mapErr(err)
	}
	return orderToEngine(&row)
}

func (s *orderStore) ItemsByOrderID(ctx context.Context, orderID string) ([]invoicegen.OrderItem, error) {
	var rows []OrderItem
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	items := make([]invoicegen.OrderItem, len(rows))
	for i, row := range rows {
		items[i] = invoicegen.OrderItem{
			ID:          row.ID,
			OrderID:     row.OrderID,
			Description: row.Description,
			Quantity:    row.Quantity,
			UnitPrice:   row.UnitPrice,
			TotalPrice:  row.TotalPrice,
			ProductCode: row.ProductCode,
			Category:    row.Category,
		}
	}
	return items, nil
}

type invoiceStore struct {
	db   *gorm.DB
	node *snowflake.Node
}

func (s *invoiceStore) FindByNumber(ctx context.Context, number string) (*invoicegen.Invoice, error) {
	return s.find(ctx, "number = ?", number)
}

func (s *invoiceStore) FindByID(ctx context.Context, id string) (*invoicegen.Invoice, error) {
	return s.find(ctx, "id = ?", id)
}

func (s *invoiceStore) find(ctx context.Context, query, arg string) (*invoicegen.Invoice, error) {
	var row Invoice
	if err := s.db.WithContext(ctx).First(&row, query, arg).Error; err != nil {
		return nil, mapErr(err)
	}
	return invoiceToEngine(&row), nil
}

// Create persists a new invoice record. It also backfills the invoice
// number on the linked order so the next render reuses it.
func (s *invoiceStore) Create(ctx context.Context, inv *invoicegen.Invoice) error {
	row := Invoice{
		ID:         s.node.Generate().String(),
		Number:     inv.Number,
		OrderID:    inv.OrderID,
		CustomerID: inv.CustomerID,
		IssueDate:  inv.IssueDate,
		DueDate:    inv.DueDate,
		Subtotal:   inv.Subtotal,
		TaxAmount:  inv.TaxAmount,
		Total:      inv.Total,
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		inv.ID = row.ID
		if row.OrderID == "" {
			return nil
		}
		return tx.Model(&Order{}).
			Where("id = ?", row.OrderID).
			Update("invoice_number", row.Number).Error
	})
}

type customerStore struct {
	db *gorm.DB
}

func (s *customerStore) FindByID(ctx context.Context, id string) (*invoicegen.Customer, error) {
	var row Customer
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &invoicegen.Customer{
		ID:             row.ID,
		CustomerNumber: row.CustomerNumber,
		Name:           row.Name,
		Email:          row.Email,
		Phone:          row.Phone,
		Company:        row.Company,
		Address: invoicegen.Address{
			Street:      row.Street,
			HouseNumber: row.HouseNumber,
			PostalCode:  row.PostalCode,
			City:        row.City,
		},
	}, nil
}

// FindByCode implements invoicegen.DiscountStore.
func (s *Store) FindByCode(ctx context.Context, code string) (*invoicegen.DiscountCode, error) {
	var row DiscountCode
	if err := s.db.WithContext(ctx).First(&row, "code = ?", code).Error; err != nil {
		return nil, mapErr(err)
	}
	return &invoicegen.DiscountCode{Code: row.Code, Description: row.Description}, nil
}

// CompanySettings implements invoicegen.SettingsStore.
func (s *Store) CompanySettings(ctx context.Context) (*invoicegen.CompanySettings, error) {
	var row Setting
	if err := s.db.WithContext(ctx).First(&row).Error; err != nil {
		return nil, mapErr(err)
	}

	var settings invoicegen.CompanySettings
	if err := json.Unmarshal(row.Payload, &settings); err != nil {
		return nil, fmt.Errorf("decoding settings payload: %w", err)
	}
	return &settings, nil
}

// SaveCompanySettings persists the settings payload, creating the row
// on first use.
func (s *Store) SaveCompanySettings(ctx context.Context, settings *invoicegen.CompanySettings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding settings payload: %w", err)
	}

	row := Setting{ID: 1, Payload: payload}
	return s.db.WithContext(ctx).Save(&row).Error
}

// EnsureCounter implements invoicegen.CounterStore.
func (s *Store) EnsureCounter(ctx context.Context) (string, int64, error) {
	row := DocumentCounter{
		Prefix:  invoicegen.DefaultNumberPrefix,
		Counter: invoicegen.InitialCounter,
	}
	err := s.db.WithContext(ctx).
		Where(DocumentCounter{Prefix: invoicegen.DefaultNumberPrefix}).
		FirstOrCreate(&row).Error
	if err != nil {
		return "", 0, err
	}
	return row.Prefix, row.Counter, nil
}

// IssuedNumbers implements invoicegen.CounterStore.
func (s *Store) IssuedNumbers(ctx context.Context, prefix string) ([]string, error) {
	var numbers []string
	err := s.db.WithContext(ctx).
		Model(&Invoice{}).
		Where("number LIKE ?", prefix+"%").
		Pluck("number", &numbers).Error
	if err != nil {
		return nil, err
	}
	return numbers, nil
}

// AdvanceCounter implements invoicegen.CounterStore with a single
// conditional UPDATE. A concurrent allocator that moved the counter
// first makes the WHERE clause miss, which surfaces as
// ErrCounterConflict so the caller re-reads and retries.
func (s *Store) AdvanceCounter(ctx context.Context, prefix string, from, to int64) error {
	res := s.db.WithContext(ctx).
		Model(&DocumentCounter{}).
		Where("prefix = ? AND counter = ?", prefix, from).
		Update("counter", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: counter for %q moved past %d", invoicegen.ErrCounterConflict, prefix, from)
	}
	return nil
}

// mapErr translates gorm's not-found into the engine sentinel.
func mapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return invoicegen.ErrNotFound
	}
	return err
}

func invoiceToEngine(row *Invoice) *invoicegen.Invoice {
	return &invoicegen.Invoice{
		ID:         row.ID,
		Number:     row.Number,
		OrderID:    row.OrderID,
		CustomerID: row.CustomerID,
		IssueDate:  row.IssueDate,
		DueDate:    row.DueDate,
		Subtotal:   row.Subtotal,
		TaxAmount:  row.TaxAmount,
		Total:      row.Total,
	}
}

// orderToEngine converts an order row, decoding the optional delivery
// address blob.
func orderToEngine(row *Order) (*invoicegen.Order, error) {
	order := &invoicegen.Order{
		ID:             row.ID,
		OrderNumber:    row.OrderNumber,
		CustomerID:     row.CustomerID,
		InvoiceNumber:  row.InvoiceNumber,
		TotalAmount:    row.TotalAmount,
		TaxAmount:      row.TaxAmount,
		DeliveryFee:    row.DeliveryFee,
		DiscountAmount: row.DiscountAmount,
		DiscountCode:   row.DiscountCode,
		PaymentTerms:   row.PaymentTerms,
		Notes:          row.Notes,
		CreatedAt:      row.CreatedAt,
	}

	if len(row.DeliveryAddress) > 0 {
		var addr invoicegen.Address
		if err := json.Unmarshal(row.DeliveryAddress, &addr); err != nil {
			return nil, fmt.Errorf("decoding delivery address for order %s: %w", row.ID, err)
		}
		order.DeliveryAddr = &addr
	}
	return order, nil
}
