package invoicegen

import (
	"context"
	"time"
)

// Order is a persisted order record as seen by this engine. Amounts are
// gross (tax included); TotalAmount is the value actually charged and is
// treated as ground truth for totals reconciliation.
type Order struct {
	ID             string
	OrderNumber    string // human-readable business key, e.g. "BH-2024-0042"
	CustomerID     string
	InvoiceNumber  string // empty until an invoice has been created
	TotalAmount    float64
	TaxAmount      float64
	DeliveryFee    float64
	DiscountAmount float64
	DiscountCode   string
	PaymentTerms   string
	Notes          string
	DeliveryAddr   *Address
	CreatedAt      time.Time
}

// OrderItem is a persisted order line. Prices are gross.
type OrderItem struct {
	ID          string
	OrderID     string
	Description string
	Quantity    int
	UnitPrice   float64
	TotalPrice  float64
	ProductCode string
	Category    string
}

// Invoice is a persisted invoice record.
type Invoice struct {
	ID         string
	Number     string
	OrderID    string
	CustomerID string
	IssueDate  time.Time
	DueDate    time.Time
	Subtotal   float64
	TaxAmount  float64
	Total      float64
}

// Customer is a persisted customer record.
type Customer struct {
	ID             string
	CustomerNumber string
	Name           string
	Email          string
	Phone          string
	Company        string
	Address        Address
}

// DiscountCode is a persisted voucher/discount definition.
type DiscountCode struct {
	Code        string
	Description string
}

// OrderStore resolves orders and their line items. Line items are loaded
// in a secondary query; FindByID and FindByNumber return the order alone.
type OrderStore interface {
	FindByID(ctx context.Context, id string) (*Order, error)
	FindByNumber(ctx context.Context, number string) (*Order, error)
	ItemsByOrderID(ctx context.Context, orderID string) ([]OrderItem, error)
}

// InvoiceStore resolves and creates invoice records.
type InvoiceStore interface {
	FindByNumber(ctx context.Context, number string) (*Invoice, error)
	FindByID(ctx context.Context, id string) (*Invoice, error)
	Create(ctx context.Context, inv *Invoice) error
}

// CustomerStore resolves customer records.
type CustomerStore interface {
	FindByID(ctx context.Context, id string) (*Customer, error)
}

// DiscountStore resolves discount code descriptions.
type DiscountStore interface {
	FindByCode(ctx context.Context, code string) (*DiscountCode, error)
}

// SettingsStore loads the company configuration snapshot.
type SettingsStore interface {
	CompanySettings(ctx context.Context) (*CompanySettings, error)
}

// BlobStore persists generated binary documents and returns a stable path.
type BlobStore interface {
	SavePDF(ctx context.Context, filename string, data []byte) (string, error)
}

// CounterStore persists the document number counter. AdvanceCounter must
// be atomic: it succeeds only if the persisted value still equals from,
// returning ErrCounterConflict otherwise.
type CounterStore interface {
	// EnsureCounter returns the persisted prefix and counter value,
	// initializing them if absent.
	EnsureCounter(ctx context.Context) (prefix string, value int64, err error)

	// IssuedNumbers returns every document number already issued with
	// the given prefix.
	IssuedNumbers(ctx context.Context, prefix string) ([]string, error)

	// AdvanceCounter moves the counter from from to to. Implementations
	// must use a compare-and-swap (single conditional UPDATE), not a
	// read-then-write pair.
	AdvanceCounter(ctx context.Context, prefix string, from, to int64) error
}

// Stores bundles the persistence collaborators the engine depends on.
type Stores struct {
	Orders    OrderStore
	Invoices  InvoiceStore
	Customers CustomerStore
	Discounts DiscountStore
	Settings  SettingsStore
	Counters  CounterStore
	Blobs     BlobStore
}
