package gormstore

import (
	"time"

	"gorm.io/datatypes"
)

// Order is the persisted order row. Money columns are gross amounts;
// total_amount is the value actually charged.
type Order struct {
	ID              string `gorm:"primaryKey"`
	OrderNumber     string `gorm:"uniqueIndex;not null"`
	CustomerID      string `gorm:"index"`
	InvoiceNumber   string `gorm:"index"`
	TotalAmount     float64
	TaxAmount       float64
	DeliveryFee     float64
	DiscountAmount  float64
	DiscountCode    string
	PaymentTerms    string
	Notes           string
	DeliveryAddress datatypes.JSON // optional address override, JSON blob
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName sets the database table name.
func (Order) TableName() string { return "orders" }

// OrderItem is one persisted order line.
type OrderItem struct {
	ID          string `gorm:"primaryKey"`
	OrderID     string `gorm:"index;not null"`
	Description string `gorm:"not null"`
	Quantity    int
	UnitPrice   float64
	TotalPrice  float64
	ProductCode string
	Category    string
	CreatedAt   time.Time
}

// TableName sets the database table name.
func (OrderItem) TableName() string { return "order_items" }

// Invoice is the persisted invoice row created by the assembler.
type Invoice struct {
	ID         string `gorm:"primaryKey"`
	Number     string `gorm:"uniqueIndex;not null"`
	OrderID    string `gorm:"index"`
	CustomerID string `gorm:"index"`
	IssueDate  time.Time
	DueDate    time.Time
	Subtotal   float64
	TaxAmount  float64
	Total      float64
	CreatedAt  time.Time
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Customer is the persisted customer row.
type Customer struct {
	ID             string `gorm:"primaryKey"`
	CustomerNumber string `gorm:"uniqueIndex"`
	Name           string `gorm:"not null"`
	Email          string
	Phone          string
	Company        string
	Street         string
	HouseNumber    string
	PostalCode     string
	City           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }

// DiscountCode is a persisted voucher definition.
type DiscountCode struct {
	Code        string `gorm:"primaryKey"`
	Description string
	CreatedAt   time.Time
}

// TableName sets the database table name.
func (DiscountCode) TableName() string { return "discount_codes" }

// Setting holds the company configuration as a single JSON payload row.
type Setting struct {
	ID        uint           `gorm:"primaryKey"`
	Payload   datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName sets the database table name.
func (Setting) TableName() string { return "settings" }

// DocumentCounter is the persisted numbering state, one row per prefix.
type DocumentCounter struct {
	Prefix  string `gorm:"primaryKey"`
	Counter int64  `gorm:"not null"`
}

// TableName sets the database table name.
func (DocumentCounter) TableName() string { return "document_counters" }
