package invoicegen

import (
	"math"
	"time"
)

// RoundingEpsilon is the currency-rounding tolerance for total reconciliation.
const RoundingEpsilon = 0.01

// Address is a structured postal address.
type Address struct {
	Street      string
	HouseNumber string
	PostalCode  string
	City        string
}

// Party describes the invoice recipient.
type Party struct {
	Name           string
	Email          string
	Phone          string
	CustomerNumber string
	Company        string
	Address        Address
}

// LineItem is a single invoice position. Discount lines carry negative
// unit and total prices.
type LineItem struct {
	Description string
	Quantity    int
	UnitPrice   float64 // gross, signed
	TotalPrice  float64 // gross, signed
	ProductCode string
	Category    string
	TaxIncluded bool
}

// InvoiceData is the normalized invoice model handed to the template
// renderer. It is assembled per request and never persisted directly.
type InvoiceData struct {
	DocumentNumber  string
	IssueDate       time.Time
	DueDate         time.Time
	OrderReference  string
	Customer        Party
	DeliveryAddress *Address // nil = same as customer address
	Items           []LineItem
	Subtotal        float64 // net
	TaxAmount       float64
	Total           float64 // gross, authoritative
	TaxRate         float64 // percentage, e.g. 19
	PaymentTerms    string
	Notes           string // Markdown, rendered by the template
}

// CompanySettings is the read-only per-request snapshot of the company
// configuration used to fill the invoice header and footer.
type CompanySettings struct {
	Name    string
	Street  string
	City    string
	Email   string
	Phone   string
	Website string

	VATID              string
	VATRate            float64
	DefaultTaxIncluded bool

	BankName string
	IBAN     string
	BIC      string

	LogoURL        string
	CurrencySymbol string
	FooterText     string // Markdown, rendered by the template
	CEO            string
	Registration   string
}

// Reconciled reports whether subtotal + tax matches the gross total
// within the currency-rounding epsilon.
func (d *InvoiceData) Reconciled() bool {
	return math.Abs(d.Subtotal+d.TaxAmount-d.Total) < RoundingEpsilon
}

// round2 rounds to two decimal places, the resolution of all money
// amounts in this engine.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
