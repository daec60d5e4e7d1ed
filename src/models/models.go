package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PropertyType classifies a property.
type PropertyType string

const (
	PropertyTypeHouse      PropertyType = "House"
	PropertyTypeFlat       PropertyType = "Flat"
	PropertyTypeCommercial PropertyType = "Commercial"
)

// PropertyStatus is the lifecycle state of a property.
type PropertyStatus string

const (
	StatusStabilized    PropertyStatus = "Stabilized"
	StatusInDevelopment PropertyStatus = "In Development"
	StatusUnderOffer    PropertyStatus = "Under Offer"
	StatusPlanning      PropertyStatus = "Planning"
)

// TransactionType is the direction of a transaction.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Display returns the direction the way it is rendered in ledgers.
func (t TransactionType) Display() string {
	switch t {
	case TransactionIncome:
		return "Income"
	case TransactionExpense:
		return "Expense"
	}
	return string(t)
}

// Categories are enumerated per direction. Unknown categories are rejected at
// transaction creation.
var (
	IncomeCategories  = []string{"Rent", "Deposit", "Insurance Payout", "Other Income"}
	ExpenseCategories = []string{"Repairs", "Mortgage Interest", "Insurance", "Letting Fees", "Utilities", "Ground Rent", "Travel", "Other Expense"}
)

// ValidCategory reports whether category is allowed for the given direction.
func ValidCategory(txType TransactionType, category string) bool {
	var allowed []string
	switch txType {
	case TransactionIncome:
		allowed = IncomeCategories
	case TransactionExpense:
		allowed = ExpenseCategories
	default:
		return false
	}
	for _, c := range allowed {
		if c == category {
			return true
		}
	}
	return false
}

// Property is a single property in a user's portfolio.
type Property struct {
	ID            string           `json:"id"`
	UserID        int64            `json:"user_id"`
	Name          string           `json:"name"`
	Type          PropertyType     `json:"type"`
	PurchasePrice decimal.Decimal  `json:"purchase_price"`
	PurchaseDate  time.Time        `json:"purchase_date"`
	CurrentValue  *decimal.Decimal `json:"current_value"` // nil means the valuation is still TBD
	Status        PropertyStatus   `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Receipt is an inline receipt image or PDF owned by exactly one transaction.
// Data holds the full payload as a data-URI string.
type Receipt struct {
	FileName   string    `json:"file_name"`
	Data       string    `json:"data"`
	FileType   string    `json:"file_type"` // jpeg, png, pdf, ...
	UploadedAt time.Time `json:"uploaded_at"`
}

// Transaction is a single income or expense entry against a property.
// Transactions are immutable once created except for deletion.
type Transaction struct {
	ID          string          `json:"id"`
	PropertyID  string          `json:"property_id"`
	UserID      int64           `json:"user_id"`
	Type        TransactionType `json:"type"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description,omitempty"`
	Receipt     *Receipt        `json:"receipt,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// HasReceipt reports whether a receipt payload is attached.
func (t *Transaction) HasReceipt() bool {
	return t.Receipt != nil && t.Receipt.Data != ""
}
