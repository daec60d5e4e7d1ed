package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/propfolio/backend/src/export"
	"github.com/username/propfolio/backend/src/models"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrValidation      = errors.New("validation failed")
	ErrReceiptTooLarge = errors.New("receipt payload too large")
)

// NewPropertyInput is the payload for creating a property.
type NewPropertyInput struct {
	Name          string
	Type          models.PropertyType
	PurchasePrice decimal.Decimal
	PurchaseDate  time.Time
	CurrentValue  *decimal.Decimal
	Status        models.PropertyStatus
}

// PropertyUpdateInput mutates the editable fields of a property. Nil fields
// are left untouched.
type PropertyUpdateInput struct {
	Status       *models.PropertyStatus
	CurrentValue *decimal.Decimal
}

// PropertyService manages the user's property portfolio.
type PropertyService interface {
	Create(userID int64, input NewPropertyInput) (*models.Property, error)
	List(userID int64) ([]models.Property, error)
	Get(userID int64, propertyID string) (*models.Property, error)
	Update(userID int64, propertyID string, input PropertyUpdateInput) (*models.Property, error)
	// Delete removes the property and cascades to all its transactions.
	Delete(userID int64, propertyID string) error
}

// NewTransactionInput is the payload for logging a transaction. Transactions
// are immutable once created except for deletion.
type NewTransactionInput struct {
	PropertyID  string
	Type        models.TransactionType
	Category    string
	Amount      decimal.Decimal
	Date        time.Time
	Description string
	Receipt     *models.Receipt
}

// TransactionService manages income/expense entries and their receipts.
type TransactionService interface {
	Create(userID int64, input NewTransactionInput) (*models.Transaction, error)
	ListByUser(userID int64, limit int) ([]models.Transaction, error)
	ListByProperty(userID int64, propertyID string) ([]models.Transaction, error)
	Delete(userID int64, transactionID string) error
}

// ExportService runs the tax-pack engine over the user's stored snapshot and
// remembers the last-used date-range selection.
type ExportService interface {
	ExportProperty(userID int64, propertyID string, r *export.DateRange, rangeKey string) (*export.Result, error)
	ExportPortfolio(userID int64, r *export.DateRange, rangeKey string) (*export.Result, error)
	PortfolioSummaries(userID int64, r *export.DateRange) ([]export.PropertySummary, error)
	LastRangeKey(userID int64) string
	InvalidateUserCache(userID int64)
}

// EmailService sends account lifecycle emails.
type EmailService interface {
	SendWelcomeEmail(toEmail, username string) error
	SendPasswordResetEmail(toEmail, username, token string) error
}
