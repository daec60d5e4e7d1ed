// backend/src/services/transaction_service.go
package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/username/propfolio/backend/src/config"
	"github.com/username/propfolio/backend/src/database"
	"github.com/username/propfolio/backend/src/logger"
	"github.com/username/propfolio/backend/src/models"
	"github.com/username/propfolio/backend/src/security/validation"
	"github.com/username/propfolio/backend/src/utils"
)

const maxTransactionListLimit = 500

type transactionServiceImpl struct {
	propertyService PropertyService
	exportService   ExportService
}

func NewTransactionService(propertyService PropertyService, exportService ExportService) TransactionService {
	return &transactionServiceImpl{
		propertyService: propertyService,
		exportService:   exportService,
	}
}

func (s *transactionServiceImpl) Create(userID int64, input NewTransactionInput) (*models.Transaction, error) {
	if input.Type != models.TransactionIncome && input.Type != models.TransactionExpense {
		return nil, fmt.Errorf("%w: unknown transaction type %q", ErrValidation, input.Type)
	}
	if !models.ValidCategory(input.Type, input.Category) {
		return nil, fmt.Errorf("%w: category %q not valid for %s transactions", ErrValidation, input.Category, input.Type)
	}
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if input.Date.IsZero() {
		return nil, fmt.Errorf("%w: transaction date is required", ErrValidation)
	}

	// Every transaction must reference a property the user owns.
	if _, err := s.propertyService.Get(userID, input.PropertyID); err != nil {
		if err == ErrNotFound {
			return nil, fmt.Errorf("%w: property %s not found", ErrValidation, input.PropertyID)
		}
		return nil, err
	}

	if input.Receipt != nil {
		maxSize := int64(5 * 1024 * 1024)
		if config.Cfg != nil {
			maxSize = config.Cfg.MaxReceiptSizeBytes
		}
		if int64(len(input.Receipt.Data)) > maxSize {
			return nil, ErrReceiptTooLarge
		}
		if input.Receipt.Data == "" {
			return nil, fmt.Errorf("%w: receipt payload is empty", ErrValidation)
		}
		// The declared file type drives the archive extension, so the payload's
		// magic bytes must agree with it.
		if _, err := validation.ValidateReceiptContent(input.Receipt.Data, input.Receipt.FileType); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	tx := &models.Transaction{
		ID:          uuid.NewString(),
		PropertyID:  input.PropertyID,
		UserID:      userID,
		Type:        input.Type,
		Category:    input.Category,
		Amount:      input.Amount,
		Date:        input.Date,
		Description: strings.TrimSpace(validation.StripUnprintable(input.Description)),
		Receipt:     input.Receipt,
		CreatedAt:   time.Now().UTC(),
	}

	var receiptFilename, receiptData, receiptFileType interface{}
	var receiptUploadedAt interface{}
	if tx.Receipt != nil {
		if tx.Receipt.UploadedAt.IsZero() {
			tx.Receipt.UploadedAt = tx.CreatedAt
		}
		receiptFilename = tx.Receipt.FileName
		receiptData = tx.Receipt.Data
		receiptFileType = tx.Receipt.FileType
		receiptUploadedAt = tx.Receipt.UploadedAt
	}

	_, err := database.DB.Exec(`
		INSERT INTO transactions (id, property_id, user_id, type, category, amount, date, description,
			receipt_filename, receipt_data, receipt_file_type, receipt_uploaded_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.PropertyID, userID, tx.Type, tx.Category, tx.Amount.String(),
		tx.Date.Format("2006-01-02"), tx.Description,
		receiptFilename, receiptData, receiptFileType, receiptUploadedAt, tx.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error inserting transaction: %w", err)
	}

	s.exportService.InvalidateUserCache(userID)
	logger.L.Info("Transaction created", "userID", userID, "transactionID", tx.ID, "type", tx.Type, "hasReceipt", tx.Receipt != nil)
	return tx, nil
}

const transactionColumns = `id, property_id, user_id, type, category, amount, date, description,
	receipt_filename, receipt_data, receipt_file_type, receipt_uploaded_at, created_at`

func scanTransaction(rows *sql.Rows) (*models.Transaction, error) {
	var tx models.Transaction
	var amount string
	var date string
	var description sql.NullString
	var receiptFilename, receiptData, receiptFileType sql.NullString
	var receiptUploadedAt sql.NullTime

	err := rows.Scan(&tx.ID, &tx.PropertyID, &tx.UserID, &tx.Type, &tx.Category, &amount, &date, &description,
		&receiptFilename, &receiptData, &receiptFileType, &receiptUploadedAt, &tx.CreatedAt)
	if err != nil {
		return nil, err
	}

	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parsing stored amount %q: %w", amount, err)
	}
	if t, err := time.Parse(utils.DefaultDateFormat, date); err == nil {
		tx.Date = t
	}
	tx.Description = description.String
	if receiptData.Valid && receiptData.String != "" {
		tx.Receipt = &models.Receipt{
			FileName:   receiptFilename.String,
			Data:       receiptData.String,
			FileType:   receiptFileType.String,
			UploadedAt: receiptUploadedAt.Time,
		}
	}
	return &tx, nil
}

func (s *transactionServiceImpl) queryTransactions(query string, args ...interface{}) ([]models.Transaction, error) {
	rows, err := database.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning transaction: %w", err)
		}
		transactions = append(transactions, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

func (s *transactionServiceImpl) ListByUser(userID int64, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = maxTransactionListLimit
	}
	limit = utils.MinInt(limit, maxTransactionListLimit)
	return s.queryTransactions(`
		SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = ? ORDER BY date DESC, created_at DESC LIMIT ?`, userID, limit)
}

func (s *transactionServiceImpl) ListByProperty(userID int64, propertyID string) ([]models.Transaction, error) {
	return s.queryTransactions(`
		SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = ? AND property_id = ? ORDER BY date DESC, created_at DESC`, userID, propertyID)
}

func (s *transactionServiceImpl) Delete(userID int64, transactionID string) error {
	res, err := database.DB.Exec(`DELETE FROM transactions WHERE id = ? AND user_id = ?`, transactionID, userID)
	if err != nil {
		return fmt.Errorf("error deleting transaction %s: %w", transactionID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	s.exportService.InvalidateUserCache(userID)
	logger.L.Info("Transaction deleted", "userID", userID, "transactionID", transactionID)
	return nil
}
