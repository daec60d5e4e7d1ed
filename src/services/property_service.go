// backend/src/services/property_service.go
package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/username/propfolio/backend/src/database"
	"github.com/username/propfolio/backend/src/logger"
	"github.com/username/propfolio/backend/src/models"
	"github.com/username/propfolio/backend/src/security/validation"
)

type propertyServiceImpl struct {
	exportService ExportService // cache invalidation on writes
}

func NewPropertyService(exportService ExportService) PropertyService {
	return &propertyServiceImpl{exportService: exportService}
}

func validPropertyType(t models.PropertyType) bool {
	switch t {
	case models.PropertyTypeHouse, models.PropertyTypeFlat, models.PropertyTypeCommercial:
		return true
	}
	return false
}

func validPropertyStatus(s models.PropertyStatus) bool {
	switch s {
	case models.StatusStabilized, models.StatusInDevelopment, models.StatusUnderOffer, models.StatusPlanning:
		return true
	}
	return false
}

func (s *propertyServiceImpl) Create(userID int64, input NewPropertyInput) (*models.Property, error) {
	name := strings.TrimSpace(validation.StripUnprintable(input.Name))
	if name == "" {
		return nil, fmt.Errorf("%w: property name is required", ErrValidation)
	}
	if !validPropertyType(input.Type) {
		return nil, fmt.Errorf("%w: unknown property type %q", ErrValidation, input.Type)
	}
	status := input.Status
	if status == "" {
		status = models.StatusStabilized
	}
	if !validPropertyStatus(status) {
		return nil, fmt.Errorf("%w: unknown property status %q", ErrValidation, status)
	}
	if input.PurchasePrice.IsNegative() {
		return nil, fmt.Errorf("%w: purchase price cannot be negative", ErrValidation)
	}

	property := &models.Property{
		ID:            uuid.NewString(),
		UserID:        userID,
		Name:          name,
		Type:          input.Type,
		PurchasePrice: input.PurchasePrice,
		PurchaseDate:  input.PurchaseDate,
		CurrentValue:  input.CurrentValue,
		Status:        status,
		CreatedAt:     time.Now().UTC(),
	}

	// Money is stored as the decimal's string form so values stay exact.
	var currentValue interface{}
	if property.CurrentValue != nil {
		currentValue = property.CurrentValue.String()
	}

	_, err := database.DB.Exec(`
		INSERT INTO properties (id, user_id, name, property_type, purchase_price, purchase_date, current_value, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		property.ID, userID, property.Name, property.Type, property.PurchasePrice.String(),
		property.PurchaseDate.Format("2006-01-02"), currentValue, property.Status, property.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error inserting property: %w", err)
	}

	s.exportService.InvalidateUserCache(userID)
	logger.L.Info("Property created", "userID", userID, "propertyID", property.ID)
	return property, nil
}

func scanProperty(row interface{ Scan(...interface{}) error }) (*models.Property, error) {
	var p models.Property
	var price string
	var purchaseDate string
	var currentValue sql.NullString
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Type, &price, &purchaseDate, &currentValue, &p.Status, &p.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if p.PurchasePrice, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parsing stored purchase price %q: %w", price, err)
	}
	if t, err := time.Parse("2006-01-02", purchaseDate); err == nil {
		p.PurchaseDate = t
	}
	if currentValue.Valid {
		v, err := decimal.NewFromString(currentValue.String)
		if err != nil {
			return nil, fmt.Errorf("parsing stored valuation %q: %w", currentValue.String, err)
		}
		p.CurrentValue = &v
	}
	return &p, nil
}

const propertyColumns = `id, user_id, name, property_type, purchase_price, purchase_date, current_value, status, created_at`

func (s *propertyServiceImpl) List(userID int64) ([]models.Property, error) {
	rows, err := database.DB.Query(`SELECT `+propertyColumns+` FROM properties WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying properties for userID %d: %w", userID, err)
	}
	defer rows.Close()

	properties := []models.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning property: %w", err)
		}
		properties = append(properties, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating properties: %w", err)
	}
	return properties, nil
}

func (s *propertyServiceImpl) Get(userID int64, propertyID string) (*models.Property, error) {
	row := database.DB.QueryRow(`SELECT `+propertyColumns+` FROM properties WHERE id = ? AND user_id = ?`, propertyID, userID)
	p, err := scanProperty(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error loading property %s: %w", propertyID, err)
	}
	return p, nil
}

func (s *propertyServiceImpl) Update(userID int64, propertyID string, input PropertyUpdateInput) (*models.Property, error) {
	if input.Status != nil && !validPropertyStatus(*input.Status) {
		return nil, fmt.Errorf("%w: unknown property status %q", ErrValidation, *input.Status)
	}

	property, err := s.Get(userID, propertyID)
	if err != nil {
		return nil, err
	}

	if input.Status != nil {
		property.Status = *input.Status
		if _, err := database.DB.Exec(`UPDATE properties SET status = ? WHERE id = ? AND user_id = ?`,
			property.Status, propertyID, userID); err != nil {
			return nil, fmt.Errorf("error updating property status: %w", err)
		}
	}
	if input.CurrentValue != nil {
		property.CurrentValue = input.CurrentValue
		if _, err := database.DB.Exec(`UPDATE properties SET current_value = ? WHERE id = ? AND user_id = ?`,
			input.CurrentValue.String(), propertyID, userID); err != nil {
			return nil, fmt.Errorf("error updating property valuation: %w", err)
		}
	}

	s.exportService.InvalidateUserCache(userID)
	return property, nil
}

// Delete removes a property and every transaction attached to it.
func (s *propertyServiceImpl) Delete(userID int64, propertyID string) error {
	if _, err := s.Get(userID, propertyID); err != nil {
		return err
	}

	dbTx, err := database.DB.Begin()
	if err != nil {
		return fmt.Errorf("error beginning delete transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.Exec(`DELETE FROM transactions WHERE property_id = ? AND user_id = ?`, propertyID, userID); err != nil {
		return fmt.Errorf("error deleting property transactions: %w", err)
	}
	if _, err := dbTx.Exec(`DELETE FROM properties WHERE id = ? AND user_id = ?`, propertyID, userID); err != nil {
		return fmt.Errorf("error deleting property: %w", err)
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("error committing property delete: %w", err)
	}

	s.exportService.InvalidateUserCache(userID)
	logger.L.Info("Property deleted with transactions", "userID", userID, "propertyID", propertyID)
	return nil
}
