package services

import (
	"encoding/base64"
	"os"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/propfolio/backend/src/database"
	"github.com/username/propfolio/backend/src/logger"
	"github.com/username/propfolio/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	database.InitDB("file::memory:?cache=shared")
	// A single connection keeps every query on the same in-memory database.
	database.DB.SetMaxOpenConns(1)
	os.Exit(m.Run())
}

func newTestServices() (PropertyService, TransactionService) {
	exportService := NewExportService(cache.New(time.Minute, time.Minute))
	propertyService := NewPropertyService(exportService)
	transactionService := NewTransactionService(propertyService, exportService)
	return propertyService, transactionService
}

func createTestProperty(t *testing.T, properties PropertyService, userID int64, name string) *models.Property {
	t.Helper()
	currentValue := decimal.RequireFromString("250000.10")
	property, err := properties.Create(userID, NewPropertyInput{
		Name:          name,
		Type:          models.PropertyTypeHouse,
		PurchasePrice: decimal.RequireFromString("149999.99"),
		PurchaseDate:  time.Date(2020, time.January, 15, 0, 0, 0, 0, time.UTC),
		CurrentValue:  &currentValue,
		Status:        models.StatusStabilized,
	})
	require.NoError(t, err)
	return property
}

func jpegReceipt() *models.Receipt {
	payload := append([]byte{0xff, 0xd8, 0xff, 0xe0}, []byte("JFIF payload")...)
	return &models.Receipt{
		FileName: "IMG_1234.jpg",
		Data:     "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(payload),
		FileType: "jpeg",
	}
}

func TestPropertyMoneyRoundTripsExactly(t *testing.T) {
	properties, _ := newTestServices()
	property := createTestProperty(t, properties, 101, "Exact Money House")

	loaded, err := properties.Get(101, property.ID)
	require.NoError(t, err)
	assert.True(t, loaded.PurchasePrice.Equal(decimal.RequireFromString("149999.99")),
		"purchase price %s", loaded.PurchasePrice)
	require.NotNil(t, loaded.CurrentValue)
	assert.True(t, loaded.CurrentValue.Equal(decimal.RequireFromString("250000.10")),
		"current value %s", loaded.CurrentValue)

	// The column holds the decimal's string form, not a float.
	var stored string
	err = database.DB.QueryRow(`SELECT purchase_price FROM properties WHERE id = ?`, property.ID).Scan(&stored)
	require.NoError(t, err)
	assert.Equal(t, "149999.99", stored)
}

func TestTransactionAmountRoundTripsExactly(t *testing.T) {
	properties, transactions := newTestServices()
	property := createTestProperty(t, properties, 102, "Ledger House")

	created, err := transactions.Create(102, NewTransactionInput{
		PropertyID: property.ID,
		Type:       models.TransactionIncome,
		Category:   "Rent",
		Amount:     decimal.RequireFromString("1234567.891"),
		Date:       time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	listed, err := transactions.ListByProperty(102, property.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.True(t, listed[0].Amount.Equal(decimal.RequireFromString("1234567.891")),
		"amount %s", listed[0].Amount)

	var stored string
	err = database.DB.QueryRow(`SELECT amount FROM transactions WHERE id = ?`, created.ID).Scan(&stored)
	require.NoError(t, err)
	assert.Equal(t, "1234567.891", stored)
}

func TestCreateTransactionValidatesReceiptContent(t *testing.T) {
	properties, transactions := newTestServices()
	property := createTestProperty(t, properties, 103, "Receipt House")

	input := NewTransactionInput{
		PropertyID:  property.ID,
		Type:        models.TransactionExpense,
		Category:    "Repairs",
		Amount:      decimal.RequireFromString("200"),
		Date:        time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		Description: "Screwfix - pipes",
		Receipt:     jpegReceipt(),
	}

	created, err := transactions.Create(103, input)
	require.NoError(t, err)
	assert.True(t, created.HasReceipt())

	// Same jpeg payload, but declared as png: the magic bytes disagree.
	mismatched := input
	mismatched.Receipt = jpegReceipt()
	mismatched.Receipt.FileType = "png"
	_, err = transactions.Create(103, mismatched)
	assert.ErrorIs(t, err, ErrValidation)

	// A file type outside jpeg/png/pdf is rejected outright.
	unsupported := input
	unsupported.Receipt = jpegReceipt()
	unsupported.Receipt.FileType = "exe"
	_, err = transactions.Create(103, unsupported)
	assert.ErrorIs(t, err, ErrValidation)
}
