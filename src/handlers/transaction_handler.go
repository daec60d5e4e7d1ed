// backend/src/handlers/transaction_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/propfolio/backend/src/models"
	"github.com/username/propfolio/backend/src/services"
	"github.com/username/propfolio/backend/src/utils"
)

type TransactionHandler struct {
	transactionService services.TransactionService
}

func NewTransactionHandler(transactionService services.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

type createTransactionRequest struct {
	PropertyID  string `json:"property_id"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Receipt     *struct {
		FileName string `json:"file_name"`
		Data     string `json:"data"`
		FileType string `json:"file_type"`
	} `json:"receipt"`
}

func (h *TransactionHandler) HandleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		utils.SendJSONError(w, "Invalid amount", http.StatusBadRequest)
		return
	}
	date, err := utils.ParseDate(req.Date)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	input := services.NewTransactionInput{
		PropertyID:  req.PropertyID,
		Type:        models.TransactionType(req.Type),
		Category:    req.Category,
		Amount:      amount,
		Date:        date,
		Description: req.Description,
	}
	if req.Receipt != nil {
		input.Receipt = &models.Receipt{
			FileName:   req.Receipt.FileName,
			Data:       req.Receipt.Data,
			FileType:   req.Receipt.FileType,
			UploadedAt: time.Now().UTC(),
		}
	}

	tx, err := h.transactionService.Create(userID, input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrReceiptTooLarge):
			utils.SendJSONError(w, "Receipt file is too large", http.StatusRequestEntityTooLarge)
		default:
			utils.SendJSONError(w, "Failed to create transaction", http.StatusInternalServerError)
		}
		return
	}
	utils.SendJSON(w, tx, http.StatusCreated)
}

func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	if propertyID := r.URL.Query().Get("property_id"); propertyID != "" {
		transactions, err := h.transactionService.ListByProperty(userID, propertyID)
		if err != nil {
			utils.SendJSONError(w, "Failed to load transactions", http.StatusInternalServerError)
			return
		}
		utils.SendJSON(w, transactions, http.StatusOK)
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, _ = strconv.Atoi(limitStr)
	}
	transactions, err := h.transactionService.ListByUser(userID, limit)
	if err != nil {
		utils.SendJSONError(w, "Failed to load transactions", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, transactions, http.StatusOK)
}

func (h *TransactionHandler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	transactionID := r.PathValue("id")

	if err := h.transactionService.Delete(userID, transactionID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.SendJSONError(w, "Transaction not found", http.StatusNotFound)
			return
		}
		utils.SendJSONError(w, "Failed to delete transaction", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Transaction deleted"}, http.StatusOK)
}
