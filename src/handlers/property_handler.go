// backend/src/handlers/property_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/username/propfolio/backend/src/models"
	"github.com/username/propfolio/backend/src/services"
	"github.com/username/propfolio/backend/src/utils"
)

type PropertyHandler struct {
	propertyService services.PropertyService
}

func NewPropertyHandler(propertyService services.PropertyService) *PropertyHandler {
	return &PropertyHandler{propertyService: propertyService}
}

type createPropertyRequest struct {
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	PurchasePrice string  `json:"purchase_price"`
	PurchaseDate  string  `json:"purchase_date"`
	CurrentValue  *string `json:"current_value"`
	Status        string  `json:"status"`
}

func (h *PropertyHandler) HandleCreateProperty(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req createPropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	price, err := decimal.NewFromString(req.PurchasePrice)
	if err != nil {
		utils.SendJSONError(w, "Invalid purchase_price", http.StatusBadRequest)
		return
	}
	purchaseDate, err := utils.ParseDate(req.PurchaseDate)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	input := services.NewPropertyInput{
		Name:          req.Name,
		Type:          models.PropertyType(req.Type),
		PurchasePrice: price,
		PurchaseDate:  purchaseDate,
		Status:        models.PropertyStatus(req.Status),
	}
	if req.CurrentValue != nil {
		v, err := decimal.NewFromString(*req.CurrentValue)
		if err != nil {
			utils.SendJSONError(w, "Invalid current_value", http.StatusBadRequest)
			return
		}
		input.CurrentValue = &v
	}

	property, err := h.propertyService.Create(userID, input)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		utils.SendJSONError(w, "Failed to create property", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, property, http.StatusCreated)
}

func (h *PropertyHandler) HandleListProperties(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	properties, err := h.propertyService.List(userID)
	if err != nil {
		utils.SendJSONError(w, "Failed to load properties", http.StatusInternalServerError)
		return
	}

	// Cheap conditional GET support for the dashboard polling this list.
	if etag, err := utils.GenerateETag(properties); err == nil {
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	utils.SendJSON(w, properties, http.StatusOK)
}

type updatePropertyRequest struct {
	Status       *string `json:"status"`
	CurrentValue *string `json:"current_value"`
}

func (h *PropertyHandler) HandleUpdateProperty(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	propertyID := r.PathValue("id")

	var req updatePropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	input := services.PropertyUpdateInput{}
	if req.Status != nil {
		status := models.PropertyStatus(*req.Status)
		input.Status = &status
	}
	if req.CurrentValue != nil {
		v, err := decimal.NewFromString(*req.CurrentValue)
		if err != nil {
			utils.SendJSONError(w, "Invalid current_value", http.StatusBadRequest)
			return
		}
		input.CurrentValue = &v
	}

	property, err := h.propertyService.Update(userID, propertyID, input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.SendJSONError(w, "Property not found", http.StatusNotFound)
		case errors.Is(err, services.ErrValidation):
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			utils.SendJSONError(w, "Failed to update property", http.StatusInternalServerError)
		}
		return
	}
	utils.SendJSON(w, property, http.StatusOK)
}

func (h *PropertyHandler) HandleDeleteProperty(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	propertyID := r.PathValue("id")

	if err := h.propertyService.Delete(userID, propertyID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.SendJSONError(w, "Property not found", http.StatusNotFound)
			return
		}
		utils.SendJSONError(w, "Failed to delete property", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Property and its transactions deleted"}, http.StatusOK)
}
