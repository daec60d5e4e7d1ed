// backend/src/services/export_service.go
package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/propfolio/backend/src/database"
	"github.com/username/propfolio/backend/src/export"
	"github.com/username/propfolio/backend/src/logger"
	"github.com/username/propfolio/backend/src/models"
)

const (
	// Aggregate cache for the dashboard's portfolio summaries.
	ckPortfolioSummaries = "agg_portfolio_summaries_user_%d_range_%s"

	// Preference key echoed back to the UI so the range picker can default to
	// the last selection.
	prefLastRangeKey = "export.last_range"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type exportServiceImpl struct {
	reportCache *cache.Cache
}

func NewExportService(reportCache *cache.Cache) ExportService {
	return &exportServiceImpl{reportCache: reportCache}
}

// loadSnapshot reads the user's properties and transactions. Every export call
// works on its own fresh snapshot; no state is shared across invocations.
func (s *exportServiceImpl) loadSnapshot(userID int64) ([]models.Property, map[string][]models.Transaction, error) {
	rows, err := database.DB.Query(`SELECT `+propertyColumns+` FROM properties WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("error querying properties for export: %w", err)
	}
	defer rows.Close()

	var properties []models.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("error scanning property for export: %w", err)
		}
		properties = append(properties, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating properties for export: %w", err)
	}

	txRows, err := database.DB.Query(`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ?`, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("error querying transactions for export: %w", err)
	}
	defer txRows.Close()

	txsByProperty := make(map[string][]models.Transaction)
	for txRows.Next() {
		tx, err := scanTransaction(txRows)
		if err != nil {
			return nil, nil, fmt.Errorf("error scanning transaction for export: %w", err)
		}
		txsByProperty[tx.PropertyID] = append(txsByProperty[tx.PropertyID], *tx)
	}
	if err := txRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating transactions for export: %w", err)
	}

	return properties, txsByProperty, nil
}

func (s *exportServiceImpl) ExportProperty(userID int64, propertyID string, r *export.DateRange, rangeKey string) (*export.Result, error) {
	startTime := time.Now()
	logger.L.Info("ExportProperty START", "userID", userID, "propertyID", propertyID, "rangeKey", rangeKey)

	row := database.DB.QueryRow(`SELECT `+propertyColumns+` FROM properties WHERE id = ? AND user_id = ?`, propertyID, userID)
	property, err := scanProperty(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error loading property for export: %w", err)
	}

	txRows, err := database.DB.Query(`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND property_id = ?`, userID, propertyID)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions for export: %w", err)
	}
	defer txRows.Close()

	var txs []models.Transaction
	for txRows.Next() {
		tx, err := scanTransaction(txRows)
		if err != nil {
			return nil, fmt.Errorf("error scanning transaction for export: %w", err)
		}
		txs = append(txs, *tx)
	}
	if err := txRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions for export: %w", err)
	}

	result := export.ExportProperty(property, txs, r)
	s.saveLastRangeKey(userID, rangeKey)

	logger.L.Info("ExportProperty END", "userID", userID, "propertyID", propertyID,
		"success", result.Success, "transactions", result.TransactionCount, "duration", time.Since(startTime))
	return &result, nil
}

func (s *exportServiceImpl) ExportPortfolio(userID int64, r *export.DateRange, rangeKey string) (*export.Result, error) {
	startTime := time.Now()
	logger.L.Info("ExportPortfolio START", "userID", userID, "rangeKey", rangeKey)

	properties, txsByProperty, err := s.loadSnapshot(userID)
	if err != nil {
		return nil, err
	}

	result := export.ExportPortfolio(properties, txsByProperty, r)
	s.saveLastRangeKey(userID, rangeKey)

	logger.L.Info("ExportPortfolio END", "userID", userID,
		"success", result.Success, "transactions", result.TransactionCount, "duration", time.Since(startTime))
	return &result, nil
}

// PortfolioSummaries computes (and caches) the per-property roll-ups used by
// the dashboard, without building an archive.
func (s *exportServiceImpl) PortfolioSummaries(userID int64, r *export.DateRange) ([]export.PropertySummary, error) {
	rangeLabel := export.AllTimeKey
	if r != nil {
		rangeLabel = r.Label
	}
	cacheKey := fmt.Sprintf(ckPortfolioSummaries, userID, rangeLabel)
	if cached, found := s.reportCache.Get(cacheKey); found {
		if summaries, ok := cached.([]export.PropertySummary); ok {
			logger.L.Debug("Portfolio summaries served from cache", "userID", userID)
			return summaries, nil
		}
	}

	properties, txsByProperty, err := s.loadSnapshot(userID)
	if err != nil {
		return nil, err
	}

	period := export.PeriodName(r)
	summaries := []export.PropertySummary{}
	for i := range properties {
		filtered := export.FilterAndSort(txsByProperty[properties[i].ID], r)
		if len(filtered) == 0 {
			continue
		}
		summaries = append(summaries, export.Summarize(properties[i].Name, filtered, period))
	}

	s.reportCache.Set(cacheKey, summaries, cache.DefaultExpiration)
	return summaries, nil
}

// saveLastRangeKey persists the last-used selection so the UI can default to
// it next time. Failures only log; they never fail an export.
func (s *exportServiceImpl) saveLastRangeKey(userID int64, rangeKey string) {
	if rangeKey == "" {
		return
	}
	_, err := database.DB.Exec(`
		INSERT INTO user_preferences (user_id, pref_key, pref_value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, pref_key) DO UPDATE SET pref_value = excluded.pref_value, updated_at = CURRENT_TIMESTAMP`,
		userID, prefLastRangeKey, rangeKey)
	if err != nil {
		logger.L.Warn("Failed to persist last-used export range", "userID", userID, "error", err)
	}
}

// LastRangeKey returns the persisted last-used selection, or the all-time key.
func (s *exportServiceImpl) LastRangeKey(userID int64) string {
	var value string
	err := database.DB.QueryRow(`SELECT pref_value FROM user_preferences WHERE user_id = ? AND pref_key = ?`,
		userID, prefLastRangeKey).Scan(&value)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.L.Warn("Failed to load last-used export range", "userID", userID, "error", err)
		}
		return export.AllTimeKey
	}
	return value
}

// InvalidateUserCache clears cached summaries for a user after any write.
func (s *exportServiceImpl) InvalidateUserCache(userID int64) {
	// go-cache has no prefix scan; keys are few (one per range label), so
	// iterate and delete matching prefixes.
	prefix := fmt.Sprintf("agg_portfolio_summaries_user_%d_", userID)
	for key := range s.reportCache.Items() {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			s.reportCache.Delete(key)
		}
	}
	logger.L.Debug("User report cache invalidated", "userID", userID)
}
