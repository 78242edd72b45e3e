package integration_repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/telephony/integration-connector/internal/domain"
	"github.com/telephony/integration-connector/internal/platform/logger"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	selectTenantIntegrationsQuery = `SELECT integrations_config
		FROM enterprises
		WHERE number = $1 AND active = true`

	selectAllTenantIntegrationsQuery = `SELECT number, integrations_config
		FROM enterprises
		WHERE active = true AND integrations_config IS NOT NULL`
)

type SqlIntegrationConfigReader struct {
	database *sql.DB
}

func NewSqlIntegrationConfigReader(database *sql.DB) *SqlIntegrationConfigReader {
	return &SqlIntegrationConfigReader{database: database}
}

func (r *SqlIntegrationConfigReader) GetTenantIntegrations(ctx context.Context, tenant domain.TenantID) (domain.Integrations, bool, error) {

	log := logger.Log.WithFields(logrus.Fields{"enterprise_number": tenant})

	callDurationTimer := prometheus.NewTimer(metrics.sqlLookupTenantIntegrationsDuration)
	defer callDurationTimer.ObserveDuration()

	var serializedConfig sql.NullString

	err := r.database.QueryRowContext(ctx, selectTenantIntegrationsQuery, string(tenant)).Scan(&serializedConfig)
	if errors.Is(err, sql.ErrNoRows) {
		return make(domain.Integrations), false, nil
	}

	if err != nil {
		logQueryFailure(log, err)
		return nil, false, err
	}

	if !serializedConfig.Valid {
		return make(domain.Integrations), false, nil
	}

	return tolerantIntegrations(log, serializedConfig), true, nil
}

func (r *SqlIntegrationConfigReader) GetAllTenantIntegrations(ctx context.Context) (map[domain.TenantID]domain.Integrations, error) {

	callDurationTimer := prometheus.NewTimer(metrics.sqlLookupAllTenantIntegrationsDuration)
	defer callDurationTimer.ObserveDuration()

	rows, err := r.database.QueryContext(ctx, selectAllTenantIntegrationsQuery)
	if err != nil {
		logQueryFailure(logrus.NewEntry(logger.Log), err)
		return nil, err
	}
	defer rows.Close()

	matrix := make(map[domain.TenantID]domain.Integrations)

	for rows.Next() {
		var number string
		var serializedConfig sql.NullString

		if err := rows.Scan(&number, &serializedConfig); err != nil {
			logger.LogError("SQL scan failed.  Skipping row.", err)
			continue
		}

		tenant := domain.TenantID(number)

		log := logger.Log.WithFields(logrus.Fields{"enterprise_number": tenant})

		matrix[tenant] = tolerantIntegrations(log, serializedConfig)
	}

	if err := rows.Err(); err != nil {
		logQueryFailure(logrus.NewEntry(logger.Log), err)
		return nil, err
	}

	return matrix, nil
}

// A document that cannot be parsed counts as a tenant with every
// integration disabled.
func tolerantIntegrations(log *logrus.Entry, serializedConfig sql.NullString) domain.Integrations {
	integrations, err := deserializeIntegrationsConfig(log, serializedConfig)
	if err != nil {
		metrics.sqlLookupFailureCounter.WithLabelValues("malformed_document").Inc()
		return make(domain.Integrations)
	}

	return integrations
}

func logQueryFailure(log *logrus.Entry, err error) {
	reason := "query_failed"

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgerrcode.UndefinedTable, pgerrcode.UndefinedColumn:
			reason = "schema_mismatch"
		case pgerrcode.QueryCanceled:
			reason = "query_canceled"
		}
		log = log.WithFields(logrus.Fields{"sql_state": string(pqErr.Code)})
	} else if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}

	metrics.sqlLookupFailureCounter.WithLabelValues(reason).Inc()
	log.WithFields(logrus.Fields{"error": err, "reason": reason}).Error("SQL query failed")
}
