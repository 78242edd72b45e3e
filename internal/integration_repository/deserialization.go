package integration_repository

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/telephony/integration-connector/internal/domain"

	"github.com/sirupsen/logrus"
)

var ErrMalformedIntegrationsConfig = errors.New("malformed integrations_config document")

// ParseIntegrationsConfig projects each integration's "enabled" flag out of the
// configuration document.  The document may be stored double encoded (a JSON
// string holding the JSON object).  Entries that are not objects are skipped, a
// missing or non-boolean "enabled" flag is false.
func ParseIntegrationsConfig(document []byte) (domain.Integrations, error) {
	integrations := make(domain.Integrations)

	document = bytes.TrimSpace(document)
	if len(document) == 0 || bytes.Equal(document, []byte("null")) {
		return integrations, nil
	}

	if document[0] == '"' {
		var inner string
		if err := json.Unmarshal(document, &inner); err != nil {
			return integrations, fmt.Errorf("%w: %s", ErrMalformedIntegrationsConfig, err)
		}
		return ParseIntegrationsConfig([]byte(inner))
	}

	var config map[string]json.RawMessage
	if err := json.Unmarshal(document, &config); err != nil {
		return integrations, fmt.Errorf("%w: %s", ErrMalformedIntegrationsConfig, err)
	}

	for integrationType, rawSettings := range config {
		var settings map[string]interface{}
		if err := json.Unmarshal(rawSettings, &settings); err != nil || settings == nil {
			continue
		}

		enabled, _ := settings["enabled"].(bool)
		integrations[domain.IntegrationType(integrationType)] = enabled
	}

	return integrations, nil
}

func deserializeIntegrationsConfig(log *logrus.Entry, serializedConfig sql.NullString) (domain.Integrations, error) {
	if !serializedConfig.Valid {
		return make(domain.Integrations), nil
	}

	integrations, err := ParseIntegrationsConfig([]byte(serializedConfig.String))
	if err != nil {
		log.WithFields(logrus.Fields{"error": err}).Error("Unable to unmarshal integrations_config from database")
		return nil, err
	}

	return integrations, nil
}
