package domain

type TenantID string

func (tid TenantID) String() string {
	return string(tid)
}

type IntegrationType string

func (it IntegrationType) String() string {
	return string(it)
}

const (
	RetailCRM IntegrationType = "retailcrm"
	AmoCRM    IntegrationType = "amocrm"
)

type EventType string

// Source records which tier produced a TenantIntegrationStatus.
type Source string

const (
	SourceCache    Source = "cache"
	SourceDatabase Source = "database"
	SourceError    Source = "error"
)

type Integrations map[IntegrationType]bool

type TenantIntegrationStatus struct {
	TenantID     TenantID     `json:"enterprise_number"`
	Integrations Integrations `json:"integrations"`
	Source       Source       `json:"source"`
	AgeSeconds   float64      `json:"age_seconds"`
}

// Stats holds the resolver counters.  Every field only ever grows.
type Stats struct {
	TotalRequests uint64 `json:"total_requests"`
	CacheHits     uint64 `json:"cache_hits"`
	CacheMisses   uint64 `json:"cache_misses"`
	DBFallbacks   uint64 `json:"db_fallbacks"`
	Errors        uint64 `json:"errors"`
}

type StatsSnapshot struct {
	Stats
	CacheHitRatePercent float64 `json:"cache_hit_rate_percent"`
}

type DeliveryTask struct {
	TenantID        TenantID        `validate:"required"`
	IntegrationType IntegrationType `validate:"required"`
	EventType       EventType       `validate:"required"`
	Payload         interface{}
}
