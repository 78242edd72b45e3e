package config

import (
	"fmt"
	"strings"
	"time"

	clowder "github.com/redhatinsights/app-common-go/pkg/api/v1"
	"github.com/spf13/viper"
)

const (
	ENV_PREFIX = "INTEGRATION_CONNECTOR"

	HTTP_SHUTDOWN_TIMEOUT              = "HTTP_Shutdown_Timeout"
	PROFILE                            = "Enable_Profile"
	INTEGRATION_CACHE_URL              = "Integration_Cache_Url"
	INTEGRATION_CACHE_TIMEOUT          = "Integration_Cache_Timeout"
	INTEGRATION_CACHE_RETRY_COUNT      = "Integration_Cache_Retry_Count"
	INTEGRATION_CACHE_RETRY_BASE_DELAY = "Integration_Cache_Retry_Base_Delay"
	INTEGRATION_CACHE_RETRY_JITTER     = "Integration_Cache_Retry_Jitter"
	INTEGRATION_DATABASE_TIMEOUT       = "Integration_Database_Timeout"
	DB_HOST                            = "Connection_Database_Host"
	DB_PORT                            = "Connection_Database_Port"
	DB_USER                            = "Connection_Database_User"
	DB_PASSWORD                        = "Connection_Database_Password"
	DB_NAME                            = "Connection_Database_Name"
	DB_SSL_MODE                        = "Connection_Database_Sslmode"
	DB_SSL_ROOT_CERT                   = "Connection_Database_Sslrootcert"
	DB_MAX_OPEN_CONNS                  = "Connection_Database_Max_Open_Conns"
	HTTP_MAX_CONNS_PER_HOST            = "Http_Max_Conns_Per_Host"
	HTTP_MAX_IDLE_CONNS                = "Http_Max_Idle_Conns"
	DELIVERY_ENDPOINTS                 = "Delivery_Endpoints"
	DELIVERY_TIMEOUT                   = "Delivery_Timeout"
	DISPATCH_MAX_CONCURRENCY           = "Dispatch_Max_Concurrency"
	CACHE_ENTRY_TTL                    = "Cache_Entry_TTL"
	CACHE_MAX_ENTRIES                  = "Cache_Max_Entries"
	CACHE_REFRESH_INTERVAL             = "Cache_Refresh_Interval"
	CACHE_REFRESH_JITTER               = "Cache_Refresh_Jitter"
	CACHE_REFRESH_ERROR_BACKOFF        = "Cache_Refresh_Error_Backoff"
	CACHE_INVALIDATION_CHANNEL         = "Cache_Invalidation_Channel"
	CACHE_SERVICE_ADDR                 = "Cache_Service_Addr"

	DEFAULT_RETAILCRM_ENDPOINT = "http://127.0.0.1:8019/retailcrm/api/events"
)

type Config struct {
	HttpShutdownTimeout            time.Duration
	Profile                        bool
	IntegrationCacheUrl            string
	IntegrationCacheTimeout        time.Duration
	IntegrationCacheRetryCount     int
	IntegrationCacheRetryBaseDelay time.Duration
	IntegrationCacheRetryJitter    bool
	IntegrationDatabaseTimeout     time.Duration
	ConnectionDatabaseHost         string
	ConnectionDatabasePort         int
	ConnectionDatabaseUser         string
	ConnectionDatabasePassword     string
	ConnectionDatabaseName         string
	ConnectionDatabaseSslMode      string
	ConnectionDatabaseSslRootCert  string
	ConnectionDatabaseMaxOpenConns int
	HttpMaxConnsPerHost            int
	HttpMaxIdleConns               int
	DeliveryEndpoints              map[string]string
	DeliveryTimeout                time.Duration
	DispatchMaxConcurrency         int
	CacheEntryTTL                  time.Duration
	CacheMaxEntries                int
	CacheRefreshInterval           time.Duration
	CacheRefreshJitter             time.Duration
	CacheRefreshErrorBackoff       time.Duration
	CacheInvalidationChannel       string
	CacheServiceAddr               string
}

func (c Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", HTTP_SHUTDOWN_TIMEOUT, c.HttpShutdownTimeout)
	fmt.Fprintf(&b, "%s: %t\n", PROFILE, c.Profile)
	fmt.Fprintf(&b, "%s: %s\n", INTEGRATION_CACHE_URL, c.IntegrationCacheUrl)
	fmt.Fprintf(&b, "%s: %s\n", INTEGRATION_CACHE_TIMEOUT, c.IntegrationCacheTimeout)
	fmt.Fprintf(&b, "%s: %d\n", INTEGRATION_CACHE_RETRY_COUNT, c.IntegrationCacheRetryCount)
	fmt.Fprintf(&b, "%s: %s\n", INTEGRATION_CACHE_RETRY_BASE_DELAY, c.IntegrationCacheRetryBaseDelay)
	fmt.Fprintf(&b, "%s: %t\n", INTEGRATION_CACHE_RETRY_JITTER, c.IntegrationCacheRetryJitter)
	fmt.Fprintf(&b, "%s: %s\n", INTEGRATION_DATABASE_TIMEOUT, c.IntegrationDatabaseTimeout)
	fmt.Fprintf(&b, "%s: %s\n", DB_HOST, c.ConnectionDatabaseHost)
	fmt.Fprintf(&b, "%s: %d\n", DB_PORT, c.ConnectionDatabasePort)
	fmt.Fprintf(&b, "%s: %s\n", DB_USER, c.ConnectionDatabaseUser)
	fmt.Fprintf(&b, "%s: %s\n", DB_NAME, c.ConnectionDatabaseName)
	fmt.Fprintf(&b, "%s: %s\n", DB_SSL_MODE, c.ConnectionDatabaseSslMode)
	fmt.Fprintf(&b, "%s: %s\n", DB_SSL_ROOT_CERT, c.ConnectionDatabaseSslRootCert)
	fmt.Fprintf(&b, "%s: %d\n", DB_MAX_OPEN_CONNS, c.ConnectionDatabaseMaxOpenConns)
	fmt.Fprintf(&b, "%s: %d\n", HTTP_MAX_CONNS_PER_HOST, c.HttpMaxConnsPerHost)
	fmt.Fprintf(&b, "%s: %d\n", HTTP_MAX_IDLE_CONNS, c.HttpMaxIdleConns)
	fmt.Fprintf(&b, "%s: %v\n", DELIVERY_ENDPOINTS, c.DeliveryEndpoints)
	fmt.Fprintf(&b, "%s: %s\n", DELIVERY_TIMEOUT, c.DeliveryTimeout)
	fmt.Fprintf(&b, "%s: %d\n", DISPATCH_MAX_CONCURRENCY, c.DispatchMaxConcurrency)
	fmt.Fprintf(&b, "%s: %s\n", CACHE_ENTRY_TTL, c.CacheEntryTTL)
	fmt.Fprintf(&b, "%s: %d\n", CACHE_MAX_ENTRIES, c.CacheMaxEntries)
	fmt.Fprintf(&b, "%s: %s\n", CACHE_REFRESH_INTERVAL, c.CacheRefreshInterval)
	fmt.Fprintf(&b, "%s: %s\n", CACHE_REFRESH_JITTER, c.CacheRefreshJitter)
	fmt.Fprintf(&b, "%s: %s\n", CACHE_REFRESH_ERROR_BACKOFF, c.CacheRefreshErrorBackoff)
	fmt.Fprintf(&b, "%s: %s\n", CACHE_INVALIDATION_CHANNEL, c.CacheInvalidationChannel)
	fmt.Fprintf(&b, "%s: %s\n", CACHE_SERVICE_ADDR, c.CacheServiceAddr)

	return b.String()
}

func GetConfig() *Config {
	options := viper.New()

	options.SetDefault(HTTP_SHUTDOWN_TIMEOUT, 2)
	options.SetDefault(PROFILE, false)
	options.SetDefault(INTEGRATION_CACHE_URL, "http://127.0.0.1:8020")
	options.SetDefault(INTEGRATION_CACHE_TIMEOUT, 2000)
	options.SetDefault(INTEGRATION_CACHE_RETRY_COUNT, 2)
	options.SetDefault(INTEGRATION_CACHE_RETRY_BASE_DELAY, 100)
	options.SetDefault(INTEGRATION_CACHE_RETRY_JITTER, true)
	options.SetDefault(INTEGRATION_DATABASE_TIMEOUT, 5000)
	options.SetDefault(DB_HOST, "localhost")
	options.SetDefault(DB_PORT, 5432)
	options.SetDefault(DB_USER, "postgres")
	options.SetDefault(DB_PASSWORD, "")
	options.SetDefault(DB_NAME, "postgres")
	options.SetDefault(DB_SSL_MODE, "disable")
	options.SetDefault(DB_SSL_ROOT_CERT, "")
	options.SetDefault(DB_MAX_OPEN_CONNS, 3)
	options.SetDefault(HTTP_MAX_CONNS_PER_HOST, 5)
	options.SetDefault(HTTP_MAX_IDLE_CONNS, 10)
	options.SetDefault(DELIVERY_ENDPOINTS, map[string]string{"retailcrm": DEFAULT_RETAILCRM_ENDPOINT})
	options.SetDefault(DELIVERY_TIMEOUT, 3000)
	options.SetDefault(DISPATCH_MAX_CONCURRENCY, 5)
	options.SetDefault(CACHE_ENTRY_TTL, 90)
	options.SetDefault(CACHE_MAX_ENTRIES, 100000)
	options.SetDefault(CACHE_REFRESH_INTERVAL, 240)
	options.SetDefault(CACHE_REFRESH_JITTER, 60)
	options.SetDefault(CACHE_REFRESH_ERROR_BACKOFF, 60)
	options.SetDefault(CACHE_INVALIDATION_CHANNEL, "integration_config_changed")
	options.SetDefault(CACHE_SERVICE_ADDR, "127.0.0.1:8020")

	options.SetEnvPrefix(ENV_PREFIX)
	options.AutomaticEnv()

	cfg := &Config{
		HttpShutdownTimeout:            options.GetDuration(HTTP_SHUTDOWN_TIMEOUT) * time.Second,
		Profile:                        options.GetBool(PROFILE),
		IntegrationCacheUrl:            options.GetString(INTEGRATION_CACHE_URL),
		IntegrationCacheTimeout:        options.GetDuration(INTEGRATION_CACHE_TIMEOUT) * time.Millisecond,
		IntegrationCacheRetryCount:     options.GetInt(INTEGRATION_CACHE_RETRY_COUNT),
		IntegrationCacheRetryBaseDelay: options.GetDuration(INTEGRATION_CACHE_RETRY_BASE_DELAY) * time.Millisecond,
		IntegrationCacheRetryJitter:    options.GetBool(INTEGRATION_CACHE_RETRY_JITTER),
		IntegrationDatabaseTimeout:     options.GetDuration(INTEGRATION_DATABASE_TIMEOUT) * time.Millisecond,
		ConnectionDatabaseHost:         options.GetString(DB_HOST),
		ConnectionDatabasePort:         options.GetInt(DB_PORT),
		ConnectionDatabaseUser:         options.GetString(DB_USER),
		ConnectionDatabasePassword:     options.GetString(DB_PASSWORD),
		ConnectionDatabaseName:         options.GetString(DB_NAME),
		ConnectionDatabaseSslMode:      options.GetString(DB_SSL_MODE),
		ConnectionDatabaseSslRootCert:  options.GetString(DB_SSL_ROOT_CERT),
		ConnectionDatabaseMaxOpenConns: options.GetInt(DB_MAX_OPEN_CONNS),
		HttpMaxConnsPerHost:            options.GetInt(HTTP_MAX_CONNS_PER_HOST),
		HttpMaxIdleConns:               options.GetInt(HTTP_MAX_IDLE_CONNS),
		DeliveryEndpoints:              options.GetStringMapString(DELIVERY_ENDPOINTS),
		DeliveryTimeout:                options.GetDuration(DELIVERY_TIMEOUT) * time.Millisecond,
		DispatchMaxConcurrency:         options.GetInt(DISPATCH_MAX_CONCURRENCY),
		CacheEntryTTL:                  options.GetDuration(CACHE_ENTRY_TTL) * time.Second,
		CacheMaxEntries:                options.GetInt(CACHE_MAX_ENTRIES),
		CacheRefreshInterval:           options.GetDuration(CACHE_REFRESH_INTERVAL) * time.Second,
		CacheRefreshJitter:             options.GetDuration(CACHE_REFRESH_JITTER) * time.Second,
		CacheRefreshErrorBackoff:       options.GetDuration(CACHE_REFRESH_ERROR_BACKOFF) * time.Second,
		CacheInvalidationChannel:       options.GetString(CACHE_INVALIDATION_CHANNEL),
		CacheServiceAddr:               options.GetString(CACHE_SERVICE_ADDR),
	}

	if clowder.IsClowderEnabled() {
		applyClowderDatabaseConfig(cfg, clowder.LoadedConfig)
	}

	return cfg
}

func applyClowderDatabaseConfig(cfg *Config, appConfig *clowder.AppConfig) {
	if appConfig == nil || appConfig.Database == nil {
		return
	}

	cfg.ConnectionDatabaseHost = appConfig.Database.Hostname
	cfg.ConnectionDatabasePort = appConfig.Database.Port
	cfg.ConnectionDatabaseUser = appConfig.Database.Username
	cfg.ConnectionDatabasePassword = appConfig.Database.Password
	cfg.ConnectionDatabaseName = appConfig.Database.Name
	if appConfig.Database.SslMode != "" {
		cfg.ConnectionDatabaseSslMode = appConfig.Database.SslMode
	}
}
