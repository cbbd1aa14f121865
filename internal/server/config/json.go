package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/intercomkey/internal/flagx"
	"github.com/dmitrijs2005/intercomkey/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept both
// "15s"-style strings and integer nanoseconds. Absent keys leave the current
// value untouched.
type JsonConfig struct {
	Env                        string         `json:"env"`
	EndpointAddrHTTP           string         `json:"endpoint_addr_http"`
	DatabaseDSN                string         `json:"database_dsn"`
	DBMaxOpenConns             int            `json:"db_max_open_conns"`
	DBMaxIdleConns             int            `json:"db_max_idle_conns"`
	SecretKey                  string         `json:"secret_key"`
	LocalTokenValidityDuration timex.Duration `json:"local_token_validity_duration"`
	VendorIdentityURL          string         `json:"vendor_identity_url"`
	VendorHouseholdURL         string         `json:"vendor_household_url"`
	VendorVideoURL             string         `json:"vendor_video_url"`
	VendorTimeout              timex.Duration `json:"vendor_timeout"`
	SessionCacheSize           int            `json:"session_cache_size"`
	SessionTTL                 timex.Duration `json:"session_ttl"`
	ReadTimeout                timex.Duration `json:"read_timeout"`
	WriteTimeout               timex.Duration `json:"write_timeout"`
	IdleTimeout                timex.Duration `json:"idle_timeout"`
	ShutdownTimeout            timex.Duration `json:"shutdown_timeout"`
}

// parseJson loads the file named by -c / -config (if any) and copies every
// non-zero value into config. Unreadable files and invalid JSON panic.
func parseJson(config *Config, args []string) {

	path := flagx.ConfigPath(args)

	// nothing to load
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.Env, c.Env)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setInt(&config.DBMaxOpenConns, c.DBMaxOpenConns)
	setInt(&config.DBMaxIdleConns, c.DBMaxIdleConns)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.LocalTokenValidityDuration, c.LocalTokenValidityDuration)
	setString(&config.VendorIdentityURL, c.VendorIdentityURL)
	setString(&config.VendorHouseholdURL, c.VendorHouseholdURL)
	setString(&config.VendorVideoURL, c.VendorVideoURL)
	setDuration(&config.VendorTimeout, c.VendorTimeout)
	setInt(&config.SessionCacheSize, c.SessionCacheSize)
	setDuration(&config.SessionTTL, c.SessionTTL)
	setDuration(&config.ReadTimeout, c.ReadTimeout)
	setDuration(&config.WriteTimeout, c.WriteTimeout)
	setDuration(&config.IdleTimeout, c.IdleTimeout)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
