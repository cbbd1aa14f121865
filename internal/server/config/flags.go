package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/intercomkey/internal/flagx"
)

// parseFlags overlays selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-d string   PostgreSQL DSN
//	-s string   server secret key
//	-t int      local token validity, hours
//	-l string   logging profile (local, dev, prod)
//	-v int      vendor call timeout, seconds
//
// Unknown flags are filtered out first so other components may define their own.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-t", "-l", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.Env, "l", config.Env, "logging profile: local, dev or prod")

	localTokenValidity := fs.Int("t", int(config.LocalTokenValidityDuration.Hours()), "local_token_validity_duration (in hours)")
	vendorTimeout := fs.Int("v", int(config.VendorTimeout.Seconds()), "vendor_timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.LocalTokenValidityDuration = time.Duration(*localTokenValidity) * time.Hour
	config.VendorTimeout = time.Duration(*vendorTimeout) * time.Second
}
