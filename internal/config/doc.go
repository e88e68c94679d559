// Package config handles configuration loading for trellis.
//
// # Configuration File
//
// Configuration is read from a YAML file, or from TOML when the file name
// ends in .toml. Both formats use the same keys:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  read_timeout: "15s"
//	  write_timeout: "15s"
//
//	database:
//	  driver: "sqlite"          # or "postgres"
//	  dsn: "./trellis.db"
//
//	auth:
//	  access_secret: "${TRELLIS_ACCESS_SECRET}"
//	  refresh_secret: "${TRELLIS_REFRESH_SECRET}"
//	  admin_key: "${TRELLIS_ADMIN_KEY}"
//	  access_ttl: "15m"
//	  refresh_ttl: "168h"
//
//	logging:
//	  level: "info"             # debug, info, warn, error
//	  format: "text"            # text or json
//
// # Environment Variable Expansion
//
// ${VAR_NAME} is replaced with the variable's value before parsing. Unset
// variables expand to the empty string.
//
// # Validation
//
// Both token secrets are required, must be at least 16 characters and must
// differ. An empty admin_key disables admin self-registration.
package config
