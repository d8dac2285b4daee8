// Package config handles configuration loading for handoff-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	green_api:
//	  api_token: "${GREEN_API_TOKEN}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	admission:
//	  pause_duration: "6h"
//	  vip_pause_duration: "24h"
//	forward:
//	  timeout: "5s"
//
// # Configuration Sections
//
// Server and database:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	database:
//	  path: "/var/lib/handoff/gateway.db"
//
// Admission gate lists (business configuration, injected rather than
// compiled in):
//
//	admission:
//	  owner_wid: "972500000001@c.us"
//	  authorized_numbers: ["972526672663"]
//	  whitelist_keywords: ["office"]
//	  blacklist_names: []
//	  unpause_phrases: ["resume"]
//	  vip_chat_id: "972542619636@c.us"
//	  pause_duration: "6h"
//	  vip_pause_duration: "24h"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
