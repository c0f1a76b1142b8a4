// Package config handles configuration loading for bi-gateway.
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
//	auth:
//	  state_secret: "${BI_STATE_SECRET}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string, which
// validation then catches for required fields.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	oauth:
//	  request_ttl: "5m"
//	  code_ttl: "60s"
//	  token_ttl: "24h"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server and storage:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	database:
//	  path: "/var/lib/bi/gateway.db"
//
// Authorization:
//
//	auth:
//	  state_secret: "${BI_STATE_SECRET}"   # >= 32 chars, signs OAuth state
//	admin:
//	  secret_hash: "$2a$10$..."            # bcrypt, from `bi-gateway secret`
//
// Analysis tool collaborators:
//
//	tools:
//	  completion_url: "https://llm.example/v1/chat/completions"
//	  completion_key: "${BI_LLM_KEY}"
//	  model: "analyst-large"
//	  search_url: "https://search.example/query"
//	  timeout: "90s"
//
// Logging:
//
//	logging:
//	  level: "info"    # debug, info, warn, error
//	  format: "text"   # text, json, color
package config
