// Package config loads the market-pulse YAML configuration.
//
// ${VAR} references are expanded from the environment before parsing, so API
// keys can stay out of the file.
package config
