// Package config loads sweep configuration documents: YAML parsing with
// source order preserved, schema validation, merging with the embedded
// default table, and required-key enforcement.
package config
