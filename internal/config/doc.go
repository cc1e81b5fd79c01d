// Package config loads and validates coordinator.toml, the single file
// the coordinator reads at startup for timing, storage-backend selection,
// and limits. Environment variables override equivalently named keys.
package config
