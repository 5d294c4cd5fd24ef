// Package config handles configuration loading, parsing, and validation
// from various sources (environment variables, files). It provides type-safe
// access to the settings of the server, the task scheduler and the simulated
// services while keeping configuration details separate from service logic.
package config
