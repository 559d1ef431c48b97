// Package config loads the balancer configuration from an optional
// config.yaml and environment variables, applies defaults and validates the
// result before anything is started.
package config
