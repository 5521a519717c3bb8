// Package middleware provides HTTP middleware for the finance tracker API.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus metrics collection with path normalization
//   - Configurable filtering for health checks
package middleware
