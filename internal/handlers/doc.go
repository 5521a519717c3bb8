// Package handlers implements the HTTP API: financial records, the profile
// photo lifecycle, image settings, storage cleanup and health endpoints.
package handlers
