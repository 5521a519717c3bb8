// Package database manages the SQLite store backing the service: financial
// records with their receipt paths, the profile photo pointer, persisted
// image settings and the per-owner cleanup markers.
package database
