// Package store defines the persistence contracts for restaurants and run logs.
// Implementations live under internal/storage; this package must not import database
// drivers or concrete clients.
package store
