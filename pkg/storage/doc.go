// Package storage provides implementations of the analytics store
// contracts: an in-memory store for tests and local development, and a
// PostgreSQL store in the postgres subpackage for production.
package storage
