// Package store holds the persistence contract for participants and their
// claim history. Every function takes the *gorm.DB to run against so callers
// can pass either the shared handle or a transaction.
package store
