package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ForUpdate adds a row lock to the query on engines that support it. SQLite
// serializes writers on its own so the clause is skipped there.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if supportsRowLocks(tx) {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// ForUpdateSkipLocked locks the selected rows and skips rows held by other
// transactions, for queue style polling.
func ForUpdateSkipLocked(tx *gorm.DB) *gorm.DB {
	if supportsRowLocks(tx) {
		return tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	return tx
}

func supportsRowLocks(tx *gorm.DB) bool {
	return tx != nil && tx.Dialector != nil && tx.Dialector.Name() == "postgres"
}
