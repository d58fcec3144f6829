package models

import "github.com/google/uuid"

// ensureID assigns a fresh UUID when the caller did not provide one. The
// Postgres schema also defaults ids, this keeps SQLite-backed tests working.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
