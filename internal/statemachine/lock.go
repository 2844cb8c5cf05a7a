package statemachine

import "gorm.io/gorm/clause"

// lockingClause returns a SELECT ... FOR UPDATE clause so concurrent
// CreateEvent calls for the same bot serialize on the row lock rather than
// racing on a read-modify-write of bot.State.
func lockingClause() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}
