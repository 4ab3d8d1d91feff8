package postgres

import (
	"strings"

	"gorm.io/gorm"

	"github.com/dealspot/redemption-engine/internal/ports"
)

type Repositories struct {
	Deals    ports.DealRepository
	Claims   ports.ClaimRepository
	Attempts ports.AttemptRepository
	Outbox   ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Deals:    &dealRepository{db: db},
		Claims:   &claimRepository{db: db},
		Attempts: &attemptRepository{db: db},
		Outbox:   &outboxRepository{db: db},
	}
}

// isSerializationFailure detects transactions that lost a race and are safe to
// retry (serialization failure 40001, deadlock 40P01).
func isSerializationFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 40001") || strings.Contains(msg, "SQLSTATE 40P01")
}
