package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity provides identity and audit timestamps shared by every entity.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity creates a new base entity with a generated ID
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch bumps UpdatedAt.
func (e *BaseEntity) Touch(at time.Time) {
	e.UpdatedAt = at
}

// AggregateRoot is an entity that records domain events until they are
// published by the application layer.
type AggregateRoot struct {
	BaseEntity
	events []DomainEvent
}

// NewAggregateRoot creates a new aggregate root with a generated ID
func NewAggregateRoot() AggregateRoot {
	return AggregateRoot{BaseEntity: NewBaseEntity()}
}

// AddDomainEvent queues an event for publication
func (a *AggregateRoot) AddDomainEvent(event DomainEvent) {
	a.events = append(a.events, event)
}

// DomainEvents returns the queued events
func (a *AggregateRoot) DomainEvents() []DomainEvent {
	return a.events
}

// ClearDomainEvents drops the queued events once they have been published
func (a *AggregateRoot) ClearDomainEvents() {
	a.events = nil
}
