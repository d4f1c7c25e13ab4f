package model

import (
	"fmt"
	"strings"

	"github.com/foodi-storefront/api/internal/apperr"
	"github.com/foodi-storefront/api/internal/enum"
)

// Status is the closed set of order states.
type Status string

const (
	StatusPending   Status = enum.OrderStatusPending
	StatusShipping  Status = enum.OrderStatusShipping
	StatusCompleted Status = enum.OrderStatusCompleted
	StatusCancelled Status = enum.OrderStatusCancelled
)

// legacyStatuses maps names older backends emit onto the closed set.
var legacyStatuses = map[string]Status{
	"new":        StatusPending,
	"confirmed":  StatusPending,
	"processing": StatusPending,
	"preparing":  StatusPending,
	"delivering": StatusShipping,
	"shipped":    StatusShipping,
	"in_transit": StatusShipping,
	"delivered":  StatusCompleted,
	"done":       StatusCompleted,
	"complete":   StatusCompleted,
	"canceled":   StatusCancelled,
	"rejected":   StatusCancelled,
}

// ParseStatus normalizes a transport status value. Unknown values fail with
// apperr.ErrValidationFailed.
func ParseStatus(s string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch Status(v) {
	case StatusPending, StatusShipping, StatusCompleted, StatusCancelled:
		return Status(v), nil
	}
	if st, ok := legacyStatuses[v]; ok {
		return st, nil
	}
	return "", fmt.Errorf("order status %q: %w", s, apperr.ErrValidationFailed)
}

// Terminal reports whether no further transition is offered from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Transitions returns the forward-meaningful next states for s.
func (s Status) Transitions() []Status {
	switch s {
	case StatusPending:
		return []Status{StatusShipping, StatusCancelled}
	case StatusShipping:
		return []Status{StatusCompleted, StatusCancelled}
	}
	return nil
}

// CanTransition reports whether to is offered from s.
func (s Status) CanTransition(to Status) bool {
	for _, next := range s.Transitions() {
		if next == to {
			return true
		}
	}
	return false
}

func (s *Status) UnmarshalText(b []byte) error {
	st, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}
