package domain

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// transitions is the full legality table. Forward progress is strictly
// linear; cancellation is reachable only before the kitchen starts.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady},
	StatusReady:     {StatusCompleted},
	StatusCompleted: {},
	StatusCancelled: {},
}

func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether s -> next is in the legality table.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Cancellable reports whether an order in this status may still be cancelled.
func (s OrderStatus) Cancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal reports whether no transition leads out of this status.
func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0
}
