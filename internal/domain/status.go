package domain

import "time"

type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusPaid      OrderStatus = "PAID"
	StatusShipped   OrderStatus = "SHIPPED"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusRefunded  OrderStatus = "REFUNDED"
)

var transitions = map[OrderStatus][]OrderStatus{
	StatusPending: {StatusPaid, StatusCancelled},
	StatusPaid:    {StatusShipped, StatusRefunded},
	StatusShipped: {StatusCompleted, StatusRefunded},
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch status := OrderStatus(s); status {
	case StatusPending, StatusPaid, StatusShipped, StatusCompleted, StatusCancelled, StatusRefunded:
		return status, nil
	}
	return "", Validationf("unknown order status %q", s)
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// CheckTransition validates a move without mutating the order.
func (o *Order) CheckTransition(to OrderStatus) error {
	if !o.Status.CanTransitionTo(to) {
		return &TransitionError{OrderID: o.ID, From: o.Status, To: to}
	}
	return nil
}

// Transition moves the order to the given status and stamps UpdatedAt.
func (o *Order) Transition(to OrderStatus, at time.Time) error {
	if err := o.CheckTransition(to); err != nil {
		return err
	}
	o.Status = to
	o.UpdatedAt = at
	return nil
}

func (s OrderStatus) String() string {
	return string(s)
}

