package order

// AllStatuses is the closed lifecycle enum. The usual progression is
// pending -> confirmed -> processing -> shipped -> delivered, with
// cancelled reachable from any non-terminal state, but only membership
// is a hard rule.
var AllStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

func ValidStatus(s OrderStatus) bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

func isFinal(s OrderStatus) bool {
	return s == StatusDelivered || s == StatusCancelled
}

// StatusPolicy governs transitions. With LockFinal off any enum value may
// overwrite any other; with it on, delivered and cancelled become
// terminal states.
type StatusPolicy struct {
	LockFinal bool
}

// Check validates a requested transition. from is the currently stored
// status, to the requested one.
func (p StatusPolicy) Check(from, to OrderStatus) error {
	if !ValidStatus(to) {
		return &InvalidStatusError{Status: string(to)}
	}
	if p.LockFinal && isFinal(from) && from != to {
		return ErrStatusLocked
	}
	return nil
}
