package order

// allowedTransitions encodes the forward-only happy path plus the
// administrative short-circuit to CANCELLED. A cancelled order may be revived
// to any earlier state; that transition never touches inventory, which is
// reversed only by deletion.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusProcessing: true,
		StatusCancelled:  true,
	},
	StatusProcessing: {
		StatusShipped:   true,
		StatusCancelled: true,
	},
	StatusShipped: {
		StatusDelivered: true,
		StatusCancelled: true,
	},
	StatusDelivered: {},
	StatusCancelled: {
		StatusPending:    true,
		StatusProcessing: true,
		StatusShipped:    true,
	},
}

func CanTransition(from, to Status) bool {
	return allowedTransitions[from][to]
}

func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}
