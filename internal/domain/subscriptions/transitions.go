package subscriptions

type transition struct {
	from, to Status
}

// Renewal (active -> active) is a period extension, not a status change, and
// reactivation after cancellation creates a new subscription.
var validTransitions = map[transition]bool{
	{StatusTrial, StatusActive}:      true,
	{StatusTrial, StatusCancelled}:   true,
	{StatusActive, StatusCancelled}:  true,
	{StatusCancelled, StatusExpired}: true,
	{StatusTrial, StatusExpired}:     true,
}

func CanTransition(from, to Status) bool {
	return validTransitions[transition{from, to}]
}
