package interfaces

// EventPublisher pushes post-commit domain events to interested consumers.
// Publishing is best effort; a failed publish never unwinds a committed
// ledger write.
type EventPublisher interface {
	Publish(topic string, event any) error
}
