package outbox

// Row status values shared by outbox adapters and the worker relay.
const (
	StatusPending   = "pending"
	StatusPublished = "published"
	StatusFailed    = "failed"
)

// Message is the outbox row persisted inside the same transaction as policy
// state changes. The worker relay reads pending rows and publishes them to
// the message bus.
type Message struct {
	ID         string
	EventType  string
	Payload    []byte
	Status     string
	RetryCount int
}
