package store

// MessageRole identifies the author of a message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is one turn within a thread. Image holds the inline-encoded payload
// when the turn carried a vision request; HasPDF flags document turns.
type Message struct {
	ID        int32
	UID       string
	ThreadID  int32
	Role      MessageRole
	Content   string
	Image     string
	HasPDF    bool
	CreatedTs int64
}

type FindMessage struct {
	ID       *int32
	UID      *string
	ThreadID *int32
}
