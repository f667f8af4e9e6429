package store

// Thread is a conversation container owning an ordered sequence of messages.
type Thread struct {
	ID        int32
	UID       string
	UserID    string
	Title     string
	CreatedTs int64
}

type FindThread struct {
	ID     *int32
	UID    *string
	UserID *string
}
