package store

// UserPlan is the subscription tier of a user.
type UserPlan string

const (
	// UserPlanFree is the default tier, capped at the daily message limit.
	UserPlanFree UserPlan = "free"
	// UserPlanPro is the paid tier with media analysis enabled.
	UserPlanPro UserPlan = "pro"
)

// User is the per-user subscription record. The ID is the opaque identifier
// issued by the external auth provider; records are created lazily on the
// first quota check and never deleted.
type User struct {
	ID             string
	Email          string
	Plan           UserPlan
	MessageCount   int
	SubscriptionTs int64
	CreatedTs      int64
}

type FindUser struct {
	ID *string
}

type UpdateUser struct {
	ID             string
	Email          *string
	Plan           *UserPlan
	MessageCount   *int
	SubscriptionTs *int64
}
