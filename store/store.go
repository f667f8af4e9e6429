// Package store provides database access to all raw objects.
package store

import (
	"context"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/banterhq/banter/internal/profile"
	apperrors "github.com/banterhq/banter/internal/errors"
)

// titleSeedLimit is the number of leading characters of the first user
// message used as the thread title.
const titleSeedLimit = 30

// Store provides database access to all raw objects. Every backing-service
// failure surfaces as a STORE_UNAVAILABLE coded error; there is no retry and
// no caching layer in front of the driver.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrCodeStoreUnavailable, "store operation failed", err)
}

// GetUser returns the user record for the given ID, or nil if absent.
func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	user, err := s.driver.GetUser(ctx, find)
	if err != nil {
		return nil, storeErr(err)
	}
	return user, nil
}

// CreateUser persists a new user record. Plan defaults to free.
func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	if create.Plan == "" {
		create.Plan = UserPlanFree
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	user, err := s.driver.CreateUser(ctx, create)
	if err != nil {
		return nil, storeErr(err)
	}
	return user, nil
}

// UpdateUser applies the non-nil fields of update to the user record.
func (s *Store) UpdateUser(ctx context.Context, update *UpdateUser) (*User, error) {
	user, err := s.driver.UpdateUser(ctx, update)
	if err != nil {
		return nil, storeErr(err)
	}
	return user, nil
}

// CreateThread creates a thread for the user with a title derived from the
// seed: the first 30 characters, with an ellipsis marker when truncated.
func (s *Store) CreateThread(ctx context.Context, userID, titleSeed string) (*Thread, error) {
	thread := &Thread{
		UID:       shortuuid.New(),
		UserID:    userID,
		Title:     TruncateTitle(titleSeed),
		CreatedTs: time.Now().Unix(),
	}
	created, err := s.driver.CreateThread(ctx, thread)
	if err != nil {
		return nil, storeErr(err)
	}
	return created, nil
}

// ListThreads returns the user's threads, newest first.
func (s *Store) ListThreads(ctx context.Context, userID string) ([]*Thread, error) {
	threads, err := s.driver.ListThreads(ctx, &FindThread{UserID: &userID})
	if err != nil {
		return nil, storeErr(err)
	}
	return threads, nil
}

// GetThread returns the thread with the given UID owned by userID, or nil.
func (s *Store) GetThread(ctx context.Context, userID, threadUID string) (*Thread, error) {
	threads, err := s.driver.ListThreads(ctx, &FindThread{UID: &threadUID, UserID: &userID})
	if err != nil {
		return nil, storeErr(err)
	}
	if len(threads) == 0 {
		return nil, nil
	}
	return threads[0], nil
}

// AppendMessage appends a message to the thread. Identifier and timestamp are
// assigned here; ordering within a thread follows the assigned timestamp.
func (s *Store) AppendMessage(ctx context.Context, create *Message) (*Message, error) {
	if create.UID == "" {
		create.UID = shortuuid.New()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	message, err := s.driver.CreateMessage(ctx, create)
	if err != nil {
		return nil, storeErr(err)
	}
	return message, nil
}

// ListMessages returns the messages of the user's thread, oldest first.
// Returns an empty slice when the thread does not exist or belongs to
// another user.
func (s *Store) ListMessages(ctx context.Context, userID, threadUID string) ([]*Message, error) {
	thread, err := s.GetThread(ctx, userID, threadUID)
	if err != nil {
		return nil, err
	}
	if thread == nil {
		return []*Message{}, nil
	}
	messages, err := s.driver.ListMessages(ctx, &FindMessage{ThreadID: &thread.ID})
	if err != nil {
		return nil, storeErr(err)
	}
	return messages, nil
}

// TruncateTitle derives a thread title from the seed text.
func TruncateTitle(seed string) string {
	runes := []rune(seed)
	if len(runes) <= titleSeedLimit {
		return seed
	}
	return string(runes[:titleSeedLimit]) + "..."
}
