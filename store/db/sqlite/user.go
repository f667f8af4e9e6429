package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/banterhq/banter/store"
)

func (d *DB) CreateUser(ctx context.Context, create *store.User) (*store.User, error) {
	fields := []string{"id", "email", "plan", "message_count", "subscription_ts", "created_ts"}
	args := []any{create.ID, create.Email, string(create.Plan), create.MessageCount, create.SubscriptionTs, create.CreatedTs}

	stmt := `INSERT INTO "user" (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}

	return create, nil
}

func (d *DB) GetUser(ctx context.Context, find *store.FindUser) (*store.User, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}

	query := `SELECT id, email, plan, message_count, subscription_ts, created_ts FROM "user" WHERE ` + strings.Join(where, " AND ")
	user := &store.User{}
	var plan string
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Email, &plan, &user.MessageCount, &user.SubscriptionTs, &user.CreatedTs,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get user")
	}
	user.Plan = store.UserPlan(plan)

	return user, nil
}

func (d *DB) UpdateUser(ctx context.Context, update *store.UpdateUser) (*store.User, error) {
	set, args := []string{}, []any{}

	if update.Email != nil {
		set, args = append(set, "email = "+placeholder(len(args)+1)), append(args, *update.Email)
	}
	if update.Plan != nil {
		set, args = append(set, "plan = "+placeholder(len(args)+1)), append(args, string(*update.Plan))
	}
	if update.MessageCount != nil {
		set, args = append(set, "message_count = "+placeholder(len(args)+1)), append(args, *update.MessageCount)
	}
	if update.SubscriptionTs != nil {
		set, args = append(set, "subscription_ts = "+placeholder(len(args)+1)), append(args, *update.SubscriptionTs)
	}

	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE "user" SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + ` RETURNING id, email, plan, message_count, subscription_ts, created_ts`
	user := &store.User{}
	var plan string
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&user.ID, &user.Email, &plan, &user.MessageCount, &user.SubscriptionTs, &user.CreatedTs,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("user not found")
		}
		return nil, errors.Wrap(err, "failed to update user")
	}
	user.Plan = store.UserPlan(plan)

	return user, nil
}
