// Package txn runs multi-document writes atomically and owns the retry policy
// applied when an atomic unit loses to a concurrent writer.
package txn

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/reliefhub/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Policy bounds how often an aborted attempt is re-run.
type Policy struct {
	MaxAttempts int           // total attempts, including the first; values < 1 mean 1
	Backoff     time.Duration // base pause between attempts; zero retries immediately
}

// DefaultPolicy is used when configuration does not override it.
var DefaultPolicy = Policy{MaxAttempts: 5, Backoff: 5 * time.Millisecond}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Retry runs attempt until it returns something other than an Aborted error.
//
// attempt must re-read everything it depends on each time it is called.
// After MaxAttempts aborted runs Retry gives up with a Conflict so callers
// never loop on contention. Non-aborted errors are returned unchanged.
func Retry(ctx context.Context, p Policy, log *zap.Logger, op string, attempt func(ctx context.Context, n int) error) error {
	max := p.attempts()
	var last error
	for n := 1; n <= max; n++ {
		if err := ctx.Err(); err != nil {
			return cancelled(op, err)
		}
		err := attempt(ctx, n)
		if !apperr.Is(err, apperr.Aborted) {
			return err
		}
		last = err
		if log != nil {
			log.Debug("atomic unit aborted",
				zap.String("op", op),
				zap.Int("attempt", n),
				zap.Int("max_attempts", max),
				zap.Error(err))
		}
		if n < max && p.Backoff > 0 {
			t := time.NewTimer(p.Backoff * time.Duration(n))
			select {
			case <-ctx.Done():
				t.Stop()
				return cancelled(op, ctx.Err())
			case <-t.C:
			}
		}
	}
	if log != nil {
		log.Warn("giving up after repeated aborts",
			zap.String("op", op),
			zap.Int("attempts", max),
			zap.Error(last))
	}
	return apperr.Wrap(apperr.Conflict, last, "%s: too much contention, try again", op)
}

// cancelled reports a unit stopped by its context.
func cancelled(op string, err error) error {
	return apperr.Wrap(apperr.Conflict, err, "%s: cancelled before it could complete", op)
}

// Run executes fn inside a MongoDB multi-document transaction.
//
// fn must use the ctx it is given so its operations join the session. When
// the deployment cannot run transactions (standalone mongod) Run logs a
// warning and calls fn without one.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			warnFallback(log, err)
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	err = mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sess.StartTransaction(); err != nil {
			return err
		}
		if err := fn(sc); err != nil {
			_ = sess.AbortTransaction(context.WithoutCancel(sc))
			return err
		}
		return sess.CommitTransaction(sc)
	})
	if err != nil && !IsTransient(err) && IsNotSupported(err) {
		warnFallback(log, err)
		return fn(ctx)
	}
	return err
}

func warnFallback(log *zap.Logger, err error) {
	if log != nil {
		log.Warn("transactions not supported; running writes without one", zap.Error(err))
	}
}

// IsNotSupported reports whether err means the server cannot run transactions
// (for example a standalone mongod that is not part of a replica set).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263: // IllegalOperation, legacy illegal op, OperationNotSupportedInTransaction
			return true
		}
	}
	s := strings.ToLower(err.Error())
	has := func(sub string) bool { return strings.Contains(s, sub) }
	switch {
	case has("transaction") && has("replica set"):
		return true
	case has("session") && has("not supported"):
		return true
	case has("transaction") && has("session"):
		return true
	case has("illegal operation"):
		return true
	}
	return false
}

// IsTransient reports whether err means a concurrent writer won: a write
// conflict or a transaction the server marked as safe to retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorLabel("TransientTransactionError") || se.HasErrorLabel("UnknownTransactionCommitResult") {
			return true
		}
		if se.HasErrorCode(112) { // WriteConflict
			return true
		}
	}
	return false
}
