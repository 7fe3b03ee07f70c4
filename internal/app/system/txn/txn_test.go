package txn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/reliefhub/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "generic error",
			err:  errors.New("some random error"),
			want: false,
		},
		{
			name: "command error code 20",
			err:  mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member"},
			want: true,
		},
		{
			name: "command error code 51",
			err:  mongo.CommandError{Code: 51, Message: "Illegal operation"},
			want: true,
		},
		{
			name: "command error code 263",
			err:  mongo.CommandError{Code: 263, Message: "Cannot run in a multi-document transaction"},
			want: true,
		},
		{
			name: "other command error code",
			err:  mongo.CommandError{Code: 100, Message: "Some other error"},
			want: false,
		},
		{
			name: "error with transaction and replica set keywords",
			err:  errors.New("transaction failed because this is not a replica set member"),
			want: true,
		},
		{
			name: "error with session and not supported keywords",
			err:  errors.New("session operations are not supported on this server"),
			want: true,
		},
		{
			name: "error with only one keyword",
			err:  errors.New("transaction failed"),
			want: false,
		},
		{
			name: "error with transaction and session",
			err:  errors.New("cannot start transaction in current session state"),
			want: true,
		},
		{
			name: "error with illegal operation keywords",
			err:  errors.New("illegal operation during transaction"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsNotSupported(tt.err)
			if got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsNotSupported_CaseInsensitive(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "uppercase TRANSACTION and REPLICA SET",
			err:  errors.New("TRANSACTION FAILED on REPLICA SET"),
			want: true,
		},
		{
			name: "mixed case Transaction and Session",
			err:  errors.New("Transaction Session error"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsNotSupported(tt.err)
			if got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain", err: errors.New("write conflict"), want: false},
		{name: "write conflict code", err: mongo.CommandError{Code: 112, Message: "WriteConflict"}, want: true},
		{name: "transient label", err: mongo.CommandError{Code: 251, Labels: []string{"TransientTransactionError"}}, want: true},
		{name: "other code", err: mongo.CommandError{Code: 11000}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetry_SucceedsAfterAborts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), Policy{MaxAttempts: 4}, zap.NewNop(), "claim", func(ctx context.Context, n int) error {
		calls++
		if n < 3 {
			return apperr.Abortedf("version changed")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestRetry_ExhaustedBecomesConflict(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), Policy{MaxAttempts: 3}, zap.NewNop(), "claim", func(ctx context.Context, n int) error {
		calls++
		return apperr.Abortedf("version changed")
	})
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
	if !apperr.Is(err, apperr.Conflict) {
		t.Errorf("expected Conflict after exhausting attempts, got %v", err)
	}
}

func TestRetry_NonAbortedReturnedImmediately(t *testing.T) {
	calls := 0
	want := apperr.NotFoundf("help request not found")
	err := Retry(context.Background(), Policy{MaxAttempts: 5}, nil, "claim", func(ctx context.Context, n int) error {
		calls++
		return want
	})
	if err != want {
		t.Errorf("err: got %v, want %v", err, want)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Retry(context.Background(), Policy{}, nil, "resolve", func(ctx context.Context, n int) error {
		calls++
		return apperr.Abortedf("busy")
	})
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestRetry_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, Policy{MaxAttempts: 5, Backoff: time.Millisecond}, nil, "claim", func(ctx context.Context, n int) error {
		calls++
		cancel()
		return apperr.Abortedf("busy")
	})
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
	if !apperr.Is(err, apperr.Conflict) {
		t.Errorf("expected Conflict on cancellation, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
}

func TestRetry_ExpiredContextNeverSurfacesAborted(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	calls := 0
	err := Retry(ctx, DefaultPolicy, nil, "resolve", func(ctx context.Context, n int) error {
		calls++
		return nil
	})
	if calls != 0 {
		t.Errorf("calls: got %d, want 0", calls)
	}
	if got := apperr.KindOf(err); got != apperr.Conflict {
		t.Errorf("kind: got %q, want %q", got, apperr.Conflict)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded in chain, got %v", err)
	}
}
