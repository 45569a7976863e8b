package network

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

var (
	// MaxNumOfFailingRequests is the request count a breaker must exceed before tripping.
	MaxNumOfFailingRequests = 10
	// FailingRatio is the share of failed requests that trips a breaker.
	FailingRatio = 0.6
	// BreakerTimeout is how long a tripped breaker stays open.
	BreakerTimeout = 30 * time.Second
)

// BreakerService guards a BlockchainService with a circuit breaker so a
// failing node is not hammered by pollers. Lookup misses (ErrTxNotFound)
// and context cancellation do not count as failures.
type BreakerService struct {
	next BlockchainService
	cb   *gobreaker.CircuitBreaker
}

var _ BlockchainService = (*BreakerService)(nil)

// NewBreakerService wraps next. name labels the breaker, typically the network name.
func NewBreakerService(name string, next BlockchainService) *BreakerService {
	return &BreakerService{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				ratio := float64(counts.TotalFailures) / float64(counts.Requests)
				return int(counts.Requests) > MaxNumOfFailingRequests && ratio >= FailingRatio
			},
		}),
	}
}

// State returns the breaker state, e.g. "closed" or "open".
func (b *BreakerService) State() string {
	return b.cb.State().String()
}

// benign marks errors that say nothing about node health.
type benign struct{ err error }

func (e benign) Error() string { return e.err.Error() }

func execute[T any](b *BreakerService, fn func() (T, error)) (T, error) {
	var zero T
	res, err := b.cb.Execute(func() (interface{}, error) {
		v, err := fn()
		if err != nil && (errors.Is(err, ErrTxNotFound) || errors.Is(err, ErrBroadcastRejected) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return benign{err}, nil
		}
		return v, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	if err != nil {
		return zero, err
	}
	if be, ok := res.(benign); ok {
		return zero, be.err
	}
	return res.(T), nil
}

func (b *BreakerService) ListUnspent(ctx context.Context, address string) ([]*UTXO, error) {
	return execute(b, func() ([]*UTXO, error) { return b.next.ListUnspent(ctx, address) })
}

func (b *BreakerService) GetUTXO(ctx context.Context, txid string, vout uint32) (*UTXO, error) {
	return execute(b, func() (*UTXO, error) { return b.next.GetUTXO(ctx, txid, vout) })
}

func (b *BreakerService) BroadcastTx(ctx context.Context, rawTxHex string) (string, error) {
	return execute(b, func() (string, error) { return b.next.BroadcastTx(ctx, rawTxHex) })
}

func (b *BreakerService) GetRawTx(ctx context.Context, txid string) ([]byte, error) {
	return execute(b, func() ([]byte, error) { return b.next.GetRawTx(ctx, txid) })
}

func (b *BreakerService) GetTxStatus(ctx context.Context, txid string) (*TxStatus, error) {
	return execute(b, func() (*TxStatus, error) { return b.next.GetTxStatus(ctx, txid) })
}

func (b *BreakerService) GetBestBlockHeight(ctx context.Context) (uint64, error) {
	return execute(b, func() (uint64, error) { return b.next.GetBestBlockHeight(ctx) })
}
