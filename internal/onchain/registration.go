package onchain

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/polyfarm/backend/internal/retry"
)

// RegistrationChecker reports whether an account's proxy wallet contract has
// been deployed. The RPC lookup is rate-sensitive, so each check carries a
// fixed attempt budget; an exhausted budget records "unregistered" rather
// than failing the batch.
type RegistrationChecker struct {
	client *Client
	retry  retry.Config
}

func NewRegistrationChecker(client *Client, maxAttempts int, delay time.Duration) *RegistrationChecker {
	return &RegistrationChecker{
		client: client,
		retry:  retry.Config{MaxAttempts: maxAttempts, Delay: delay},
	}
}

// IsRegistered checks for contract code at the proxy wallet address.
// A clean "no code" answer is a definitive false; only transport errors are
// retried. The returned error is non-nil only when ctx is cancelled.
func (r *RegistrationChecker) IsRegistered(ctx context.Context, proxyWallet common.Address) (bool, error) {
	registered, err := retry.DoWithResult(ctx, r.retry, func() (bool, error) {
		code, err := r.client.CodeAt(ctx, proxyWallet)
		if err != nil {
			return false, err
		}
		return len(code) > 0, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		fmt.Printf("[ONCHAIN] Registration check for %s exhausted its budget: %v\n", proxyWallet.Hex(), err)
		return false, nil
	}
	return registered, nil
}
