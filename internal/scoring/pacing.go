package scoring

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/noah-isme/prompt-arena/pkg/ai"
)

const defaultCallTimeout = 30 * time.Second

// callPolicy applies the same timeout and pacing to every external call a
// scorer makes.
type callPolicy struct {
	timeout time.Duration
	limiter *rate.Limiter
}

func newCallPolicy(timeout time.Duration, limiter *rate.Limiter) callPolicy {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return callPolicy{timeout: timeout, limiter: limiter}
}

// begin waits for a pacing slot and returns a context bounded by the call timeout.
func (p callPolicy) begin(ctx context.Context, op string) (context.Context, context.CancelFunc, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	if p.limiter != nil {
		if err := p.limiter.Wait(callCtx); err != nil {
			cancel()
			return nil, nil, ai.NetworkError(op, err)
		}
	}
	return callCtx, cancel, nil
}

// NewLimiter builds an outbound limiter; a non-positive rate disables pacing.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
