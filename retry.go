// Copyright © 2024 the kafka-manager-sdk authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sdk

import (
	"context"
	"errors"
	"time"

	"github.com/jpillora/backoff"
	"github.com/rs/zerolog"
)

// RetryPolicy controls how the connector config fetch inside
// ConnectorManager.Inspect reacts to the Connect stale-configuration
// conflict (409). The conflict clears itself once the concurrent config
// change settles, so the fetch is retried after a delay.
//
// The zero value of MaxAttempts retries forever; combined with
// DefaultRetryPolicy's fixed one second backoff this blocks the caller
// until the conflict clears or the context is cancelled. Callers that need
// an upper bound set MaxAttempts.
type RetryPolicy struct {
	// MaxAttempts limits how often the fetch is attempted. 0 means no
	// limit. When the budget is spent the last 409 surfaces as an
	// HTTPError.
	MaxAttempts int
	// Backoff produces the delay before each retry. Nil falls back to a
	// fixed one second delay.
	Backoff *backoff.Backoff
}

// DefaultRetryPolicy retries forever with a flat one second delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Backoff: &backoff.Backoff{
			Factor: 1,
			Min:    time.Second,
			Max:    time.Second,
		},
	}
}

// run invokes fn until it returns anything other than a stale-configuration
// error or the attempt budget is spent. The sleep between attempts is
// aborted by ctx cancellation.
func (p RetryPolicy) run(ctx context.Context, logger zerolog.Logger, fn func() error) error {
	b := p.Backoff
	if b == nil {
		b = &backoff.Backoff{Factor: 1, Min: time.Second, Max: time.Second}
	}
	b.Reset()

	for attempt := 1; ; attempt++ {
		err := fn()
		if !errors.Is(err, errStaleConfiguration) {
			return err
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return err
		}

		d := b.Duration()
		logger.Warn().
			Int("attempt", attempt).
			Dur("delay", d).
			Msg("stale connector configuration, retrying")
		if err := sleepCtx(ctx, d); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
