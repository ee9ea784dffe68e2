// Package retry re-runs operations that fail with transient transport errors.
//
// Only typed errors from wallgrab/pkg/errors whose type is retryable (network,
// timeout, rate limit, server error) are retried by default. Cancellation of the
// context stops both the attempts and the waits between them.
//
//	payload, err := retry.DoWithResult(ctx, func(ctx context.Context) (*models.Payload, error) {
//		return client.fetchOnce(ctx, url)
//	}, cfg)
package retry
