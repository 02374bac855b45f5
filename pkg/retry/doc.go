// Package retry runs operations with a bounded number of attempts and a
// pluggable delay between them.
//
// MaxAttempts counts every call, the first one included, so an operation
// that always fails is invoked exactly MaxAttempts times and the caller
// gets the last error back. No delay is taken after the final attempt.
//
//	cfg := &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     &retry.ConstantBackoff{Delay: 2 * time.Second},
//		RetryIf:     retry.DefaultRetryIf,
//		Context:     ctx,
//	}
//	res, err := retry.DoWithResult(func() (*backend.Result, error) {
//		return client.Login(ctx, address)
//	}, cfg)
package retry
