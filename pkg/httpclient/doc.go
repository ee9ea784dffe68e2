// Package httpclient is the single outbound HTTP surface of wallgrab.
//
// Resolvers use it to load HTML pages and the pipeline uses it to fetch image
// payloads. Every request passes through a shared rate limiter, non-2xx
// responses become typed *errors.Error values, and transient failures are
// retried according to the configured policy.
//
//	client := httpclient.NewFromConfig(cfg, log)
//	payload, err := client.Fetch(ctx, "https://i.imgur.com/abc.jpg")
//	if err != nil {
//	    // errors.TypeOf(err) tells network, timeout and not_found apart
//	}
package httpclient
