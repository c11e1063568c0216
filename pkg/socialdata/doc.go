// Package socialdata is a client for the SocialData API, a read-only mirror
// of public X/Twitter data.
//
// It resolves accounts and pages through an account's posts with the search
// endpoint. Every request waits on a shared rate limiter, carries the API key
// as a bearer token and is retried with exponential backoff when the failure
// is transient. Failures come back as *errors.Error values from pkg/errors:
//
//	client := socialdata.NewClient(apiKey,
//	    socialdata.WithLimiter(limiter),
//	    socialdata.WithRetry(retry.FromConfig(cfg.Retry, log)))
//
//	account, err := client.FetchAccount(ctx, "golang")
//	if errors.Is(err, errs.ErrForbidden) {
//	    // protected account
//	}
//
//	page, err := client.FetchPostsPage(ctx, socialdata.PageRequest{
//	    Username: "golang",
//	    Type:     models.PostTypeBoth,
//	})
//
// The API key is only ever written to the Authorization header.
package socialdata
