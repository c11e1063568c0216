// Package fetcher drives the paginated collection of one account's posts.
//
// A Fetcher moves through idle, fetching_account, fetching_posts and then
// done or error. While paging it drops posts it has already seen, applies
// the inclusive date filter and stops at the requested count, the last page,
// or the first page that lies entirely before the start date. That early
// stop relies on the API returning posts newest first.
//
// A failed run returns only the error. Posts gathered before the failure
// are discarded.
package fetcher
