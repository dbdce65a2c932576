// Package crawler defines the contracts shared by the fetchers, archive, queue and
// publishers: fetch requests and responses, run requests, and URL helpers.
package crawler
