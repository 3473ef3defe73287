// Package fetcher downloads upstream facility feeds (Overpass, TPIMS, 511)
// and streams their JSON, CSV and XLSX payloads.
package fetcher

import (
	"context"
	"io"
)

// Fetcher is the conditional download SyncFile builds on. HTTPFetcher is the
// production implementation.
type Fetcher interface {
	// DownloadIfChanged sends etag as If-None-Match. An unchanged resource
	// yields a nil body, the caller's etag and changed=false.
	DownloadIfChanged(ctx context.Context, url, etag string) (body io.ReadCloser, newETag string, changed bool, err error)
}

var _ Fetcher = (*HTTPFetcher)(nil)
