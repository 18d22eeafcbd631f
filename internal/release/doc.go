// Package release obtains ncube release bundles.
//
// A Source yields the raw zip bytes of a release. Fetcher downloads the
// latest release over HTTP and is what both the asset proxy route and
// browser-style sessions use; FileSource and BytesSource serve
// pre-bundled builds without touching the network.
package release
