// Package index implements the incremental listing crawler. It pages through
// the listing site, extracts article references and stops as soon as a page
// holds nothing the ledger does not already know.
//
// Pagination drifts while the crawl runs, so consecutive pages may overlap.
// Overlap alone never ends the crawl; only a page that is entirely known does.
package index
