// Package core implements the test-site pool: a fixed set of slot indexes,
// a single-site preparation cache that keeps the next site warm, and the
// cleanup pipeline that recycles previously used sites.
//
// The package is internal. The public API in the repository root wraps the
// types exported here and hides everything else.
package core
