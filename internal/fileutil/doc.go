// Package fileutil provides small file and directory helpers.
//
// EnsureDir creates directories recursively and is used for preparing the
// lease directory and the parent directory of the allocation ledger.
package fileutil
