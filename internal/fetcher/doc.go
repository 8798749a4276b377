// Package fetcher downloads remote artifacts over HTTP.
//
// A single Fetcher is built per run and shared by every install target. It
// streams response bodies either into memory or into a file and reports the
// number of bytes received against the declared content length after every
// chunk. The only retry it performs is reissuing an in-memory download whose
// response carries no content length, bounded by a configurable attempt count.
package fetcher
