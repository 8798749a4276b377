// Package installer downloads and unpacks the components of a Plutonium
// dedicated server.
//
// Each requested target runs the same linear pipeline: resolve its URL from
// the catalog, fetch it, extract it into the destination and remove any
// temporary file. Targets run one after another and the first failure stops
// the run. Usage errors, such as a missing engine, are reported before any
// network request is made.
package installer
