// Package engine enumerates the supported Plutonium game engines and maps
// each of them to the locations of its server files and server config bundle.
package engine
