// Package trace records the adapter calls a compilation issues.
//
// A Recorder implements filter.Adapter without touching any storage. The
// recorded call tree is what tests assert against and what the explain
// command prints. Two compilations of the same request produce equal call
// trees and therefore equal fingerprints.
package trace
