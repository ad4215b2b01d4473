// Package driver runs the analyzer over many files at once: discovery of
// *.orbit files, a bounded worker pool, a disk cache of results and the
// batch fix loop used by the command line.
package driver
