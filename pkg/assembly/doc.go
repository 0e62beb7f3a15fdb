// Package assembly defines the data model of a Lignin assembly: positioned
// components, anchor points, and the geometric constraints between them.
// It also hosts the structural validator that reports whether a constraint
// system is grounded, resolvable and not over-constrained before a solve.
package assembly
