// Package logspace implements the log-domain correlation accumulator.
//
// Correlation evidence is summed across subjects with fractional spatial
// weights, so magnitudes span many orders. The accumulator therefore stores
// logarithms and combines contributions with a numerically stable logaddexp
// instead of summing in linear space.
//
// Signs survive the log domain through a complex encoding: for a signed
// value x, the numerator cell holds complex(log(max(x,0)), log(max(-x,0))).
// Positive mass accumulates in the real plane, negative mass in the
// imaginary plane, and recovery subtracts the two after exponentiation.
// The denominator holds the log of the total weighted subject count per
// cell; a denominator of zero is a weight of one.
package logspace
