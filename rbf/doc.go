// Package rbf implements the radial-basis-function spatial prior: a
// log-domain Gaussian weight kernel between two location sets, and the blur
// operation that redistributes pairwise correlation evidence from a source
// set onto an arbitrary target set.
//
// Blur is a bilinear weighted mixing: every pair of source correlations
// contributes to every pair of target locations, proportionally to spatial
// proximity in both matrix dimensions. It is evaluated as a log-space
// quadratic-form contraction (two dense matrix products), never as literal
// quadruple loops, keeping the O(t*s^2 + t^2*s) cost tractable for location
// counts in the hundreds to low thousands.
package rbf
