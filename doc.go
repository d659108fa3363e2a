// Package corrfuse fuses pairwise correlation matrices recorded at
// different spatial locations into a single full-brain correlation model.
//
// Each subject contributes a correlation matrix over its own electrode
// locations. The model holds a log-domain accumulator over a canonical
// location set; subject evidence is spread onto that set with a Gaussian
// radial-basis-function kernel and folded in with numerically stable
// log-space sums. The fused model can be retargeted onto new location sets,
// merged with other models, sliced, and used to reconstruct activity at
// unobserved locations from a partial recording.
//
// Basic usage:
//
//	sub, _ := corrfuse.SubjectFromSeries(series, electrodeLocs)
//	m, _ := corrfuse.NewFromSubjects([]*corrfuse.Subject{sub})
//	m2, _ := m.WithLocs(gridLocs, false)
//	corr := m2.Correlation(false)
package corrfuse
