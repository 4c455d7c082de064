// Package domain defines the core entities of the yaar annotation pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawUnit: A couplet from the raw corpus with its prose insight
//   - AxisAnnotation: The semantic axis of a whole poem
//   - BaytAnnotation: The hint and affect labels of one couplet
//   - RejectionRecord: An audit entry for an invalid model response
//   - StageRun: A journal entry for one stage invocation
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
