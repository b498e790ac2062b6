// Package data defines the columnar batch model shared by every pipeline
// stage.
//
// A Batch is a window over a typed backing array ([]int32, []String8, ...)
// with an optional row remap and an optional null bitmap; neither overlay
// copies the array. An Enumerator is one pipeline stage: it exposes its
// schema, hands out per-column Getters, and advances with Next. Getters are
// requested once per stage and may only be invoked between a Next that
// returned rows and the following Next, Reset or Close. Stages only ask
// their upstream for the columns their own downstream asked for, so unused
// columns are never read or converted.
//
// # Usage
//
//	rows, err := data.RunAndClose(ctx, pipeline)
package data
