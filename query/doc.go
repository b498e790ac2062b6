// Package query compiles pipeline scripts into enumerator chains.
//
// Each non-blank script line is one stage: a verb followed by its arguments.
// The Parser looks the verb up in a Registry, hands control to the verb's
// Builder, which reads its own arguments through the typed Next* readers, and
// then checks that nothing is left on the line. Builders that embed a nested
// pipeline call NextPipeline, which consumes lines up to a closing "end".
//
// Named tables are resolved through the TableResolver on the
// WorkflowContext, which may itself compile another script. The context is
// copied before every nested build and merged back afterwards so a nested
// parse never disturbs the outer one.
package query
