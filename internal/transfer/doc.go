// Package transfer implements the symbolic permission-state transfer
// function: for each statement kind it defines how the sets of held field
// access permissions and folded aggregate permissions change when the
// statement executes. The downstream fold/unfold synthesizer reads the
// resulting states to decide which instructions to emit.
package transfer
