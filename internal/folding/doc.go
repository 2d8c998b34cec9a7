// Package folding implements the unfolding-hoisting optimizer: a
// post-order expression rewrite that strips unfolding wrappers and
// re-inserts the minimal necessary set as close to the root as conflicts
// allow. Fewer, better-placed unfolds mean fewer verification obligations
// downstream.
//
// The walk keeps no shared mutable state across sibling subtrees: each
// operand is optimized with its own pending-unfolding map and requirement
// set, and the merge step is the only point of cross-branch interaction.
package folding
