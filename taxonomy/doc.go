// Package taxonomy reconstructs the HS/CN nomenclature forest from its
// flat, level-annotated source table and exposes the canonical leaf
// ordering the rest of the system keys on.
//
// The source format carries no explicit parent references: nesting is
// implied entirely by each row's depth annotation combined with row order.
// Load rebuilds the hierarchy in a single pass using an ancestor stack, so
// damaged inputs degrade gracefully (an orphaned row becomes a new root
// rather than a failure).
//
// The Index built here is read-only after Load and is shared by reference
// across concurrent classification sessions.
package taxonomy
