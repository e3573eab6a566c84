// Package draft implements the editing state machine for a form schema.
//
// Edits are expressed as Op values and applied by a pure reducer. Engine
// wraps the reducer behind a single mutex-guarded Apply method so no two
// edits interleave and readers only ever see whole schemas. Documents that
// come from legacy or untrusted sources are normalised by Coerce before they
// enter the draft.
package draft
