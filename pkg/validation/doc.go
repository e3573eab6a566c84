// Package validation holds the pure checks run before a schema is saved or
// published and before a response is submitted. Structural problems are
// returned as values (Violations, or an error message per field id); nothing
// here panics or aborts on bad input.
package validation
