// Package analytics keeps a live analytics snapshot for one form.
//
// A Synchronizer fetches the snapshot once, then subscribes to the form's
// delta feed and folds every delta into the snapshot with Merge. Field entries
// are keyed by (fieldId, kind): matching entries are replaced in place, new
// entries are appended and entries absent from a delta are kept.
package analytics
