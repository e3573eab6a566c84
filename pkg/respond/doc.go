// Package respond fills in and submits a published form.
package respond
