// Package assessment holds the intake form model: the field rule table,
// per-field validation with clinical advisories, and the three-section form
// controller with its draft snapshot. It performs no I/O; persistence and
// rendering subscribe to form events from the outside.
package assessment
