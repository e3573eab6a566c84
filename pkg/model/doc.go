// Package model defines the form and analytics data shared by the draft,
// validation, stream and analytics packages. Fields, answers and field
// analytics are tagged unions: a common envelope plus a sealed variant
// interface (Spec, AnswerValue, AnalyticsData) whose concrete types callers
// switch over exhaustively. The JSON codecs flatten each union into the wire
// shape used by the forms API, with the discriminant stored under "type".
package model
