// Package domain contains core domain types for the StudyPal application.
package domain

// Question is a single extracted question from an uploaded image.
// The ID is an opaque token (typically "Q1", "Q2", ...) unique within
// one upload; no numeric or ordering semantics are attached to it.
type Question struct {
	ID   string `json:"id"`
	Text string `json:"question"`
}

// Answer is a generated solution for one question. QuestionText is a
// denormalized copy so an answer card renders without a join back to
// the question collection.
type Answer struct {
	QuestionID   string `json:"question_id"`
	QuestionText string `json:"question"`
	AnswerText   string `json:"answer"`
}
