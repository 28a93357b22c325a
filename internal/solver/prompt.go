package solver

import (
	"fmt"
)

// extractionPrompt asks the model to turn OCR text into a strict JSON
// questions list. The id format matches what the parser and the answer
// flow treat as opaque tokens.
func extractionPrompt(ocrText string) string {
	return fmt.Sprintf(`Extract every question from the following text. Respond with strict JSON only, no commentary and no code fences, in exactly this shape:
{"questions":[{"id":"Q1","question":"..."},{"id":"Q2","question":"..."}]}
Number the ids Q1, Q2, ... in reading order. Preserve the full question text, including any mathematical notation.

Text:
%s`, ocrText)
}

// answerPrompt asks the model for a worked solution to one question,
// formatted for the Markdown/LaTeX renderer on the client.
func answerPrompt(questionText string) string {
	return fmt.Sprintf(`Answer the following question with a clear, step-by-step solution suitable for a school student.
Format the answer in Markdown. Write inline math between $ delimiters and display math between $$ delimiters.

Question:
%s`, questionText)
}
