// internal/models/content.go
package models

// Difficulty tags used in the question bank.
const (
	DifficultyBasic    = "basic"
	DifficultyAdvanced = "advanced"
)

// ContentItem is one static interview question.
type ContentItem struct {
	Role   string `json:"role"`
	Tags   string `json:"tags"`
	Prompt string `json:"question"`
	Answer string `json:"answer"`
}
