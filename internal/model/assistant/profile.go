package assistant

// Profile captures the assistant identity exposed to the frontend.
type Profile struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Tone        string   `json:"tone"`
	OpeningLine string   `json:"openingLine"`
	Description string   `json:"description,omitempty"`
	Expertise   []string `json:"expertise,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"` // 快捷提问
}

// DefaultID is the profile bound to sessions created without an explicit assistant.
const DefaultID = "dr-gini"

// Seed provides the default assistant profiles.
func Seed() []Profile {
	return []Profile{
		{
			ID:          DefaultID,
			Name:        "Dr. Gini",
			Title:       "Pharmaceutical Chemistry Assistant",
			Tone:        "precise, friendly, educational",
			OpeningLine: "Hello! I'm Dr. Gini, your pharmaceutical chemistry assistant. Ask me about drugs, mechanisms of action, or request a 2D/3D molecular structure.",
			Description: "Answers medicinal chemistry and pharmacology questions and can render molecular structures on request.",
			Expertise:   []string{"pharmacology", "medicinal chemistry", "pharmacokinetics", "molecular structures"},
			Suggestions: []string{
				"Show me the 2D structure of caffeine",
				"How does aspirin inhibit COX enzymes?",
				"Explain the pharmacokinetics of ibuprofen",
			},
		},
	}
}
