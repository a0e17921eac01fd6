package models

// Rule is one visa rule record from the rules file. Immutable after load.
type Rule struct {
	ID           string   `json:"id,omitempty"`
	Country      string   `json:"country"`
	Category     string   `json:"category"`
	Title        string   `json:"title,omitempty"`
	Text         string   `json:"text"`
	Requirements []string `json:"requirements,omitempty"`
}

// RuleMatch is a retrieved rule with its cosine similarity to the query.
type RuleMatch struct {
	Rule  Rule    `json:"rule"`
	Score float32 `json:"score"`
}

// Question is one applicant question shown for a country/category pair.
type Question struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// ChatTurn is a single request/response pair. Not persisted.
type ChatTurn struct {
	Question     string
	UploadedText string
	Matches      []RuleMatch
	Answer       string
}
