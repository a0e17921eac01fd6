package prompt

import (
	"strings"
	"testing"

	"visa-rag/internal/models"
)

func someMatches() []models.RuleMatch {
	return []models.RuleMatch{
		{Rule: models.Rule{ID: "R1", Country: "USA", Category: "tourist", Text: "Applicants must show proof of funds."}, Score: 0.9},
		{Rule: models.Rule{ID: "R2", Country: "USA", Category: "tourist", Text: "A return ticket strengthens the application."}, Score: 0.7},
	}
}

func TestComposeChatWithContext(t *testing.T) {
	p := ComposeChat("do I need bank statements?", "", someMatches(), 0)
	if !strings.Contains(p, "do I need bank statements?") {
		t.Error("prompt missing the question")
	}
	if !strings.Contains(p, "Applicants must show proof of funds.") {
		t.Error("prompt missing retrieved rule text")
	}
	if !strings.Contains(p, "[USA - tourist]") {
		t.Error("prompt missing rule provenance header")
	}
}

func TestComposeChatFallback(t *testing.T) {
	p := ComposeChat("do I need bank statements?", "", nil, 0)
	if p == "" {
		t.Fatal("fallback prompt must be non-empty")
	}
	if !strings.Contains(p, "general knowledge") {
		t.Error("fallback prompt must instruct general-knowledge answering")
	}
	if !strings.Contains(p, "do I need bank statements?") {
		t.Error("fallback prompt missing the question")
	}
}

func TestComposeChatUploadedDocument(t *testing.T) {
	p := ComposeChat("is my bank balance enough?", "Closing balance: $12,400", someMatches(), 0)
	if !strings.Contains(p, "Closing balance: $12,400") {
		t.Error("prompt missing uploaded document text")
	}
}

func TestComposeChatTruncatesUploadFirst(t *testing.T) {
	uploaded := strings.Repeat("statement line with numbers ", 500)
	p := ComposeChat("question", uploaded, someMatches(), 2000)
	if len(p) > 2000 {
		t.Fatalf("prompt exceeds budget: %d chars", len(p))
	}
	// the rule context survives the cut, the uploaded doc is what shrinks
	if !strings.Contains(p, "Applicants must show proof of funds.") {
		t.Error("rule context should survive while the upload is truncated")
	}
}

func TestComposeChatTruncatesContextWhenStillOver(t *testing.T) {
	big := models.RuleMatch{Rule: models.Rule{ID: "big", Country: "USA", Category: "work", Text: strings.Repeat("very long rule text ", 400)}}
	p := ComposeChat("question", "", []models.RuleMatch{big}, 1500)
	if len(p) > 1500 {
		t.Fatalf("prompt exceeds budget: %d chars", len(p))
	}
	if !strings.Contains(p, "question") {
		t.Error("question must survive truncation")
	}
}

func TestComposeAssessment(t *testing.T) {
	answers := map[string]string{
		"passport_valid":        "yes",
		"financial_proof":       "no",
		"passport_valid_detail": "should be excluded",
	}
	p := ComposeAssessment("Canada", "student", answers, someMatches(), 0)
	if !strings.Contains(p, "STUDENT visa to CANADA") {
		t.Error("assessment prompt missing upper-cased country/category")
	}
	if !strings.Contains(p, "- passport_valid: yes") {
		t.Error("assessment prompt missing applicant answers")
	}
	if strings.Contains(p, "should be excluded") {
		t.Error("detail answers must not appear in the prompt")
	}
	if !strings.Contains(p, "approval probability") {
		t.Error("assessment prompt missing the probability instruction")
	}
}

func TestComposeAssessmentFallback(t *testing.T) {
	p := ComposeAssessment("Canada", "student", map[string]string{"passport_valid": "yes"}, nil, 0)
	if !strings.Contains(p, "Based on your knowledge") {
		t.Error("fallback assessment must rely on general knowledge")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello world", 0); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
	if got := truncate("short", 100); got != "short" {
		t.Errorf("expected unchanged string, got %q", got)
	}
	long := strings.Repeat("word ", 100)
	got := truncate(long, 57)
	if len(got) > 57 {
		t.Errorf("truncate exceeded limit: %d", len(got))
	}
	if strings.HasSuffix(got, "wor") {
		t.Errorf("truncate split a word: %q", got)
	}
}
