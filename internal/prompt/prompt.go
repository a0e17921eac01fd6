package prompt

import (
	"fmt"
	"sort"
	"strings"

	"visa-rag/internal/models"
)

// ComposeChat assembles the chat prompt from the question, optional
// uploaded document text, and the retrieved rules. Pure string assembly.
// When nothing was retrieved the prompt instructs the model to answer from
// general knowledge; that is the documented fallback, not an error.
func ComposeChat(question, uploadedText string, matches []models.RuleMatch, maxChars int) string {
	contextText := buildContext(matches)
	uploadedText = strings.TrimSpace(uploadedText)

	compose := func(ctxText, uploaded string) string {
		section := ""
		if uploaded != "" {
			section = fmt.Sprintf(models.UploadedDocSection, uploaded)
		}
		if ctxText == "" {
			return fmt.Sprintf(models.ChatFallbackPromptTemplate, question, section)
		}
		return fmt.Sprintf(models.ChatPromptTemplate, ctxText, section, question)
	}

	p := compose(contextText, uploadedText)
	if maxChars <= 0 || len(p) <= maxChars {
		return p
	}

	// over budget: cut the uploaded document first, rule context second
	if uploadedText != "" {
		keep := len(uploadedText) - (len(p) - maxChars)
		uploadedText = truncate(uploadedText, keep)
		p = compose(contextText, uploadedText)
	}
	if len(p) > maxChars && contextText != "" {
		keep := len(contextText) - (len(p) - maxChars)
		contextText = truncate(contextText, keep)
		p = compose(contextText, uploadedText)
	}
	return p
}

// ComposeAssessment assembles the application-assessment prompt from the
// applicant's answers and the retrieved rules for the requested visa.
func ComposeAssessment(country, category string, answers map[string]string, matches []models.RuleMatch, maxChars int) string {
	contextText := buildContext(matches)
	answerText := formatAnswers(country, category, answers)

	countryU := strings.ToUpper(country)
	categoryU := strings.ToUpper(category)

	var p string
	if contextText == "" {
		p = fmt.Sprintf(models.AssessmentFallbackPromptTemplate,
			categoryU, countryU, answerText, country, category)
	} else {
		p = fmt.Sprintf(models.AssessmentPromptTemplate,
			contextText, categoryU, countryU, country, category, answerText, country, category)
	}

	if maxChars > 0 && len(p) > maxChars && contextText != "" {
		keep := len(contextText) - (len(p) - maxChars)
		contextText = truncate(contextText, keep)
		p = fmt.Sprintf(models.AssessmentPromptTemplate,
			contextText, categoryU, countryU, country, category, answerText, country, category)
	}
	return p
}

func buildContext(matches []models.RuleMatch) string {
	if len(matches) == 0 {
		return ""
	}
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, fmt.Sprintf("[%s - %s]\n%s", m.Rule.Country, m.Rule.Category, m.Rule.Text))
	}
	return strings.Join(parts, models.ContextEntrySeparator)
}

func formatAnswers(country, category string, answers map[string]string) string {
	keys := make([]string, 0, len(answers))
	for k := range answers {
		if strings.HasSuffix(k, "_detail") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "- country: %s\n", country)
	fmt.Fprintf(&b, "- category: %s\n", strings.ToLower(category))
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, answers[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

// truncate cuts s down to at most n bytes, preferring a space, newline, or
// sentence end within the last tenth of the kept range.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	end := n
	lookBack := n / 10
	for i := end - 1; i >= end-lookBack && i > 0; i-- {
		if s[i] == ' ' || s[i] == '\n' || s[i] == '.' {
			end = i + 1
			break
		}
	}
	return strings.TrimSpace(s[:end])
}
