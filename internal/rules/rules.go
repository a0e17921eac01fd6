package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"visa-rag/internal/models"
)

// Store holds the visa rules loaded from the rules file. Read-only after Load.
type Store struct {
	rules []models.Rule
	byID  map[string]models.Rule
}

// Load reads the rules file and derives IDs for records that lack one.
// A missing or malformed file is a startup error for the caller.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file %s: %w", path, err)
	}
	var rules []models.Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	s := &Store{byID: make(map[string]models.Rule, len(rules))}
	for i, r := range rules {
		if strings.TrimSpace(r.Text) == "" {
			log.Warn().Int("record", i+1).Msg("Skipping rule with empty text")
			continue
		}
		if r.ID == "" {
			r.ID = deriveID(r, i)
		}
		s.rules = append(s.rules, r)
		s.byID[r.ID] = r
	}
	log.Info().Int("count", len(s.rules)).Str("path", path).Msg("Loaded visa rules")
	return s, nil
}

// NewStore builds a store from in-memory rules.
func NewStore(rules []models.Rule) *Store {
	s := &Store{byID: make(map[string]models.Rule, len(rules))}
	for i, r := range rules {
		if r.ID == "" {
			r.ID = deriveID(r, i)
		}
		s.rules = append(s.rules, r)
		s.byID[r.ID] = r
	}
	return s
}

func deriveID(r models.Rule, i int) string {
	slug := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
	}
	if r.Country != "" && r.Category != "" {
		return fmt.Sprintf("%s-%s-%d", slug(r.Country), slug(r.Category), i+1)
	}
	return fmt.Sprintf("rule-%d", i+1)
}

func (s *Store) All() []models.Rule {
	return s.rules
}

func (s *Store) Count() int {
	return len(s.rules)
}

func (s *Store) Get(id string) (models.Rule, bool) {
	r, ok := s.byID[id]
	return r, ok
}

// Countries returns the sorted distinct countries present in the rules.
func (s *Store) Countries() []string {
	seen := make(map[string]string)
	for _, r := range s.rules {
		if c := strings.TrimSpace(r.Country); c != "" {
			seen[strings.ToLower(c)] = c
		}
	}
	out := make([]string, 0, len(seen))
	for _, c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Categories returns the sorted distinct categories for a country.
func (s *Store) Categories(country string) []string {
	if country == "" {
		return nil
	}
	seen := make(map[string]string)
	for _, r := range s.rules {
		if !strings.EqualFold(r.Country, country) {
			continue
		}
		if c := strings.TrimSpace(r.Category); c != "" {
			seen[strings.ToLower(c)] = titleCase(c)
		}
	}
	out := make([]string, 0, len(seen))
	for _, c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Requirements returns the requirement list for a country/category pair.
// Rules without an explicit list may carry requirements inline in the text
// after a "Required:" or "Requirements:" marker.
func (s *Store) Requirements(country, category string) []string {
	for _, r := range s.rules {
		if !strings.EqualFold(r.Country, country) || !strings.EqualFold(r.Category, category) {
			continue
		}
		if len(r.Requirements) > 0 {
			return r.Requirements
		}
		return parseInlineRequirements(r.Text)
	}
	return nil
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func parseInlineRequirements(text string) []string {
	var tail string
	switch {
	case strings.Contains(text, "Required:"):
		tail = strings.SplitN(text, "Required:", 2)[1]
	case strings.Contains(text, "Requirements:"):
		tail = strings.SplitN(text, "Requirements:", 2)[1]
	default:
		return nil
	}
	var reqs []string
	for _, part := range strings.Split(tail, ",") {
		part = strings.TrimSuffix(strings.TrimSpace(part), ".")
		if part != "" {
			reqs = append(reqs, part)
		}
	}
	return reqs
}

// Questions builds the applicant questions for a country/category pair,
// one per known requirement, or the general screening set when the pair
// has no requirement list.
func (s *Store) Questions(country, category string) []models.Question {
	reqs := s.Requirements(country, category)
	if len(reqs) == 0 {
		return generalQuestions
	}
	questions := make([]models.Question, 0, len(reqs))
	for i, req := range reqs {
		questions = append(questions, models.Question{
			Key:  fmt.Sprintf("req_%d", i),
			Text: fmt.Sprintf("Do you have: %s?", strings.TrimSpace(req)),
		})
	}
	return questions
}

var generalQuestions = []models.Question{
	{Key: "passport_valid", Text: "Do you have a valid passport (valid for at least 6 months)?"},
	{Key: "financial_proof", Text: "Can you provide proof of sufficient funds (bank statements, payslips)?"},
	{Key: "travel_history", Text: "Do you have a good travel history (previous visas to other countries)?"},
	{Key: "employment_status", Text: "Are you currently employed/studying/retired with proof?"},
	{Key: "purpose_clear", Text: "Do you have a clear purpose of visit with supporting documents?"},
	{Key: "ties_home", Text: "Do you have strong ties to your home country (property, family, job)?"},
	{Key: "criminal_record", Text: "Do you have a clean criminal record with no visa rejections?"},
	{Key: "health_insurance", Text: "Do you have travel/health insurance coverage?"},
	{Key: "accommodation", Text: "Do you have confirmed accommodation/invitation letter?"},
	{Key: "return_ticket", Text: "Do you have a return ticket or travel itinerary?"},
}
