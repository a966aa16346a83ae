package entity

import (
	"errors"
	"fmt"
	"strings"
)

var ErrValidation = errors.New("validation failed")

type StylePreference string

const (
	StyleModern       StylePreference = "modern"
	StyleClassic      StylePreference = "classic"
	StyleMinimalist   StylePreference = "minimalist"
	StylePlayful      StylePreference = "playful"
	StyleProfessional StylePreference = "professional"
	StyleLuxury       StylePreference = "luxury"
	StyleTech         StylePreference = "tech"
	StyleNatural      StylePreference = "natural"
)

type BrandMood string

const (
	MoodTrustworthy  BrandMood = "trustworthy"
	MoodInnovative   BrandMood = "innovative"
	MoodEnergetic    BrandMood = "energetic"
	MoodCalming      BrandMood = "calming"
	MoodProfessional BrandMood = "professional"
	MoodFriendly     BrandMood = "friendly"
)

var validStyles = map[StylePreference]bool{
	StyleModern: true, StyleClassic: true, StyleMinimalist: true, StylePlayful: true,
	StyleProfessional: true, StyleLuxury: true, StyleTech: true, StyleNatural: true,
}

var validMoods = map[BrandMood]bool{
	MoodTrustworthy: true, MoodInnovative: true, MoodEnergetic: true,
	MoodCalming: true, MoodProfessional: true, MoodFriendly: true,
}

// Brief is the submitted input for one workflow run.
type Brief struct {
	BrandName                string          `json:"brand_name"`
	Industry                 string          `json:"industry"`
	TargetAudience           string          `json:"target_audience"`
	BrandValues              []string        `json:"brand_values,omitempty"`
	StylePreference          StylePreference `json:"style_preference,omitempty"`
	DesiredMood              BrandMood       `json:"desired_mood,omitempty"`
	BrandVoice               string          `json:"brand_voice,omitempty"`
	Mission                  string          `json:"mission,omitempty"`
	Vision                   string          `json:"vision,omitempty"`
	Competitors              []string        `json:"competitors,omitempty"`
	UniqueSellingProposition string          `json:"unique_selling_proposition,omitempty"`
	MarketingGoals           []string        `json:"marketing_goals,omitempty"`
	BudgetConsiderations     string          `json:"budget_considerations,omitempty"`
	Timeline                 string          `json:"timeline,omitempty"`
}

// Validate checks required fields and enum membership. A failing brief never
// produces a job record.
func (b Brief) Validate() error {
	var missing []string
	if strings.TrimSpace(b.BrandName) == "" {
		missing = append(missing, "brand_name")
	}
	if strings.TrimSpace(b.Industry) == "" {
		missing = append(missing, "industry")
	}
	if strings.TrimSpace(b.TargetAudience) == "" {
		missing = append(missing, "target_audience")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", ErrValidation, strings.Join(missing, ", "))
	}
	if b.StylePreference != "" && !validStyles[b.StylePreference] {
		return fmt.Errorf("%w: unknown style_preference %q", ErrValidation, b.StylePreference)
	}
	if b.DesiredMood != "" && !validMoods[b.DesiredMood] {
		return fmt.Errorf("%w: unknown desired_mood %q", ErrValidation, b.DesiredMood)
	}
	return nil
}

// Normalized returns a copy with defaults applied for optional fields,
// matching what the generation stages expect to work with.
func (b Brief) Normalized() Brief {
	out := b
	if out.StylePreference == "" {
		out.StylePreference = StyleModern
	}
	if out.DesiredMood == "" {
		out.DesiredMood = MoodInnovative
	}
	if len(out.BrandValues) == 0 {
		out.BrandValues = []string{"Innovation", "Quality"}
	}
	if out.BrandVoice == "" {
		out.BrandVoice = "professional yet approachable"
	}
	if out.Mission == "" {
		out.Mission = fmt.Sprintf("To deliver exceptional %s solutions", out.Industry)
	}
	if out.Vision == "" {
		out.Vision = fmt.Sprintf("To be a leader in %s", out.Industry)
	}
	if out.UniqueSellingProposition == "" {
		out.UniqueSellingProposition = "Unique value proposition"
	}
	if len(out.MarketingGoals) == 0 {
		out.MarketingGoals = []string{"Increase brand awareness"}
	}
	if out.BudgetConsiderations == "" {
		out.BudgetConsiderations = "Flexible"
	}
	if out.Timeline == "" {
		out.Timeline = "3-6 months"
	}
	return out
}
