// Package generator provides the built-in stage collaborators for the brand
// workflow. Each stage satisfies the pipeline.StageFunc contract; the
// executor stays agnostic to what any of them actually produce.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"brand-workflow-service/internal/entity"
	"brand-workflow-service/internal/pipeline"
)

// Registry maps stage names to their run functions for config-driven
// pipeline assembly.
func Registry() map[entity.WorkflowStep]pipeline.StageFunc {
	return map[entity.WorkflowStep]pipeline.StageFunc{
		entity.StepInitializing:  Initialize,
		entity.StepBrandIdentity: BrandIdentity,
		entity.StepMarketing:     Marketing,
		entity.StepFinalizing:    Finalize,
	}
}

// Default builds the standard four-stage pipeline. Cumulative progress hits
// 5, 50, 90 and 100.
func Default() (*pipeline.Pipeline, error) {
	return pipeline.New(
		pipeline.Stage{Name: entity.StepInitializing, Weight: 5, Run: Initialize},
		pipeline.Stage{Name: entity.StepBrandIdentity, Weight: 45, Run: BrandIdentity},
		pipeline.Stage{Name: entity.StepMarketing, Weight: 40, Run: Marketing},
		pipeline.Stage{Name: entity.StepFinalizing, Weight: 10, Run: Finalize},
	)
}

// Initialize validates inputs are workable and records the normalized brief
// the later stages run against.
func Initialize(ctx context.Context, brief entity.Brief, _ map[string]json.RawMessage) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{
		"brand_name": brief.BrandName,
		"industry":   brief.Industry,
		"style":      brief.StylePreference,
		"mood":       brief.DesiredMood,
	})
}

// BrandIdentity produces logo concepts, a color palette and a style guide
// for the brief.
func BrandIdentity(ctx context.Context, brief entity.Brief, _ map[string]json.RawMessage) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slug := strings.ToLower(strings.ReplaceAll(brief.BrandName, " ", ""))
	concepts := make([]entity.LogoConcept, 0, 3)
	for i := 0; i < 3; i++ {
		concepts = append(concepts, entity.LogoConcept{
			ID:          fmt.Sprintf("logo_%d", i+1),
			Name:        fmt.Sprintf("Concept %d", i+1),
			Description: fmt.Sprintf("Logo concept for %s", brief.BrandName),
			Rationale:   "Modern design approach aligned with brand values",
			Style:       string(brief.StylePreference),
			FilePath:    fmt.Sprintf("assets/logos/%s_concept_%d.png", slug, i+1),
			UseCases:    []string{"Website", "Business cards", "Social media"},
		})
	}

	result := entity.BrandIdentityResult{
		LogoConcepts: concepts,
		ColorPalette: &entity.ColorPalette{
			Primary:   entity.Color{Name: "Primary", Hex: "#1a1a2e", RGB: "26, 26, 46", Usage: "Main brand color"},
			Secondary: entity.Color{Name: "Secondary", Hex: "#16213e", RGB: "22, 33, 62", Usage: "Supporting elements"},
			Accent:    entity.Color{Name: "Accent", Hex: "#0f3460", RGB: "15, 52, 96", Usage: "CTAs and highlights"},
			Neutral:   entity.Color{Name: "Neutral", Hex: "#e8e8e8", RGB: "232, 232, 232", Usage: "Backgrounds"},
			Rationale: "Colors chosen to convey professionalism and innovation",
		},
		StyleGuide: &entity.StyleGuide{
			Typography:      map[string]string{"primary_font": "Inter", "secondary_font": "Roboto"},
			Imagery:         map[string]string{"style": "modern", "photography": "clean and professional"},
			VoiceAndTone:    brief.BrandVoice,
			UsageGuidelines: "Maintain consistency across all touchpoints",
		},
	}
	return json.Marshal(result)
}

// Marketing develops campaign content on top of the brand identity output.
func Marketing(ctx context.Context, brief entity.Brief, prior map[string]json.RawMessage) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Marketing builds on the style guide when the identity stage ran.
	voice := brief.BrandVoice
	if raw, ok := prior[string(entity.StepBrandIdentity)]; ok {
		var identity entity.BrandIdentityResult
		if err := json.Unmarshal(raw, &identity); err == nil && identity.StyleGuide != nil && identity.StyleGuide.VoiceAndTone != "" {
			voice = identity.StyleGuide.VoiceAndTone
		}
	}

	result := entity.MarketingResult{
		SocialMedia: &entity.SocialMediaContent{
			Platforms:        []string{"Instagram", "LinkedIn", "X"},
			PostsPerPlatform: 3,
			ContentThemes:    []string{"Brand awareness", "Product features", "Customer stories"},
		},
		EmailCampaigns: &entity.EmailCampaigns{
			CampaignTypes:     []string{"Welcome series", "Product launch", "Newsletter"},
			EmailsPerCampaign: 3,
		},
		VideoContent: &entity.VideoContent{
			Platforms:         []string{"YouTube", "TikTok"},
			VideosPerPlatform: 2,
		},
	}
	return json.Marshal(struct {
		entity.MarketingResult
		VoiceAndTone string `json:"voice_and_tone,omitempty"`
	}{MarketingResult: result, VoiceAndTone: voice})
}

// Finalize summarizes the run.
func Finalize(ctx context.Context, brief entity.Brief, prior map[string]json.RawMessage) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{
		"brand_name":       brief.BrandName,
		"stages_completed": len(prior),
	})
}
