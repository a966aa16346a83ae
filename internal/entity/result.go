package entity

import (
	"encoding/json"
	"time"
)

// Result payload types mirror what the generation stages produce. The
// executor stores each stage's output as raw JSON; these types give the
// request layer a typed view when assembling the final result.

type LogoConcept struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Rationale   string   `json:"rationale"`
	Style       string   `json:"style"`
	FilePath    string   `json:"file_path,omitempty"`
	UseCases    []string `json:"use_cases,omitempty"`
}

type Color struct {
	Name  string `json:"name"`
	Hex   string `json:"hex"`
	RGB   string `json:"rgb"`
	Usage string `json:"usage"`
}

type ColorPalette struct {
	Primary   Color  `json:"primary"`
	Secondary Color  `json:"secondary"`
	Accent    Color  `json:"accent"`
	Neutral   Color  `json:"neutral"`
	Rationale string `json:"rationale,omitempty"`
}

type StyleGuide struct {
	Typography      map[string]string `json:"typography,omitempty"`
	Imagery         map[string]string `json:"imagery,omitempty"`
	VoiceAndTone    string            `json:"voice_and_tone,omitempty"`
	UsageGuidelines string            `json:"usage_guidelines,omitempty"`
}

type BrandIdentityResult struct {
	LogoConcepts []LogoConcept `json:"logo_concepts,omitempty"`
	ColorPalette *ColorPalette `json:"color_palette,omitempty"`
	StyleGuide   *StyleGuide   `json:"style_guide,omitempty"`
}

type SocialMediaContent struct {
	Platforms        []string `json:"platforms,omitempty"`
	PostsPerPlatform int      `json:"posts_per_platform"`
	ContentThemes    []string `json:"content_themes,omitempty"`
}

type EmailCampaigns struct {
	CampaignTypes     []string `json:"campaign_types,omitempty"`
	EmailsPerCampaign int      `json:"emails_per_campaign"`
}

type VideoContent struct {
	Platforms         []string `json:"platforms,omitempty"`
	VideosPerPlatform int      `json:"videos_per_platform"`
	ContentConcepts   []string `json:"content_concepts,omitempty"`
}

type MarketingResult struct {
	SocialMedia    *SocialMediaContent `json:"social_media,omitempty"`
	EmailCampaigns *EmailCampaigns     `json:"email_campaigns,omitempty"`
	VideoContent   *VideoContent       `json:"video_content,omitempty"`
}

// WorkflowResult is the complete payload returned once a job completes.
type WorkflowResult struct {
	JobID         string                     `json:"job_id"`
	Status        JobStatus                  `json:"status"`
	Brief         Brief                      `json:"brand_brief"`
	BrandIdentity *BrandIdentityResult       `json:"brand_identity,omitempty"`
	Marketing     *MarketingResult           `json:"marketing,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
	CompletedAt   *time.Time                 `json:"completed_at,omitempty"`
	RawResults    map[string]json.RawMessage `json:"raw_results,omitempty"`
}
