// Package carousel turns an incident description into an ordered set of
// Instagram carousel slides.
//
// The package holds the prompt builder, the reply extractor and parser, the
// generation pipeline that ties them to a remote Generator, and the plain-text
// export serializer.
package carousel

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/CarouselPipe/internal/models"
)

// Word-count guidance given to the model. It is never enforced on the reply.
const (
	TitleWordsMin = 5
	TitleWordsMax = 8
	BodyWordsMin  = 15
	BodyWordsMax  = 25
)

// DefaultBrand is the security company named in the call-to-action slide.
const DefaultBrand = "Miami Protector"

// slideRoles describes the first four slide positions, in order. The last slide is the call to action.
var slideRoles = [models.CarouselSize - 1]string{
	"Hook/Problem (grab attention with the challenge)",
	"Story/Action Part 1 (what happened)",
	"Story/Action Part 2 (what security did)",
	"Result/Lesson (the outcome and takeaway)",
}

const callToActionRole = "Call-to-action (book %s security services)"

// Prompt is the rendered instruction sent to the generation service as a single user turn.
type Prompt struct {
	Text string
}

// PromptBuilder renders generation instructions. It holds no mutable state.
type PromptBuilder struct {
	brand string
}

// NewPromptBuilder creates a builder naming brand in the call to action.
// An empty brand falls back to DefaultBrand.
func NewPromptBuilder(brand string) *PromptBuilder {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		brand = DefaultBrand
	}
	return &PromptBuilder{brand: brand}
}

// Brand returns the company named in the call to action.
func (b *PromptBuilder) Brand() string {
	return b.brand
}

// Build renders the instruction for req. The same request always yields the same text.
// A request with an empty or unsupported field returns a *models.PreconditionError.
func (b *PromptBuilder) Build(req models.GenerationRequest) (Prompt, error) {
	if err := req.Validate(); err != nil {
		return Prompt{}, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are an Instagram content expert for security companies. Generate exactly %d carousel slides for an Instagram post about this security incident:\n\n", models.CarouselSize)
	fmt.Fprintf(&sb, "Incident Type: %s\n", req.IncidentType)
	fmt.Fprintf(&sb, "Venue: %s\n", req.VenueType)
	fmt.Fprintf(&sb, "Story: %s\n\n", strings.TrimSpace(req.Story))

	fmt.Fprintf(&sb, "Create %d slides following this structure:\n", models.CarouselSize)
	for i, role := range slideRoles {
		fmt.Fprintf(&sb, "- Slide %d: %s\n", i+1, role)
	}
	fmt.Fprintf(&sb, "- Slide %d: "+callToActionRole+"\n", models.CarouselSize, b.brand)

	sb.WriteString("\nFor EACH slide, provide:\n")
	fmt.Fprintf(&sb, "- Title: Exactly %d-%d words, attention-grabbing\n", TitleWordsMin, TitleWordsMax)
	fmt.Fprintf(&sb, "- Body: Exactly %d-%d words, engaging and professional\n\n", BodyWordsMin, BodyWordsMax)

	sb.WriteString("Format your response as JSON array with this exact structure:\n")
	sb.WriteString("[\n  {\n    \"title\": \"Title here\",\n    \"body\": \"Body text here\"\n  }\n]\n\n")
	sb.WriteString("Make it compelling, professional, and focused on showcasing security expertise.")

	return Prompt{Text: sb.String()}, nil
}

var defaultBuilder = NewPromptBuilder(DefaultBrand)

// BuildPrompt renders the instruction for req with the default brand.
func BuildPrompt(req models.GenerationRequest) (Prompt, error) {
	return defaultBuilder.Build(req)
}
