package carousel

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BTreeMap/CarouselPipe/internal/models"
)

// CountPolicy decides what to do when a reply holds a slide count other than models.CarouselSize.
type CountPolicy string

const (
	// CountPolicyPermissive passes through whatever count was parsed.
	CountPolicyPermissive CountPolicy = "permissive"
	// CountPolicyStrict rejects any count other than models.CarouselSize.
	CountPolicyStrict CountPolicy = "strict"
)

// ParseCountPolicy maps a configuration value to a CountPolicy.
func ParseCountPolicy(s string) (CountPolicy, error) {
	switch CountPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", CountPolicyPermissive:
		return CountPolicyPermissive, nil
	case CountPolicyStrict:
		return CountPolicyStrict, nil
	default:
		return "", fmt.Errorf("unknown slide count policy %q", s)
	}
}

// ExtractArray returns the span from the first '[' through the last ']' of raw.
// Prose around the span is ignored. A reply without such a span is a FormatError.
func ExtractArray(raw string) (string, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end < start {
		return "", &FormatError{Stage: StageExtract, Err: ErrNoArray}
	}
	return raw[start : end+1], nil
}

// replySlide mirrors one record in the reply. Pointers tell a missing field from an empty one.
type replySlide struct {
	Title *string `json:"title"`
	Body  *string `json:"body"`
}

// ParseSlides decodes an extracted span into slides, in reply order, with metrics computed.
// Any length fields present in the reply are ignored.
func ParseSlides(span string) (models.Carousel, error) {
	var records []replySlide
	if err := json.Unmarshal([]byte(span), &records); err != nil {
		return nil, &FormatError{Stage: StageParse, Err: fmt.Errorf("decode slides: %w", err)}
	}

	carousel := make(models.Carousel, 0, len(records))
	for i, r := range records {
		if r.Title == nil {
			return nil, &FormatError{Stage: StageParse, Err: fmt.Errorf("slide %d: missing title", i+1)}
		}
		if r.Body == nil {
			return nil, &FormatError{Stage: StageParse, Err: fmt.Errorf("slide %d: missing body", i+1)}
		}
		carousel = append(carousel, models.NewSlide(*r.Title, *r.Body))
	}
	return carousel, nil
}

// ParseReply runs extraction, structural parse and the count policy over a raw reply.
func ParseReply(raw string, policy CountPolicy) (models.Carousel, error) {
	span, err := ExtractArray(raw)
	if err != nil {
		return nil, err
	}
	carousel, err := ParseSlides(span)
	if err != nil {
		return nil, err
	}
	if len(carousel) == 0 {
		return nil, &FormatError{Stage: StageCount, Err: ErrEmptyCarousel}
	}
	if policy == CountPolicyStrict && len(carousel) != models.CarouselSize {
		return nil, &FormatError{
			Stage: StageCount,
			Err:   fmt.Errorf("%w: got %d, want %d", ErrSlideCount, len(carousel), models.CarouselSize),
		}
	}
	return carousel, nil
}
