package models

import "unicode/utf8"

// CarouselSize is the number of slides the generation instruction asks for.
const CarouselSize = 5

// Slide is one frame of a carousel post. The length fields count characters
// (Unicode code points), not words, and are always derived from Title and Body.
type Slide struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	TitleLength int    `json:"title_length"`
	BodyLength  int    `json:"body_length"`
	TotalLength int    `json:"total_length"`
}

// NewSlide builds a Slide and computes its length metrics.
func NewSlide(title, body string) Slide {
	titleLen := utf8.RuneCountInString(title)
	bodyLen := utf8.RuneCountInString(body)
	return Slide{
		Title:       title,
		Body:        body,
		TitleLength: titleLen,
		BodyLength:  bodyLen,
		TotalLength: titleLen + bodyLen,
	}
}

// Carousel is the ordered list of slides from one generation.
// Position 1 is the hook, 2 and 3 tell the story, 4 is the outcome and 5 the call to action.
type Carousel []Slide

// NewCarousel recomputes the metrics of every slide, keeping order.
func NewCarousel(slides []Slide) Carousel {
	c := make(Carousel, len(slides))
	for i, s := range slides {
		c[i] = NewSlide(s.Title, s.Body)
	}
	return c
}

// TotalLength sums the character counts of every slide.
func (c Carousel) TotalLength() int {
	total := 0
	for _, s := range c {
		total += s.TotalLength
	}
	return total
}
