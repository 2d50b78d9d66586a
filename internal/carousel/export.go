package carousel

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/CarouselPipe/internal/models"
)

// Serialize renders a carousel as one text block for pasting into an authoring tool.
// Each slide becomes "SLIDE n:", its title, its body and a "---" separator; blocks
// are separated by a blank line.
func Serialize(c models.Carousel) string {
	blocks := make([]string, len(c))
	for i, s := range c {
		blocks[i] = fmt.Sprintf("SLIDE %d:\n%s\n\n%s\n\n---\n", i+1, s.Title, s.Body)
	}
	return strings.Join(blocks, "\n")
}
