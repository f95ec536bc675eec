package tryon

import (
	"fmt"

	"github.com/raushankrgupta/fitly-tryon/models"
)

// APICategory maps a garment category to the synthesis API vocabulary.
func APICategory(c models.Category) (string, error) {
	switch c {
	case models.CategoryTop:
		return "tops", nil
	case models.CategoryBottom:
		return "bottoms", nil
	case models.CategoryFullBody:
		return "one-pieces", nil
	default:
		return "", NewError(CodeInvalidRequest, fmt.Sprintf("unsupported category %q", c), nil)
	}
}
