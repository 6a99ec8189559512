package service

import (
	"fmt"
	"strings"

	"github.com/okian/autolabel/internal/domain/model"
)

// BuildPrompt renders the classification question over vocabulary, falling
// back to model.DefaultVocabulary when it is empty.
func BuildPrompt(vocabulary []string) string {
	if len(vocabulary) == 0 {
		vocabulary = model.DefaultVocabulary
	}
	return fmt.Sprintf(
		"Here is a list of %d ingredients: %s. Passing only the ingredients back as an answer. Which of these ingredients are in this image?",
		len(vocabulary), strings.Join(vocabulary, ", "),
	)
}
