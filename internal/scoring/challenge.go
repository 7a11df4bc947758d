package scoring

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultReference is the fixed answer used when no challenge file is configured.
const DefaultReference = "Can it be delivered between 10 to 15 minutes?"

// Challenge is the server-fixed target that prompt_similarity submissions are
// compared against.
type Challenge struct {
	Title        string `toml:"title"`
	Description  string `toml:"description"`
	SourceText   string `toml:"source_text"`
	SystemPrompt string `toml:"system_prompt"`
	Reference    string `toml:"reference"`
}

// LoadChallenge reads a TOML challenge file. An empty path yields the default challenge.
func LoadChallenge(path string) (Challenge, error) {
	if strings.TrimSpace(path) == "" {
		return Challenge{Title: "default", Reference: DefaultReference}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Challenge{}, fmt.Errorf("read challenge file: %w", err)
	}

	var challenge Challenge
	if err := toml.Unmarshal(data, &challenge); err != nil {
		return Challenge{}, fmt.Errorf("parse challenge file: %w", err)
	}

	challenge.Reference = strings.TrimSpace(challenge.Reference)
	if challenge.Reference == "" {
		return Challenge{}, fmt.Errorf("challenge file %s has no reference", path)
	}

	return challenge, nil
}
