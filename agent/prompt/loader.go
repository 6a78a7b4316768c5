package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/responder.txt
	responderRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Responder string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Responder: strings.TrimSpace(responderRaw),
	}
}
