package models

import (
	"path"
	"sort"
	"strings"
)

// Family identifies the base-model lineage behind an upstream alias. The
// prompt-injection templates and the native-vs-prompt tool strategy are
// chosen per family.
type Family string

const (
	FamilyOpenAI    Family = "openai"
	FamilyAnthropic Family = "anthropic"
	FamilyGoogle    Family = "google"
	FamilyUnknown   Family = "unknown"
)

// DetermineFamily classifies a model name by substring.
func DetermineFamily(model string) Family {
	switch {
	case strings.Contains(model, "gpt"):
		return FamilyOpenAI
	case strings.Contains(model, "claude"):
		return FamilyAnthropic
	case strings.Contains(model, "gemini"):
		return FamilyGoogle
	default:
		return FamilyUnknown
	}
}

// ChatModels maps client-facing aliases to upstream short names.
var ChatModels = map[string]string{
	"argo:gpt-3.5-turbo":         "gpt35",
	"argo:gpt-3.5-turbo-16k":     "gpt35large",
	"argo:gpt-4":                 "gpt4",
	"argo:gpt-4-32k":             "gpt4large",
	"argo:gpt-4-turbo-preview":   "gpt4turbo",
	"argo:gpt-4o":                "gpt4o",
	"argo:gpt-4o-latest":         "gpt4olatest",
	"argo:gpt-o1-mini":           "gpto1mini",
	"argo:gpt-o3-mini":           "gpto3mini",
	"argo:gpt-o1":                "gpto1",
	"argo:gpt-o1-preview":        "gpto1preview",
	"argo:claude-opus-4":         "claudeopus4",
	"argo:claude-sonnet-4":       "claudesonnet4",
	"argo:claude-sonnet-3.7":     "claudesonnet37",
	"argo:claude-sonnet-3.5-v2":  "claudesonnet35v2",
	"argo:gemini-2.5-pro":        "gemini25pro",
	"argo:gemini-2.5-flash":      "gemini25flash",
}

// EmbedModels are listed for discovery only; embedding requests are not
// forwarded by this proxy.
var EmbedModels = map[string]string{
	"argo:text-embedding-ada-002": "ada002",
	"argo:text-embedding-3-small": "v3small",
	"argo:text-embedding-3-large": "v3large",
}

const DefaultModel = "gpt4o"

// Resolve remaps a client model name to the upstream short name. Unknown
// names fall back to the default model; upstream short names pass through.
func Resolve(model string) string {
	if model == "" {
		return DefaultModel
	}
	if upstream, ok := ChatModels[model]; ok {
		return upstream
	}
	for _, upstream := range ChatModels {
		if upstream == model {
			return model
		}
	}
	return DefaultModel
}

// noSysMsgPatterns matches o-series models that reject system messages.
var noSysMsgPatterns = []string{
	"argo:gpt-o1-*",
	"gpto1*",
	"gpto3*",
}

// RejectsSystemMessages reports whether the model needs system content
// demoted to user role before forwarding.
func RejectsSystemMessages(model string) bool {
	for _, pattern := range noSysMsgPatterns {
		if ok, _ := path.Match(pattern, model); ok {
			return true
		}
	}
	return false
}

// encodingPrefix order matters: gpt4o must be tested before gpt4.
var encodingPrefixes = []struct {
	prefix   string
	encoding string
}{
	{"gpto", "o200k_base"},
	{"gpt4o", "o200k_base"},
	{"gpt4", "cl100k_base"},
	{"gpt3", "cl100k_base"},
	{"ada002", "cl100k_base"},
	{"v3", "cl100k_base"},
}

const DefaultEncoding = "cl100k_base"

// EncodingFor picks the tiktoken encoding name for a model.
func EncodingFor(model string) string {
	for _, e := range encodingPrefixes {
		if strings.HasPrefix(model, e.prefix) {
			return e.encoding
		}
	}
	return DefaultEncoding
}

// Info is one entry of the /v1/models listing.
type Info struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

// List returns all known client-facing aliases, sorted for stable output.
func List() []Info {
	infos := make([]Info, 0, len(ChatModels)+len(EmbedModels))
	for alias := range ChatModels {
		infos = append(infos, Info{ID: alias, Object: "model", OwnedBy: "argo"})
	}
	for alias := range EmbedModels {
		infos = append(infos, Info{ID: alias, Object: "model", OwnedBy: "argo"})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
