package ai

import "context"

// Image is a scan payload handed to the gateway.
type Image struct {
	Data     []byte
	MimeType string
}

// Gateway wraps the external inference provider. Pure request/response:
// no retries, no registry writes. Retry and fallback policy belongs to
// the caller.
type Gateway interface {
	// AnalyzeImage sends a scan image for multimodal analysis and returns
	// the raw model text.
	AnalyzeImage(ctx context.Context, img Image, scanType string) (string, error)

	// GenerateText runs a plain text completion with the given system and
	// user prompts. Used for treatment plans and chat.
	GenerateText(ctx context.Context, system, user string) (string, error)
}
