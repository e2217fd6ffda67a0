package client

import "context"

// VisionClient is a chat-capable vision model backend. Implementations return
// the raw model response text; prompt construction and response parsing live
// in the inspection package.
type VisionClient interface {
	// SimpleQuery sends a single prompt with an image and returns the
	// free-text answer.
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	// AnalyzeDefects sends a system prompt plus a user prompt with an image
	// and returns the raw (ideally JSON) response text.
	AnalyzeDefects(ctx context.Context, model, system, prompt, imgB64 string) (string, error)
}
