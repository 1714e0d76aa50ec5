package generate

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

//go:generate mockgen -source=client.go -destination=mock_client_test.go -package=generate

// AIClient is the subset of *openai.Client the pipeline calls.
type AIClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateImage(ctx context.Context, request openai.ImageRequest) (openai.ImageResponse, error)
}
