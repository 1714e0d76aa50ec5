// Package generate drafts recipes with an OpenAI model: free text first, then
// a structured recipe, then an illustration.
package generate

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cookbook/metrics"
	"cookbook/models"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	maxImageSide = 1024

	writerPrompt = "You are a recipe writer. Write one complete recipe with a title, " +
		"an ingredient list, numbered steps, prep time, cook time and servings."
	structurePrompt = "Convert the recipe below into a JSON object with the keys " +
		`"title" (string), "ingredients" (array of strings), "instructions" (markdown string), ` +
		`"tags" (array of short lowercase strings), "prepTime", "cookTime" and "servings" (strings). ` +
		"Reply with the JSON object only."
)

var ErrEmptyResponse = errors.New("model returned no content")

// Request is the body of a generation request.
type Request struct {
	Prompt      string   `json:"prompt"      validate:"required,max=2000"`
	Ingredients []string `json:"ingredients" validate:"max=50,dive,max=100"`
	Tags        []string `json:"tags"        validate:"max=20,dive,max=40"`
}

type Config struct {
	Model      string
	ImageModel string
	// UploadDir is where illustrations are written; PublicPath is the URL
	// prefix they are served under.
	UploadDir  string
	PublicPath string
}

type Generator struct {
	client AIClient
	cfg    Config
	cb     *gobreaker.CircuitBreaker[any]
	logger *zap.Logger
}

func New(client AIClient, cfg Config, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "openai",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &Generator{client: client, cfg: cfg, cb: cb, logger: logger}
}

func execute[T any](cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	var zero T
	res, err := cb.Execute(func() (any, error) { return fn() })
	if err != nil {
		return zero, err
	}
	typed, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", res)
	}
	return typed, nil
}

// Generate runs the pipeline and returns a recipe ready to be stored. A
// failed illustration is logged and the recipe is returned without one.
func (g *Generator) Generate(ctx context.Context, req Request) (*models.RecipeInput, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}

	text, err := g.draft(ctx, req)
	if err != nil {
		metrics.Generations.WithLabelValues("text", "error").Inc()
		return nil, fmt.Errorf("draft recipe: %w", err)
	}
	metrics.Generations.WithLabelValues("text", "ok").Inc()

	recipe, err := g.structure(ctx, text)
	if err != nil {
		metrics.Generations.WithLabelValues("json", "error").Inc()
		return nil, fmt.Errorf("structure recipe: %w", err)
	}
	recipe.Tags = models.NormalizeTags(append(recipe.Tags, req.Tags...))
	if err := models.Validate(recipe); err != nil {
		metrics.Generations.WithLabelValues("json", "error").Inc()
		return nil, fmt.Errorf("structure recipe: %w", err)
	}
	metrics.Generations.WithLabelValues("json", "ok").Inc()

	uri, err := g.illustrate(ctx, recipe.Title)
	if err != nil {
		metrics.Generations.WithLabelValues("image", "error").Inc()
		g.logger.Warn("recipe illustration failed", zap.String("title", recipe.Title), zap.Error(err))
		return recipe, nil
	}
	metrics.Generations.WithLabelValues("image", "ok").Inc()
	recipe.ImageURI = uri
	return recipe, nil
}

func (g *Generator) chat(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := execute(g.cb, func() (openai.ChatCompletionResponse, error) {
		return g.client.CreateChatCompletion(ctx, req)
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	g.logger.Debug("completion received",
		zap.String("model", req.Model),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)))
	return resp.Choices[0].Message.Content, nil
}

func (g *Generator) draft(ctx context.Context, req Request) (string, error) {
	var b strings.Builder
	b.WriteString(req.Prompt)
	if len(req.Ingredients) > 0 {
		b.WriteString("\nUse these ingredients: ")
		b.WriteString(strings.Join(req.Ingredients, ", "))
	}
	if len(req.Tags) > 0 {
		b.WriteString("\nThe recipe should fit: ")
		b.WriteString(strings.Join(req.Tags, ", "))
	}
	return g.chat(ctx, openai.ChatCompletionRequest{
		Model: g.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: writerPrompt},
			{Role: openai.ChatMessageRoleUser, Content: b.String()},
		},
	})
}

func (g *Generator) structure(ctx context.Context, text string) (*models.RecipeInput, error) {
	content, err := g.chat(ctx, openai.ChatCompletionRequest{
		Model: g.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: structurePrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, err
	}
	var recipe models.RecipeInput
	if err := json.Unmarshal([]byte(content), &recipe); err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}
	return &recipe, nil
}

// illustrate requests a picture of the dish, fits it into maxImageSide and
// stores it as a JPEG under the upload directory.
func (g *Generator) illustrate(ctx context.Context, title string) (string, error) {
	resp, err := execute(g.cb, func() (openai.ImageResponse, error) {
		return g.client.CreateImage(ctx, openai.ImageRequest{
			Prompt:         "A plated, appetizing photo of " + title,
			Model:          g.cfg.ImageModel,
			Size:           openai.CreateImageSize1024x1024,
			ResponseFormat: openai.CreateImageResponseFormatB64JSON,
			N:              1,
		})
	})
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return "", ErrEmptyResponse
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	img = imaging.Fit(img, maxImageSide, maxImageSide, imaging.Lanczos)

	if err := os.MkdirAll(g.cfg.UploadDir, 0o755); err != nil {
		return "", err
	}
	name := uuid.NewString() + ".jpg"
	if err := imaging.Save(img, filepath.Join(g.cfg.UploadDir, name), imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return strings.TrimSuffix(g.cfg.PublicPath, "/") + "/" + name, nil
}
