package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
	"github.com/roofwise/compliance-assistant/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "ollama status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func classifyModelError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{
				Retryable:     true,
				RecordFailure: true,
			}
		}
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}

	class := classifyModelError(err)
	if class.Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// ResilientEmbedder runs embedding calls under retry and circuit
// breaking.
type ResilientEmbedder struct {
	inner    *Embedder
	executor *resilience.Executor
}

func NewResilientEmbedder(inner *Embedder, executor *resilience.Executor) *ResilientEmbedder {
	return &ResilientEmbedder{inner: inner, executor: executor}
}

func (e *ResilientEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := e.executor.Execute(ctx, "ollama.embed", func(ctx context.Context) error {
		vectors, err := e.inner.Embed(ctx, texts)
		if err != nil {
			return err
		}
		out = vectors
		return nil
	}, classifyModelError)
	return out, wrapTemporaryIfNeeded("embed", err)
}

func (e *ResilientEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := e.executor.Execute(ctx, "ollama.embed_query", func(ctx context.Context) error {
		vector, err := e.inner.EmbedQuery(ctx, text)
		if err != nil {
			return err
		}
		out = vector
		return nil
	}, classifyModelError)
	return out, wrapTemporaryIfNeeded("embed query", err)
}

// ResilientGenerator runs answer generation under retry and circuit
// breaking.
type ResilientGenerator struct {
	inner    *Generator
	executor *resilience.Executor
}

func NewResilientGenerator(inner *Generator, executor *resilience.Executor) *ResilientGenerator {
	return &ResilientGenerator{inner: inner, executor: executor}
}

func (g *ResilientGenerator) GenerateAnswer(ctx context.Context, question string, passages []domain.Passage, mode domain.AnswerMode) (string, error) {
	var out string
	err := g.executor.Execute(ctx, "ollama.generate", func(ctx context.Context) error {
		text, err := g.inner.GenerateAnswer(ctx, question, passages, mode)
		if err != nil {
			return err
		}
		out = text
		return nil
	}, classifyModelError)
	return out, wrapTemporaryIfNeeded("generate answer", err)
}
