package ai

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
)

// FallbackService routes digest generation across providers:
// Gemini first (better schema adherence), Ollama when Gemini is
// unreachable or out of quota.
type FallbackService struct {
	gemini DigestGenerator
	ollama *OllamaService
}

// NewFallbackService creates a new fallback service with both providers
func NewFallbackService(gemini DigestGenerator, ollama *OllamaService) *FallbackService {
	return &FallbackService{
		gemini: gemini,
		ollama: ollama,
	}
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if _, ok := err.(net.Error); ok {
		return true
	}

	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}

	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
	}

	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// GenerateDigest tries Gemini first, falls back to Ollama on connection
// or quota errors.
func (f *FallbackService) GenerateDigest(ctx context.Context, instruction, userContent string) (string, error) {
	if f.gemini != nil {
		result, err := f.gemini.GenerateDigest(ctx, instruction, userContent)
		if err == nil {
			return result, nil
		}

		if f.ollama == nil || (!isConnectionError(err) && !isQuotaError(err)) {
			return "", fmt.Errorf("gemini digest generation failed: %w", err)
		}
		log.Printf("[AI] Gemini unavailable (%v), falling back to Ollama", err)
	}

	if f.ollama != nil {
		result, err := f.ollama.GenerateDigest(ctx, instruction, userContent)
		if err != nil {
			return "", fmt.Errorf("ollama digest generation failed: %w", err)
		}
		return result, nil
	}

	return "", fmt.Errorf("no AI provider available for digest generation")
}
