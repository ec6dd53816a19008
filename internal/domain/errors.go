package domain

import "errors"

var (
	// ErrEmptyQuestion signals a question that is empty after trimming.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrQuestionTooShort signals a question below the minimum length.
	ErrQuestionTooShort = errors.New("question too short")
	// ErrSessionNotFound signals a missing conversation session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrMessageNotFound signals a missing conversation message.
	ErrMessageNotFound = errors.New("message not found")
	// ErrForbidden signals an access attempt on another user's session.
	ErrForbidden = errors.New("forbidden")

	// ErrUpstreamUnavailable signals an embedding/vector/LLM dependency failure.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrNoProviders signals that every provider in the chain failed.
	ErrNoProviders = errors.New("no llm provider available")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
