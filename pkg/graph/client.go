// Package graph drives papers through the extraction pipeline. Each paper
// runs a sequential state machine (entity extraction, relationship
// extraction, validation, persistence); batches fan papers out across
// bounded concurrency with per-paper failure isolation.
package graph

import (
	"time"

	"github.com/scholargraph/backend/pkg/ai"
	"github.com/scholargraph/backend/pkg/store"
)

// PipelineClient orchestrates paper ingestion against one storage backend
// and one text-analysis client.
//
// A PipelineClient should be created using NewPipelineClient.
type PipelineClient struct {
	storage store.GraphStorage
	client  ai.GraphAIClient

	tokenEncoder       string
	maxBodyTokens      int
	maxRetries         int
	recentPapersWindow int
	chunkDelay         time.Duration
	source             string
}

// NewPipelineClientParams defines the configuration for creating a new
// PipelineClient.
//
// TokenEncoder names the tiktoken encoding used to bound prompt bodies.
// MaxBodyTokens caps the paper text sent per extraction request.
// RecentPapersWindow bounds how many completed papers are offered as
// cross-paper link targets. ChunkDelay is the pause between batch chunks.
type NewPipelineClientParams struct {
	Storage store.GraphStorage
	Client  ai.GraphAIClient

	TokenEncoder       string
	MaxBodyTokens      int
	MaxRetries         int
	RecentPapersWindow int
	ChunkDelay         time.Duration
	Source             string
}

// NewPipelineClient creates a PipelineClient configured with the provided
// parameters, filling unset values with defaults.
func NewPipelineClient(params NewPipelineClientParams) *PipelineClient {
	encoder := params.TokenEncoder
	if encoder == "" {
		encoder = "o200k_base"
	}
	maxBodyTokens := params.MaxBodyTokens
	if maxBodyTokens <= 0 {
		maxBodyTokens = 8000
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	window := params.RecentPapersWindow
	if window <= 0 {
		window = 10
	}
	chunkDelay := params.ChunkDelay
	if chunkDelay <= 0 {
		chunkDelay = time.Second
	}
	source := params.Source
	if source == "" {
		source = "extraction-pipeline"
	}

	return &PipelineClient{
		storage:            params.Storage,
		client:             params.Client,
		tokenEncoder:       encoder,
		maxBodyTokens:      maxBodyTokens,
		maxRetries:         maxRetries,
		recentPapersWindow: window,
		chunkDelay:         chunkDelay,
		source:             source,
	}
}
