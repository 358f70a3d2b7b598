package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/warren/pkg/category"
	"github.com/papercomputeco/warren/pkg/rabbithole"
)

var (
	rabbitHoleToolName    = "rabbit_hole"
	rabbitHoleDescription = "Find the longest chains of related categories in the similarity graph. Returns the chain length in edges and every distinct chain of that length."

	rabbitIslandsToolName    = "rabbit_islands"
	rabbitIslandsDescription = "Find the groups of categories connected through similarities. Categories without any similarity are not part of an island."

	similarCategoriesToolName    = "similar_categories"
	similarCategoriesDescription = "List the categories directly marked as similar to the given category."

	categoryTreeToolName    = "category_tree"
	categoryTreeDescription = "Show the category hierarchy below the given category as an indented outline with each category's description and image."
)

// AnalysisInput takes no arguments; analyses always run on the whole graph.
type AnalysisInput struct{}

// RabbitHoleOutput is the result of the rabbit_hole tool.
type RabbitHoleOutput struct {
	Length int        `json:"length"`
	Paths  [][]string `json:"paths"`
}

// RabbitIslandsOutput is the result of the rabbit_islands tool.
type RabbitIslandsOutput struct {
	Islands [][]string `json:"rabbit_islands"`
	Count   int        `json:"count"`
}

// CategoryInput names a single category.
type CategoryInput struct {
	Name string `json:"name" jsonschema:"the name of the category"`
}

// SimilarCategoriesOutput is the result of the similar_categories tool.
type SimilarCategoriesOutput struct {
	Name    string               `json:"name"`
	Similar []*category.Category `json:"similar"`
	Count   int                  `json:"count"`
}

// CategoryTreeOutput is the result of the category_tree tool.
type CategoryTreeOutput struct {
	Name    string `json:"name"`
	Size    int    `json:"size"`
	Outline string `json:"outline"`
}

func (s *Server) handleRabbitHole(ctx context.Context, _ *mcp.CallToolRequest, _ AnalysisInput) (*mcp.CallToolResult, RabbitHoleOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.AnalysisTimeout)
	defer cancel()

	hole, err := s.config.Catalog.RabbitHole(ctx)
	if err != nil {
		s.config.Logger.Error("failed to compute rabbit hole", zap.Error(err))
		return toolError("Failed to compute rabbit hole: %v", err), RabbitHoleOutput{}, nil
	}

	return toolResult(s.config.Logger, rabbitHoleOutput(hole))
}

func (s *Server) handleRabbitIslands(ctx context.Context, _ *mcp.CallToolRequest, _ AnalysisInput) (*mcp.CallToolResult, RabbitIslandsOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.AnalysisTimeout)
	defer cancel()

	islands, err := s.config.Catalog.Islands(ctx)
	if err != nil {
		s.config.Logger.Error("failed to compute rabbit islands", zap.Error(err))
		return toolError("Failed to compute rabbit islands: %v", err), RabbitIslandsOutput{}, nil
	}

	return toolResult(s.config.Logger, RabbitIslandsOutput{
		Islands: islands,
		Count:   len(islands),
	})
}

func (s *Server) handleSimilarCategories(ctx context.Context, _ *mcp.CallToolRequest, input CategoryInput) (*mcp.CallToolResult, SimilarCategoriesOutput, error) {
	if input.Name == "" {
		return toolError("name is required"), SimilarCategoriesOutput{}, nil
	}

	s.config.Logger.Debug("MCP similar categories request", zap.String("name", input.Name))

	similar, err := s.config.Catalog.SimilarCategories(ctx, input.Name)
	if err != nil {
		return toolError("Failed to get similar categories: %v", err), SimilarCategoriesOutput{}, nil
	}

	return toolResult(s.config.Logger, SimilarCategoriesOutput{
		Name:    input.Name,
		Similar: similar,
		Count:   len(similar),
	})
}

func (s *Server) handleCategoryTree(ctx context.Context, _ *mcp.CallToolRequest, input CategoryInput) (*mcp.CallToolResult, CategoryTreeOutput, error) {
	if input.Name == "" {
		return toolError("name is required"), CategoryTreeOutput{}, nil
	}

	tree, err := s.config.Catalog.Tree(ctx, input.Name)
	if err != nil {
		return toolError("Failed to load category tree: %v", err), CategoryTreeOutput{}, nil
	}

	return toolResult(s.config.Logger, CategoryTreeOutput{
		Name:    input.Name,
		Size:    tree.Size(),
		Outline: tree.Outline(),
	})
}

func rabbitHoleOutput(hole *rabbithole.Hole) RabbitHoleOutput {
	return RabbitHoleOutput{
		Length: hole.Length,
		Paths:  hole.Paths,
	}
}

// toolResult returns out as structured content together with its serialized
// JSON in a TextContent block, for clients that only read text.
func toolResult[T any](logger *zap.Logger, out T) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(out)
	if err != nil {
		logger.Error("failed to marshal tool output", zap.Error(err))
		var zero T
		return toolError("Failed to serialize results: %v", err), zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, out, nil
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}
