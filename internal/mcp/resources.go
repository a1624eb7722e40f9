package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) sessions(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	sessions, err := h.ds.Sessions(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, sessions)
}

func (h *handlers) muscleTable(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	table, err := h.ds.MuscleTable(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, table)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
