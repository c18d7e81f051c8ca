// Command mcp-server exposes the glatt normalizer as an MCP tool over
// streamable HTTP, so agent hosts can clean up Chat Completions responses
// without calling the REST API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/glatt-dev/glatt/pkg/normalize"
)

// NormalizeInput is the argument schema of the normalize_response tool.
type NormalizeInput struct {
	Response string `json:"response" jsonschema_description:"Chat Completions response document as a JSON string"`
	Strict   bool   `json:"strict,omitempty" jsonschema_description:"Fail on wrong-typed fields instead of leaving them untouched"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := mcp.NewServer(
		&mcp.Implementation{Name: "glatt-mcp", Version: "v1.0.0"},
		nil,
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "normalize_response",
		Description: "Replaces null tool_calls, function_call, and annotations fields in a Chat Completions response with empty collections",
	}, func(_ context.Context, _ *mcp.CallToolRequest, input NormalizeInput) (*mcp.CallToolResult, struct{}, error) {
		var doc any
		if err := json.Unmarshal([]byte(input.Response), &doc); err != nil {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{
					&mcp.TextContent{Text: fmt.Sprintf("response is not valid JSON: %v", err)},
				},
			}, struct{}{}, nil
		}

		normalized, stats, err := normalize.NormalizeWithStats(doc, input.Strict)
		if err != nil {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{
					&mcp.TextContent{Text: fmt.Sprintf("normalization failed: %v", err)},
				},
			}, struct{}{}, nil
		}

		out, err := json.Marshal(normalized)
		if err != nil {
			return nil, struct{}{}, err
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: string(out)},
				&mcp.TextContent{Text: fmt.Sprintf("coerced %d field(s)", stats.Total())},
			},
		}, struct{}{}, nil
	})

	// Serve via streamable HTTP on /mcp.
	handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server
	}, nil)

	httpMux := http.NewServeMux()
	httpMux.Handle("/mcp", handler)
	httpMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})

	log.Printf("glatt MCP server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, httpMux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
