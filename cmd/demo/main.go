// Command demo exercises the glatt library end to end.
//
// With no arguments it runs a built-in walkthrough on a sample Chat
// Completions response. Given a file (or "-" for stdin), it reads a JSON
// document and prints the normalized result: a {"records": [...]} document
// is run as a batch, anything else is treated as a bare response document.
//
//	demo [-strict] [-input data] [-output data] [file]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/glatt-dev/glatt/pkg/api"
	"github.com/glatt-dev/glatt/pkg/batch"
	"github.com/glatt-dev/glatt/pkg/normalize"
)

func main() {
	strict := flag.Bool("strict", false, "fail on missing or unparseable input instead of passing through")
	inputField := flag.String("input", "data", "record field holding the response document")
	outputField := flag.String("output", "data", "record field the normalized document is written to")
	flag.Parse()

	if flag.NArg() == 0 {
		walkthrough()
		return
	}

	if err := runFile(flag.Arg(0), *strict, *inputField, *outputField); err != nil {
		fmt.Fprintf(os.Stderr, "demo: %v\n", err)
		os.Exit(1)
	}
}

// runFile normalizes the document in the given file and prints the result.
func runFile(path string, strict bool, inputField, outputField string) error {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}

	// A records document is run through the batch runner; anything else is
	// normalized directly.
	var req api.RunRequest
	if err := json.Unmarshal(data, &req); err == nil && req.Records != nil {
		req.Options.InputField = inputField
		req.Options.OutputField = outputField
		req.Options.StrictMode = strict

		runner := batch.New(batch.Config{})
		run, err := runner.RunBatch(context.Background(), &req)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		fmt.Fprintf(os.Stderr, "run %s: %d record(s), %d field(s) coerced\n",
			run.ID, run.Counts.RecordsOut, run.Counts.FieldsCoerced)
		return nil
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	normalized, stats, err := normalize.NormalizeWithStats(doc, strict)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(normalized, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	fmt.Fprintf(os.Stderr, "coerced %d field(s): tool_calls=%d function_call=%d annotations=%d\n",
		stats.Total(), stats.ToolCalls, stats.FunctionCall, stats.Annotations)
	return nil
}

// walkthrough demonstrates normalization on a sample response.
func walkthrough() {
	ctx := context.Background()

	fmt.Println("=== glatt normalization demo ===")
	fmt.Println()

	// 1. A Chat Completions response with null collection fields, the shape
	// that breaks downstream tooling.
	raw := `{
	  "id": "chatcmpl-demo1",
	  "object": "chat.completion",
	  "model": "gpt-4o-mini",
	  "choices": [
	    {
	      "index": 0,
	      "message": {
	        "role": "assistant",
	        "content": "The capital of France is Paris.",
	        "tool_calls": null,
	        "function_call": null,
	        "annotations": null
	      },
	      "finish_reason": "stop"
	    }
	  ]
	}`

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		fmt.Printf("parse FAILED: %v\n", err)
		return
	}
	fmt.Println("[1] Parsed response with null tool_calls / function_call / annotations")

	// 2. Normalize it.
	normalized, stats, err := normalize.NormalizeWithStats(doc, false)
	if err != nil {
		fmt.Printf("normalize FAILED: %v\n", err)
		return
	}
	out, _ := json.MarshalIndent(normalized, "", "  ")
	fmt.Printf("\n[2] Normalized document:\n%s\n", out)
	fmt.Printf("\n[3] Coercions: tool_calls=%d function_call=%d annotations=%d (total %d)\n",
		stats.ToolCalls, stats.FunctionCall, stats.Annotations, stats.Total())

	// 3. The same response as a batch record, with the document arriving as
	// a JSON string (double-encoded, as workflow hosts often deliver it).
	stringified, _ := json.Marshal(doc)
	req := &api.RunRequest{
		Records: []api.Record{
			{JSON: map[string]any{"data": string(stringified)}},
		},
	}

	runner := batch.New(batch.Config{})
	run, err := runner.RunBatch(ctx, req)
	if err != nil {
		fmt.Printf("batch FAILED: %v\n", err)
		return
	}
	fmt.Printf("\n[4] Batch run %s: status=%s records=%d/%d coerced=%d\n",
		run.ID, run.Status, run.Counts.RecordsIn, run.Counts.RecordsOut, run.Counts.FieldsCoerced)

	// 4. Strict mode rejects records without the input field.
	badReq := &api.RunRequest{
		Records: []api.Record{{JSON: map[string]any{"other": 1}}},
		Options: api.BatchOptions{StrictMode: true},
	}
	if _, err := runner.RunBatch(ctx, badReq); err != nil {
		fmt.Printf("\n[5] Strict mode error example: %v\n", err)
	}

	fmt.Println("\n=== demo complete ===")
}
