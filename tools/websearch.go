// Web Search Tool backed by the Google Custom Search API.
//
// Information Hiding:
// - HTTP client implementation details hidden
// - API endpoint, credentials and response format abstracted
// - Result count clamping internalized

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const googleSearchEndpoint = "https://www.googleapis.com/customsearch/v1"

// WebSearchTool searches the web via the Google Custom Search API.
// Requires GOOGLE_API_KEY and GOOGLE_CSE_ID environment variables.
type WebSearchTool struct {
	BaseTool
	client      *http.Client
	timeoutSecs uint64
	endpoint    string
}

// NewWebSearchTool creates a new web search tool with the given timeout.
func NewWebSearchTool(timeoutSecs uint64) *WebSearchTool {
	return &WebSearchTool{
		client: &http.Client{
			Timeout: time.Duration(timeoutSecs) * time.Second,
		},
		timeoutSecs: timeoutSecs,
		endpoint:    googleSearchEndpoint,
	}
}

// Metadata returns the tool metadata.
func (t *WebSearchTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "web_search",
		Description: "Search the web for current information",
		Parameters: []ToolParameter{
			{Name: "query", ParamType: "string", Description: "The search query", Required: true},
			{Name: "num_results", ParamType: "integer", Description: "Number of results to return (1-10, default 5)", Required: false},
		},
	}
}

type webSearchArgs struct {
	Query      string `json:"query"`
	NumResults int    `json:"num_results"`
}

// searchResult is one entry of the structured search output.
type searchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Source  string `json:"source,omitempty"`
}

// Validate validates the arguments.
func (t *WebSearchTool) Validate(args json.RawMessage) error {
	var a webSearchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(a.Query) == "" {
		return fmt.Errorf("query cannot be empty")
	}
	return nil
}

// Execute performs the search.
func (t *WebSearchTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a webSearchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return FailureResult(fmt.Errorf("invalid arguments: %w", err)), nil
	}

	if strings.TrimSpace(a.Query) == "" {
		return FailureResultf("query cannot be empty"), nil
	}

	apiKey := os.Getenv("GOOGLE_API_KEY")
	cseID := os.Getenv("GOOGLE_CSE_ID")
	if apiKey == "" || cseID == "" {
		return FailureResultf("web search not configured: GOOGLE_API_KEY and GOOGLE_CSE_ID must be set"), nil
	}

	num := clampResults(a.NumResults)

	params := url.Values{}
	params.Set("key", apiKey)
	params.Set("cx", cseID)
	params.Set("q", a.Query)
	params.Set("num", strconv.Itoa(num))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return FailureResult(fmt.Errorf("failed to create request: %w", err)), nil
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return FailureResultf("search timed out after %d seconds", t.timeoutSecs), nil
		}
		return FailureResult(fmt.Errorf("search request failed: %w", err)), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FailureResult(fmt.Errorf("failed to read response body: %w", err)), nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return FailureResultf("search API error: %s", resp.Status), nil
	}

	var payload struct {
		Items []struct {
			Title       string `json:"title"`
			Link        string `json:"link"`
			Snippet     string `json:"snippet"`
			DisplayLink string `json:"displayLink"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return FailureResult(fmt.Errorf("failed to decode search response: %w", err)), nil
	}

	if len(payload.Items) == 0 {
		return SuccessResult(fmt.Sprintf("No results found for %q", a.Query)), nil
	}

	results := make([]searchResult, 0, len(payload.Items))
	for _, item := range payload.Items {
		results = append(results, searchResult{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
			Source:  item.DisplayLink,
		})
	}

	out, err := json.Marshal(results)
	if err != nil {
		return FailureResult(fmt.Errorf("failed to encode results: %w", err)), nil
	}
	return SuccessResult(string(out)), nil
}

// clampResults bounds the requested result count to the API's 1..10 range.
func clampResults(n int) int {
	if n < 1 {
		return 5
	}
	if n > 10 {
		return 10
	}
	return n
}

// Verify WebSearchTool implements Tool
var _ Tool = (*WebSearchTool)(nil)
