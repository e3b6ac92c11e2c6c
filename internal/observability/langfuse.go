package observability

import (
	"context"
	"log"
	"time"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/config"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/llm"
	langfuse "github.com/henomis/langfuse-go"
	"github.com/henomis/langfuse-go/model"
	"github.com/openai/openai-go/responses"
	"google.golang.org/genai"
)

// LangfuseClient wraps the Langfuse client with our configuration
type LangfuseClient struct {
	client  *langfuse.Langfuse
	enabled bool
	ctx     context.Context
}

var globalClient *LangfuseClient

// InitializeLangfuse initializes the global Langfuse client.
// The SDK reads LANGFUSE_PUBLIC_KEY, LANGFUSE_SECRET_KEY and LANGFUSE_HOST from the environment.
func InitializeLangfuse(ctx context.Context, cfg *config.Config) *LangfuseClient {
	if !cfg.LangfuseEnabled || cfg.LangfuseSecretKey == "" {
		log.Println("⚠️  Langfuse not configured (LANGFUSE_ENABLED=false or LANGFUSE_SECRET_KEY not set)")
		globalClient = &LangfuseClient{enabled: false, ctx: ctx}
		return globalClient
	}

	globalClient = &LangfuseClient{
		client:  langfuse.New(ctx),
		enabled: true,
		ctx:     ctx,
	}
	log.Printf("✅ Langfuse initialized (host: %s)", cfg.LangfuseHost)
	return globalClient
}

// GetClient returns the global Langfuse client
func GetClient() *LangfuseClient {
	if globalClient == nil {
		return &LangfuseClient{enabled: false, ctx: context.Background()}
	}
	return globalClient
}

// IsEnabled returns whether Langfuse is enabled
func (c *LangfuseClient) IsEnabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// StartTrace starts a new trace in Langfuse
func (c *LangfuseClient) StartTrace(ctx context.Context, name string, metadata map[string]any) *Trace {
	if !c.IsEnabled() {
		return &Trace{enabled: false, ctx: ctx}
	}

	trace, err := c.client.Trace(&model.Trace{
		Name:     name,
		Metadata: metadata,
	})
	if err != nil {
		log.Printf("⚠️  Failed to create Langfuse trace: %v", err)
		return &Trace{enabled: false, ctx: ctx}
	}

	return &Trace{
		trace:   trace,
		enabled: true,
		ctx:     ctx,
		client:  c.client,
	}
}

// Trace represents a Langfuse trace
type Trace struct {
	trace   *model.Trace
	enabled bool
	ctx     context.Context
	client  *langfuse.Langfuse
}

// Generation creates a new generation span within the trace
func (t *Trace) Generation(name string, metadata map[string]any) *Generation {
	if !t.enabled {
		return &Generation{enabled: false}
	}

	now := time.Now()
	gen, err := t.client.Generation(&model.Generation{
		TraceID:   t.trace.ID,
		Name:      name,
		StartTime: &now,
		Metadata:  metadata,
	}, nil)
	if err != nil {
		log.Printf("⚠️  Failed to create Langfuse generation: %v", err)
		return &Generation{enabled: false}
	}

	return &Generation{
		generation: gen,
		enabled:    true,
		client:     t.client,
	}
}

// Finish flushes queued events to Langfuse
func (t *Trace) Finish() {
	if t.enabled && t.client != nil {
		t.client.Flush(t.ctx)
	}
}

// Generation represents a Langfuse generation span
type Generation struct {
	generation *model.Generation
	enabled    bool
	client     *langfuse.Langfuse
}

// Input sets the input for the generation
func (g *Generation) Input(input any) {
	if g.enabled && g.generation != nil {
		g.generation.Input = input
	}
}

// Output sets the output for the generation
func (g *Generation) Output(output any) {
	if g.enabled && g.generation != nil {
		g.generation.Output = output
	}
}

// Metadata adds metadata to the generation
func (g *Generation) Metadata(metadata map[string]any) {
	if !g.enabled || g.generation == nil {
		return
	}
	md, ok := g.generation.Metadata.(map[string]any)
	if !ok || md == nil {
		md = make(map[string]any, len(metadata))
	}
	for k, v := range metadata {
		md[k] = v
	}
	g.generation.Metadata = md
}

// SetLevel sets the level of the generation ("DEBUG", "DEFAULT", "WARNING", "ERROR")
func (g *Generation) SetLevel(level string) {
	if g.enabled && g.generation != nil {
		g.generation.Level = model.ObservationLevel(level)
	}
}

// Fail records an error on the generation.
func (g *Generation) Fail(err error) {
	if err == nil {
		return
	}
	g.SetLevel("ERROR")
	g.Metadata(map[string]any{"error": err.Error()})
}

// Finish completes the generation and sends it to Langfuse
func (g *Generation) Finish() {
	if g.enabled && g.generation != nil && g.client != nil {
		now := time.Now()
		g.generation.EndTime = &now
		if _, err := g.client.GenerationEnd(g.generation); err != nil {
			log.Printf("⚠️  Failed to end Langfuse generation: %v", err)
		}
	}
}

// LogLLMResponse records model, input, output, usage and cost from a provider response.
// Usage is understood for the OpenAI Responses API and Gemini; other shapes are ignored.
func (g *Generation) LogLLMResponse(
	modelName string,
	input []map[string]any,
	resp *llm.GenerationResponse,
	metadata map[string]any,
) {
	if !g.enabled || g.generation == nil || resp == nil {
		return
	}

	usage := UsageFromResponse(modelName, resp.Usage)

	g.Input(input)
	if resp.RawOutput != "" {
		g.Output(resp.RawOutput)
	}
	g.generation.Model = modelName
	g.generation.Usage = usage

	final := map[string]any{
		"model":    modelName,
		"cost_usd": usage.TotalCost,
	}
	for k, v := range metadata {
		final[k] = v
	}
	g.Metadata(final)
}

// UsageFromResponse converts provider-specific usage into a Langfuse usage record.
func UsageFromResponse(modelName string, raw any) model.Usage {
	usage := model.Usage{Unit: model.ModelUsageUnitTokens}

	switch u := raw.(type) {
	case responses.ResponseUsage:
		usage.Input = int(u.InputTokens)
		usage.Output = int(u.OutputTokens)
		usage.Total = int(u.TotalTokens)
		usage.TotalCost = CalculateOpenAICost(modelName, u)
	case *genai.GenerateContentResponseUsageMetadata:
		if u == nil {
			return usage
		}
		usage.Input = int(u.PromptTokenCount)
		usage.Output = int(u.CandidatesTokenCount)
		usage.Total = int(u.TotalTokenCount)
		usage.TotalCost = CalculateCost(modelName, int64(u.PromptTokenCount), int64(u.CandidatesTokenCount), 0)
	case map[string]any:
		usage = convertUsageMap(u)
	}
	return usage
}

// convertUsageMap converts a usage map to model.Usage
func convertUsageMap(usage map[string]any) model.Usage {
	result := model.Usage{
		Unit: model.ModelUsageUnitTokens,
	}

	result.Input = intFrom(usage["input_tokens"])
	result.Output = intFrom(usage["output_tokens"])
	result.Total = intFrom(usage["total_tokens"])

	if cost, ok := usage["cost_usd"].(float64); ok {
		result.TotalCost = cost
	}

	return result
}

func intFrom(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
