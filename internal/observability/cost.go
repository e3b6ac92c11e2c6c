package observability

import (
	"strconv"

	"github.com/openai/openai-go/responses"
)

// Pricing constants
const (
	tokensPerKilo       = 1000.0
	costFormatPrecision = 6
	defaultPricingModel = "gpt-4.1-mini"
)

// ModelPricing contains pricing information per 1K tokens
type ModelPricing struct {
	InputPricePer1K  float64 // Price per 1K input tokens in USD
	OutputPricePer1K float64 // Price per 1K output tokens in USD
}

// PricingTable contains pricing for the models the intent and plan stages use
var PricingTable = map[string]ModelPricing{
	"gpt-4.1":          {InputPricePer1K: 0.002, OutputPricePer1K: 0.008},
	"gpt-4.1-mini":     {InputPricePer1K: 0.0004, OutputPricePer1K: 0.0016},
	"gpt-4.1-nano":     {InputPricePer1K: 0.0001, OutputPricePer1K: 0.0004},
	"gpt-4o":           {InputPricePer1K: 0.005, OutputPricePer1K: 0.015},
	"gpt-4o-mini":      {InputPricePer1K: 0.00015, OutputPricePer1K: 0.0006},
	"gpt-5-mini":       {InputPricePer1K: 0.00025, OutputPricePer1K: 0.002},
	"gemini-2.5-flash": {InputPricePer1K: 0.0003, OutputPricePer1K: 0.0025},
	"gemini-2.5-pro":   {InputPricePer1K: 0.00125, OutputPricePer1K: 0.01},
}

// CalculateCost returns the USD cost of a call. Unknown models are priced like defaultPricingModel.
// Reasoning tokens are billed at the input rate.
func CalculateCost(modelName string, inputTokens, outputTokens, reasoningTokens int64) float64 {
	pricing, exists := PricingTable[modelName]
	if !exists {
		pricing = PricingTable[defaultPricingModel]
	}

	inputCost := (float64(inputTokens) / tokensPerKilo) * pricing.InputPricePer1K
	outputCost := (float64(outputTokens) / tokensPerKilo) * pricing.OutputPricePer1K
	reasoningCost := (float64(reasoningTokens) / tokensPerKilo) * pricing.InputPricePer1K

	return inputCost + outputCost + reasoningCost
}

// CalculateOpenAICost calculates the cost in USD for an OpenAI API call
func CalculateOpenAICost(modelName string, usage responses.ResponseUsage) float64 {
	return CalculateCost(modelName, usage.InputTokens, usage.OutputTokens, usage.OutputTokensDetails.ReasoningTokens)
}

// FormatCost formats a cost value as a USD string
func FormatCost(cost float64) string {
	return "$" + strconv.FormatFloat(cost, 'f', costFormatPrecision, 64)
}
