package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"invoice-studio/internal/invoice"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
	"github.com/shopspring/decimal"
)

// DraftAssistant turns a free-text description of work into draft content.
type DraftAssistant interface {
	SuggestDraft(ctx context.Context, description string, hints Hints) (*DraftSuggestion, error)
}

// Hints give the model the caller's context.
type Hints struct {
	Currency string
	Today    string // YYYY-MM-DD
}

// SuggestedItem is one proposed line. The rate is a decimal string so money
// never passes through a float; the quantity is a plain JSON number.
type SuggestedItem struct {
	Description string  `json:"description" jsonschema:"description=Short name of the billed work or product"`
	Details     string  `json:"details" jsonschema:"description=Optional extra detail; empty string when none"`
	Rate        string  `json:"rate" jsonschema:"description=Unit price as a plain decimal string such as 120.00"`
	Quantity    float64 `json:"quantity" jsonschema:"description=Number of units; 1 when not stated"`
	Taxable     bool    `json:"taxable"`
}

// DraftSuggestion is the structured output requested from the model.
type DraftSuggestion struct {
	ClientName  string          `json:"client_name"`
	ClientEmail string          `json:"client_email" jsonschema:"description=Empty string when not mentioned"`
	Items       []SuggestedItem `json:"items"`
	Terms       string          `json:"terms" jsonschema:"description=Payment terms such as Net 30; empty string when not mentioned"`
	Notes       string          `json:"notes"`
	Confidence  float64         `json:"confidence"`
	Reasoning   string          `json:"reasoning"`
}

// Draft converts the suggestion into draft fields on top of base. Amounts
// that are not finite decimals are rejected; nothing is finalized here.
func (s *DraftSuggestion) Draft(base invoice.Record) (invoice.Record, error) {
	out := base
	if name := strings.TrimSpace(s.ClientName); name != "" {
		out.BillTo.Name = name
	}
	if email := strings.TrimSpace(s.ClientEmail); email != "" {
		out.BillTo.Email = email
	}
	if terms := strings.TrimSpace(s.Terms); terms != "" {
		out.Terms = terms
	}
	if notes := strings.TrimSpace(s.Notes); notes != "" {
		out.Notes = notes
	}

	out.Items = make([]invoice.LineItem, 0, len(s.Items))
	for i, it := range s.Items {
		rate, err := invoice.ParseAmount(fmt.Sprintf("items[%d].rate", i), it.Rate)
		if err != nil {
			return invoice.Record{}, err
		}
		qty, err := invoice.FromFloat(fmt.Sprintf("items[%d].quantity", i), it.Quantity)
		if err != nil {
			return invoice.Record{}, err
		}
		if qty.IsZero() {
			qty = decimal.NewFromInt(1)
		}
		out.Items = append(out.Items, invoice.LineItem{
			Description:       strings.TrimSpace(it.Description),
			AdditionalDetails: strings.TrimSpace(it.Details),
			Rate:              rate,
			Quantity:          qty,
			Taxable:           it.Taxable,
		})
	}
	return out, nil
}

type Agent struct {
	client *openai.Client
	model  shared.ResponsesModel
}

// NewAgent creates an assistant backed by the OpenAI Responses API. Extra
// options are passed to the client.
func NewAgent(apiKey string, opts ...option.RequestOption) *Agent {
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &Agent{client: &client, model: shared.ResponsesModel(shared.ChatModelGPT4o)}
}

func (a *Agent) SuggestDraft(ctx context.Context, description string, hints Hints) (*DraftSuggestion, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, &invoice.ValidationError{Field: "description", Err: invoice.ErrMissingField, Details: "describe the work to invoice"}
	}

	prompt := fmt.Sprintf(`You prepare invoice drafts for a small business.
Read the description of work below and propose the invoice content.
Rules:
1. One item per distinct piece of work or product.
2. Rates and quantities are plain decimal strings in %s with no currency symbols.
3. Mark an item taxable unless the description says it is exempt.
4. Use empty strings for anything the description does not mention.
5. Provide a confidence score (0.0-1.0) and explain your reasoning.

Today is %s.

Description: %s`, hints.Currency, hints.Today, description)

	schemaMap, err := suggestionSchema()
	if err != nil {
		return nil, err
	}

	params := responses.ResponseNewParams{
		Model: a.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "invoice_draft_suggestion",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("Proposed client, line items, terms and notes for an invoice"),
				},
			},
		},
	}

	resp, err := a.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", err)
	}

	return parseSuggestion(resp.OutputText())
}

func parseSuggestion(content string) (*DraftSuggestion, error) {
	if content == "" {
		return nil, fmt.Errorf("empty response content")
	}
	var s DraftSuggestion
	if err := json.Unmarshal([]byte(content), &s); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}
	if len(s.Items) == 0 {
		return nil, fmt.Errorf("suggestion contains no items")
	}
	return &s, nil
}

func suggestionSchema() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schemaJSON, err := json.Marshal(reflector.Reflect(&DraftSuggestion{}))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}
	return schemaMap, nil
}
