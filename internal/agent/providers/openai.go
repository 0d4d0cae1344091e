// Package providers adapts remote completion services to agent.Client.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"

	"github.com/ryogok/computer-use-model/internal/agent"
	"github.com/ryogok/computer-use-model/internal/computer"
)

// Endpoint names.
const (
	EndpointOpenAI = "openai"
	EndpointAzure  = "azure"
)

// DefaultAzureAPIVersion is the first Azure OpenAI API version that serves
// the computer-use model through the Responses API.
const DefaultAzureAPIVersion = "2025-03-01-preview"

// OpenAIConfig holds configuration for the OpenAI and Azure OpenAI endpoints.
type OpenAIConfig struct {
	// Endpoint selects EndpointOpenAI (default) or EndpointAzure.
	Endpoint string

	// APIKey authenticates against either endpoint. For Azure an empty key
	// falls back to Credential, then to the default Azure credential chain.
	APIKey string

	// BaseURL overrides the OpenAI API base URL (optional).
	BaseURL string

	// AzureEndpoint is the resource endpoint, e.g. https://my-resource.openai.azure.com.
	AzureEndpoint string

	// APIVersion is the Azure API version (default: DefaultAzureAPIVersion).
	APIVersion string

	// Credential authenticates Azure requests when APIKey is empty.
	Credential azcore.TokenCredential

	// HTTPClient replaces the default HTTP client (optional).
	HTTPClient *http.Client
}

// OpenAIProvider implements agent.Client on the Responses API.
//
// SDK level retries are disabled: the agent owns the retry policy and
// recognises rate limiting through ProviderError.IsRateLimit.
//
// Example:
//
//	provider, err := providers.NewOpenAIProvider(providers.OpenAIConfig{
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	})
//	if err != nil {
//	    return err
//	}
//	a, err := agent.New(provider, "computer-use-preview", scaler)
type OpenAIProvider struct {
	client openai.Client
	name   string
}

// NewOpenAIProvider creates a provider for the configured endpoint.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	name := cfg.Endpoint
	switch name {
	case "", EndpointOpenAI:
		name = EndpointOpenAI
		if cfg.APIKey == "" {
			return nil, errors.New("openai: API key is required")
		}
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}

	case EndpointAzure:
		if cfg.AzureEndpoint == "" {
			return nil, errors.New("azure: endpoint is required")
		}
		if cfg.APIVersion == "" {
			cfg.APIVersion = DefaultAzureAPIVersion
		}
		opts = append(opts, azure.WithEndpoint(cfg.AzureEndpoint, cfg.APIVersion))
		switch {
		case cfg.APIKey != "":
			opts = append(opts, azure.WithAPIKey(cfg.APIKey))
		case cfg.Credential != nil:
			opts = append(opts, azure.WithTokenCredential(cfg.Credential))
		default:
			cred, err := azidentity.NewDefaultAzureCredential(nil)
			if err != nil {
				return nil, fmt.Errorf("azure: default credential: %w", err)
			}
			opts = append(opts, azure.WithTokenCredential(cred))
		}

	default:
		return nil, fmt.Errorf("unknown endpoint %q", cfg.Endpoint)
	}

	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		name:   name,
	}, nil
}

// Name returns the endpoint identifier.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// CreateResponse issues one Responses API request.
func (p *OpenAIProvider) CreateResponse(ctx context.Context, req *agent.Request) (*agent.Response, error) {
	params, err := buildParams(req)
	if err != nil {
		return nil, NewProviderError(p.name, req.Model, err).WithStatus(http.StatusBadRequest)
	}

	resp, err := p.client.Responses.New(ctx, params)
	if err != nil {
		return nil, p.wrapError(req.Model, err)
	}
	return convertResponse(resp), nil
}

// wrapError classifies an SDK error into a ProviderError.
func (p *OpenAIProvider) wrapError(model string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	providerErr := NewProviderError(p.name, model, err)
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		providerErr.WithStatus(apiErr.StatusCode).WithCode(apiErr.Code)
		if apiErr.Message != "" {
			providerErr.WithMessage(apiErr.Message)
		}
		if apiErr.Response != nil {
			providerErr.WithRequestID(apiErr.Response.Header.Get("x-request-id"))
		}
	}
	return providerErr
}

func buildParams(req *agent.Request) (responses.ResponseNewParams, error) {
	params := responses.ResponseNewParams{
		Model:      req.Model,
		Truncation: responses.ResponseNewParamsTruncation(req.Truncation),
	}
	if req.PreviousResponseID != "" {
		params.PreviousResponseID = openai.String(req.PreviousResponseID)
	}
	if req.ReasoningSummary != "" {
		params.Reasoning = shared.ReasoningParam{
			Summary: shared.ReasoningSummary(req.ReasoningSummary),
		}
	}

	tools, err := convertTools(req.Tools)
	if err != nil {
		return params, err
	}
	params.Tools = tools

	if len(req.Input) == 0 {
		params.Input = responses.ResponseNewParamsInputUnion{OfString: openai.String(req.InputText)}
		return params, nil
	}
	items := make(responses.ResponseInputParam, 0, len(req.Input))
	for _, in := range req.Input {
		item, err := convertInput(in)
		if err != nil {
			return params, err
		}
		items = append(items, item)
	}
	params.Input = responses.ResponseNewParamsInputUnion{OfInputItemList: items}
	return params, nil
}

func convertTools(tools []agent.ToolDescriptor) ([]responses.ToolUnionParam, error) {
	result := make([]responses.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		switch tool.Type {
		case agent.ToolTypeComputer:
			result = append(result, responses.ToolParamOfComputerUsePreview(
				int64(tool.DisplayHeight),
				int64(tool.DisplayWidth),
				responses.ComputerToolEnvironment(tool.Environment),
			))
		case agent.ToolTypeFunction:
			parameters := tool.Parameters
			if parameters == nil {
				parameters = map[string]any{"type": "object", "properties": map[string]any{}}
			}
			param := responses.ToolParamOfFunction(tool.Name, parameters, tool.Strict)
			if tool.Description != "" && param.OfFunction != nil {
				param.OfFunction.Description = openai.String(tool.Description)
			}
			result = append(result, param)
		default:
			return nil, fmt.Errorf("unsupported tool type %q", tool.Type)
		}
	}
	return result, nil
}

func convertInput(in agent.InputItem) (responses.ResponseInputItemUnionParam, error) {
	switch in.Type {
	case agent.InputMessage:
		role := responses.EasyInputMessageRoleUser
		if in.Role != "" {
			role = responses.EasyInputMessageRole(in.Role)
		}
		return responses.ResponseInputItemParamOfMessage(in.Text, role), nil

	case agent.InputComputerCallOutput:
		item := responses.ResponseInputItemParamOfComputerCallOutput(in.CallID,
			responses.ResponseComputerToolCallOutputScreenshotParam{
				ImageURL: openai.String(in.ScreenshotURL),
			})
		if item.OfComputerCallOutput != nil {
			for _, check := range in.AcknowledgedSafetyChecks {
				ack := responses.ResponseInputItemComputerCallOutputAcknowledgedSafetyCheckParam{ID: check.ID}
				if check.Code != "" {
					ack.Code = openai.String(check.Code)
				}
				if check.Message != "" {
					ack.Message = openai.String(check.Message)
				}
				item.OfComputerCallOutput.AcknowledgedSafetyChecks = append(item.OfComputerCallOutput.AcknowledgedSafetyChecks, ack)
			}
		}
		return item, nil

	case agent.InputFunctionCallOutput:
		return responses.ResponseInputItemParamOfFunctionCallOutput(in.CallID, in.Output), nil

	default:
		return responses.ResponseInputItemUnionParam{}, fmt.Errorf("unsupported input item type %q", in.Type)
	}
}

func convertResponse(resp *responses.Response) *agent.Response {
	out := &agent.Response{
		ID:     resp.ID,
		Status: string(resp.Status),
		Output: make([]agent.OutputItem, 0, len(resp.Output)),
	}
	for _, item := range resp.Output {
		converted := agent.OutputItem{
			Type:      item.Type,
			ID:        item.ID,
			CallID:    item.CallID,
			Name:      item.Name,
			Arguments: item.Arguments,
		}
		switch item.Type {
		case agent.OutputMessage:
			for _, content := range item.Content {
				converted.Content = append(converted.Content, content.Text)
			}
		case agent.OutputReasoning:
			for _, summary := range item.Summary {
				converted.Summary = append(converted.Summary, summary.Text)
			}
		case agent.OutputComputerCall:
			converted.Action = convertAction(item.Action)
			for _, check := range item.PendingSafetyChecks {
				converted.PendingSafetyChecks = append(converted.PendingSafetyChecks, agent.SafetyCheck{
					ID:      check.ID,
					Code:    check.Code,
					Message: check.Message,
				})
			}
		}
		out.Output = append(out.Output, converted)
	}
	return out
}

func convertAction(action responses.ResponseOutputItemUnionAction) *agent.ActionPayload {
	payload := &agent.ActionPayload{
		Type:    action.Type,
		X:       int(action.X),
		Y:       int(action.Y),
		Button:  action.Button,
		ScrollX: int(action.ScrollX),
		ScrollY: int(action.ScrollY),
		Text:    action.Text,
		Keys:    action.Keys,
	}
	for _, p := range action.Path {
		payload.Path = append(payload.Path, computer.Point{X: int(p.X), Y: int(p.Y)})
	}
	return payload
}
