package gemini

import (
	"encoding/json"
	"fmt"

	"github.com/antagligen/agent-triage-ralph-antigravity/internal/jsonschema"
	"github.com/antagligen/agent-triage-ralph-antigravity/providers/ai"
)

type generateContentRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	Tools             []tool            `json:"tools,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *functionCall     `json:"functionCall,omitempty"`
	FunctionResponse *functionResponse `json:"functionResponse,omitempty"`
}

type functionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type functionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type tool struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}

type functionDeclaration struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

type generationConfig struct {
	Temperature      *float32           `json:"temperature,omitempty"`
	MaxOutputTokens  int                `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string             `json:"responseMimeType,omitempty"`
	ResponseSchema   *jsonschema.Schema `json:"responseJsonSchema,omitempty"`
}

type generateContentResponse struct {
	Candidates     []candidate     `json:"candidates"`
	UsageMetadata  *usageMetadata  `json:"usageMetadata,omitempty"`
	ModelVersion   string          `json:"modelVersion,omitempty"`
	ResponseID     string          `json:"responseId,omitempty"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

func requestFromGeneric(request ai.ChatRequest) generateContentRequest {
	converted := generateContentRequest{
		Contents: make([]content, 0, len(request.Messages)),
	}

	if request.SystemPrompt != "" {
		converted.SystemInstruction = &content{Parts: []part{{Text: request.SystemPrompt}}}
	}

	for _, message := range request.Messages {
		switch message.Role {
		case ai.RoleSystem:
			// Gemini has a single system slot; later system messages are appended to it.
			if converted.SystemInstruction == nil {
				converted.SystemInstruction = &content{}
			}
			converted.SystemInstruction.Parts = append(converted.SystemInstruction.Parts, part{Text: message.Content})
		case ai.RoleAssistant:
			modelTurn := content{Role: "model"}
			if message.Content != "" {
				modelTurn.Parts = append(modelTurn.Parts, part{Text: message.Content})
			}
			for _, call := range message.ToolCalls {
				modelTurn.Parts = append(modelTurn.Parts, part{FunctionCall: &functionCall{
					Name: call.Function.Name,
					Args: decodeArguments(call.Function.Arguments),
				}})
			}
			converted.Contents = append(converted.Contents, modelTurn)
		case ai.RoleTool:
			converted.Contents = append(converted.Contents, content{
				Role: "user",
				Parts: []part{{FunctionResponse: &functionResponse{
					Name:     message.Name,
					Response: map[string]any{"result": message.Content},
				}}},
			})
		default:
			converted.Contents = append(converted.Contents, content{Role: "user", Parts: []part{{Text: message.Content}}})
		}
	}

	if len(request.Tools) > 0 {
		declarations := make([]functionDeclaration, 0, len(request.Tools))
		for _, description := range request.Tools {
			declarations = append(declarations, functionDeclaration{
				Name:        description.Name,
				Description: description.Description,
				Parameters:  description.Parameters,
			})
		}
		converted.Tools = []tool{{FunctionDeclarations: declarations}}
	}

	if request.GenerationConfig != nil || request.ResponseFormat != nil {
		config := &generationConfig{}
		if request.GenerationConfig != nil {
			config.Temperature = request.GenerationConfig.Temperature
			config.MaxOutputTokens = request.GenerationConfig.MaxTokens
		}
		if request.ResponseFormat != nil {
			config.ResponseMIMEType = "application/json"
			config.ResponseSchema = request.ResponseFormat.OutputSchema
		}
		converted.GenerationConfig = config
	}

	return converted
}

func responseToGeneric(response generateContentResponse, model string) *ai.ChatResponse {
	first := response.Candidates[0]

	converted := &ai.ChatResponse{
		Id:           response.ResponseID,
		Model:        model,
		FinishReason: first.FinishReason,
	}
	if response.ModelVersion != "" {
		converted.Model = response.ModelVersion
	}

	for index, candidatePart := range first.Content.Parts {
		if candidatePart.Text != "" {
			converted.Content += candidatePart.Text
		}
		if candidatePart.FunctionCall != nil {
			arguments, err := json.Marshal(candidatePart.FunctionCall.Args)
			if err != nil {
				arguments = []byte("{}")
			}
			converted.ToolCalls = append(converted.ToolCalls, ai.ToolCall{
				ID:   fmt.Sprintf("call_%d", index),
				Type: "function",
				Function: ai.ToolCallFunction{
					Name:      candidatePart.FunctionCall.Name,
					Arguments: string(arguments),
				},
			})
		}
	}

	if response.UsageMetadata != nil {
		converted.Usage = &ai.Usage{
			PromptTokens:     response.UsageMetadata.PromptTokenCount,
			CompletionTokens: response.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      response.UsageMetadata.TotalTokenCount,
		}
	}
	return converted
}

func decodeArguments(arguments string) map[string]any {
	decoded := map[string]any{}
	if arguments == "" {
		return decoded
	}
	if err := json.Unmarshal([]byte(arguments), &decoded); err != nil {
		return map[string]any{}
	}
	return decoded
}
