package interviewer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"

	"github.com/consultprep-dev/consultprep/internal/interview"
)

// Azure completes prompts with an Azure OpenAI chat deployment.
type Azure struct {
	client       *azopenai.Client
	deploymentID string
}

// NewAzure creates an Azure OpenAI completer using key authentication.
// The deploymentID is used for all subsequent calls.
func NewAzure(endpoint, apiKey, deploymentID string) (*Azure, error) {
	if endpoint == "" || apiKey == "" || deploymentID == "" {
		return nil, fmt.Errorf("azure endpoint, API key and deployment are required")
	}
	client, err := azopenai.NewClientWithKeyCredential(endpoint, azcore.NewKeyCredential(apiKey), nil)
	if err != nil {
		return nil, fmt.Errorf("creating Azure OpenAI client: %w", err)
	}
	return &Azure{client: client, deploymentID: deploymentID}, nil
}

// Complete implements Completer.
func (a *Azure) Complete(ctx context.Context, system, prompt string) (string, error) {
	var messages []azopenai.ChatRequestMessageClassification
	if system != "" {
		messages = append(messages, &azopenai.ChatRequestSystemMessage{
			Content: azopenai.NewChatRequestSystemMessageContent(system),
		})
	}
	messages = append(messages, &azopenai.ChatRequestUserMessage{
		Content: azopenai.NewChatRequestUserMessageContent(prompt),
	})

	resp, err := a.client.GetChatCompletions(ctx, azopenai.ChatCompletionsOptions{
		DeploymentName: to.Ptr(a.deploymentID),
		Messages:       messages,
	}, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %w", interview.ErrRateLimited, err)
		}
		return "", fmt.Errorf("azure chat completion: %w", err)
	}

	if len(resp.Choices) > 0 && resp.Choices[0].Message != nil && resp.Choices[0].Message.Content != nil {
		return *resp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("no completion received from Azure OpenAI")
}
