package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"autoreply/clients"
	"autoreply/core"
)

// MessengerClient implements clients.MessengerClient against a Graph-style
// HTTP API. Outbound calls are rate limited so a burst of matched triggers
// cannot trip the platform's abuse thresholds.
type MessengerClient struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	limiter     *rate.Limiter
}

func NewMessengerClient(baseURL, accessToken string, requestsPerSecond float64) *MessengerClient {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	return &MessengerClient{
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		baseURL:     baseURL,
		accessToken: accessToken,
		limiter:     rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

type sendMessageRequest struct {
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

type sendMessageResponse struct {
	MessageID   string `json:"message_id"`
	RecipientID string `json:"recipient_id"`
}

type replyToCommentRequest struct {
	Message string `json:"message"`
}

type replyToCommentResponse struct {
	ID string `json:"id"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendDirectMessage delivers text to a user's inbox on behalf of accountID
func (c *MessengerClient) SendDirectMessage(ctx context.Context, accountID, recipientID, text string) (*clients.SendResult, error) {
	reqBody := sendMessageRequest{}
	reqBody.Recipient.ID = recipientID
	reqBody.Message.Text = text

	endpoint := fmt.Sprintf("%s/%s/messages", c.baseURL, url.PathEscape(accountID))

	var resp sendMessageResponse
	if err := c.post(ctx, endpoint, reqBody, &resp); err != nil {
		return nil, err
	}

	log.Printf("✅ Sent direct message %s to recipient %s", resp.MessageID, recipientID)
	return &clients.SendResult{ProviderMessageID: resp.MessageID}, nil
}

// ReplyToComment posts a public reply under commentID
func (c *MessengerClient) ReplyToComment(ctx context.Context, accountID, commentID, text string) (*clients.SendResult, error) {
	reqBody := replyToCommentRequest{Message: text}

	endpoint := fmt.Sprintf("%s/%s/replies", c.baseURL, url.PathEscape(commentID))

	var resp replyToCommentResponse
	if err := c.post(ctx, endpoint, reqBody, &resp); err != nil {
		return nil, err
	}

	log.Printf("✅ Posted comment reply %s under comment %s", resp.ID, commentID)
	return &clients.SendResult{ProviderMessageID: resp.ID}, nil
}

func (c *MessengerClient) post(ctx context.Context, endpoint string, reqBody, respBody any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed waiting for rate limiter: %w", err)
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.NewTransientError(fmt.Errorf("failed to call send API: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return core.NewTransientError(fmt.Errorf("send API returned status %d: %s", resp.StatusCode, string(body)))
	}
	if resp.StatusCode >= 400 {
		var apiErr apiErrorResponse
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("send API error (code %d): %s", apiErr.Error.Code, apiErr.Error.Message)
		}
		return fmt.Errorf("send API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}
