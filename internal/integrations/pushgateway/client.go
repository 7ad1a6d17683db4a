package pushgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
)

// gatewayAPI is the minimal API Gateway Management API interface required
// by Client. *apigatewaymanagementapi.Client satisfies it.
type gatewayAPI interface {
	PostToConnection(ctx context.Context, in *apigatewaymanagementapi.PostToConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error)
}

// GoneError reports a push to a session that no longer exists. Callers
// detect it through the ConnectionGone method so they do not need to import
// this package's error types directly.
type GoneError struct {
	ConnectionID string
}

func (e *GoneError) Error() string {
	return fmt.Sprintf("pushgateway: connection %s is gone", e.ConnectionID)
}

func (e *GoneError) ConnectionGone() bool {
	return true
}

// Client pushes payloads to open websocket sessions.
type Client struct {
	api gatewayAPI
}

// New creates a Client with the given management API implementation.
func New(api gatewayAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("pushgateway: api must not be nil")
	}
	return &Client{api: api}, nil
}

// Post JSON-encodes payload and delivers it to the given connection.
// A session that has already closed yields a *GoneError.
func (c *Client) Post(ctx context.Context, connectionID string, payload any) error {
	if connectionID == "" {
		return errors.New("pushgateway: connection id is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("pushgateway: marshal payload: %w", err)
	}

	_, err = c.api.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionID),
		Data:         data,
	})
	if err != nil {
		var gone *types.GoneException
		if errors.As(err, &gone) {
			return &GoneError{ConnectionID: connectionID}
		}
		return fmt.Errorf("pushgateway: post to connection %s: %w", connectionID, err)
	}
	return nil
}
