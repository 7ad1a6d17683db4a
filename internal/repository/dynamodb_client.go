package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"easy-chat-server/internal/domain"
)

const (
	// nicknameIndex is the Connections GSI keyed by nickname. It is not
	// strictly unique; lookups take the first match.
	nicknameIndex = "nickname-index"
	// conversationIndex is the Messages GSI keyed by the conversation key
	// with createdAt as the range key.
	conversationIndex = "nicknameToNickname-index"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Client wraps the Connections and Messages DynamoDB tables.
type Client struct {
	api              dynamodbAPI
	connectionsTable string
	messagesTable    string
}

// New creates a new repository Client.
func New(api dynamodbAPI, connectionsTable, messagesTable string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(connectionsTable) == "" {
		return nil, errors.New("repository: connections table name must not be empty")
	}
	if strings.TrimSpace(messagesTable) == "" {
		return nil, errors.New("repository: messages table name must not be empty")
	}
	return &Client{api: api, connectionsTable: connectionsTable, messagesTable: messagesTable}, nil
}

// PutConnection upserts the record binding a connection id to a nickname.
func (c *Client) PutConnection(ctx context.Context, conn domain.Connection) error {
	if conn.ConnectionID == "" || conn.Nickname == "" {
		return errors.New("repository: PutConnection: connection id and nickname are required")
	}
	item, err := attributevalue.MarshalMap(conn)
	if err != nil {
		return fmt.Errorf("repository: PutConnection marshal: %w", err)
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.connectionsTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: PutConnection: %w", err)
	}
	return nil
}

// DeleteConnection removes a connection record. Deleting an id that is
// already gone is not an error.
func (c *Client) DeleteConnection(ctx context.Context, connectionID string) error {
	_, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.connectionsTable),
		Key: map[string]types.AttributeValue{
			"connectionId": &types.AttributeValueMemberS{Value: connectionID},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: DeleteConnection: %w", err)
	}
	return nil
}

// GetConnection looks up a connection record by its primary key.
func (c *Client) GetConnection(ctx context.Context, connectionID string) (domain.Connection, bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.connectionsTable),
		Key: map[string]types.AttributeValue{
			"connectionId": &types.AttributeValueMemberS{Value: connectionID},
		},
	})
	if err != nil {
		return domain.Connection{}, false, fmt.Errorf("repository: GetConnection: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Connection{}, false, nil
	}
	var conn domain.Connection
	if err := attributevalue.UnmarshalMap(out.Item, &conn); err != nil {
		return domain.Connection{}, false, fmt.Errorf("repository: GetConnection unmarshal: %w", err)
	}
	return conn, true, nil
}

// FindConnectionByNickname resolves the connection currently bound to a
// nickname via the nickname GSI, taking the first match.
func (c *Client) FindConnectionByNickname(ctx context.Context, nickname string) (domain.Connection, bool, error) {
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.connectionsTable),
		IndexName:              aws.String(nicknameIndex),
		KeyConditionExpression: aws.String("nickname = :nickname"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":nickname": &types.AttributeValueMemberS{Value: nickname},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return domain.Connection{}, false, fmt.Errorf("repository: FindConnectionByNickname query: %w", err)
	}
	if out == nil || len(out.Items) == 0 {
		return domain.Connection{}, false, nil
	}
	var conn domain.Connection
	if err := attributevalue.UnmarshalMap(out.Items[0], &conn); err != nil {
		return domain.Connection{}, false, fmt.Errorf("repository: FindConnectionByNickname unmarshal: %w", err)
	}
	return conn, true, nil
}

// ListConnections returns every live connection record, following scan
// pagination to completion.
func (c *Client) ListConnections(ctx context.Context) ([]domain.Connection, error) {
	var conns []domain.Connection
	var start map[string]types.AttributeValue
	for {
		out, err := c.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(c.connectionsTable),
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("repository: ListConnections scan: %w", err)
		}
		var page []domain.Connection
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("repository: ListConnections unmarshal: %w", err)
		}
		conns = append(conns, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		start = out.LastEvaluatedKey
	}
	return conns, nil
}

// PutMessage persists a new message record.
func (c *Client) PutMessage(ctx context.Context, msg domain.Message) error {
	if msg.MessageID == "" || msg.ConversationKey == "" {
		return errors.New("repository: PutMessage: message id and conversation key are required")
	}
	item, err := attributevalue.MarshalMap(msg)
	if err != nil {
		return fmt.Errorf("repository: PutMessage marshal: %w", err)
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.messagesTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: PutMessage: %w", err)
	}
	return nil
}

// QueryMessages returns one page of a conversation's messages, newest
// first, resuming from startKey when the caller provides one. The returned
// cursor is nil when the page is the last one.
func (c *Client) QueryMessages(ctx context.Context, conversationKey string, limit int32, startKey map[string]any) ([]domain.Message, map[string]any, error) {
	exclusiveStart, err := cursorToKey(startKey)
	if err != nil {
		return nil, nil, fmt.Errorf("repository: QueryMessages cursor: %w", err)
	}

	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.messagesTable),
		IndexName:              aws.String(conversationIndex),
		KeyConditionExpression: aws.String("nicknameToNickname = :key"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":key": &types.AttributeValueMemberS{Value: conversationKey},
		},
		Limit:             aws.Int32(limit),
		ScanIndexForward:  aws.Bool(false),
		ExclusiveStartKey: exclusiveStart,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("repository: QueryMessages query: %w", err)
	}

	msgs := make([]domain.Message, 0, len(out.Items))
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &msgs); err != nil {
		return nil, nil, fmt.Errorf("repository: QueryMessages unmarshal: %w", err)
	}

	cursor, err := keyToCursor(out.LastEvaluatedKey)
	if err != nil {
		return nil, nil, fmt.Errorf("repository: QueryMessages cursor: %w", err)
	}
	return msgs, cursor, nil
}

// cursorToKey converts a wire-format cursor back into a DynamoDB start key.
// The cursor is whatever keyToCursor produced on an earlier page, echoed
// back verbatim by the client.
func cursorToKey(cursor map[string]any) (map[string]types.AttributeValue, error) {
	if len(cursor) == 0 {
		return nil, nil
	}
	return attributevalue.MarshalMap(cursor)
}

func keyToCursor(key map[string]types.AttributeValue) (map[string]any, error) {
	if len(key) == 0 {
		return nil, nil
	}
	var cursor map[string]any
	if err := attributevalue.UnmarshalMap(key, &cursor); err != nil {
		return nil, err
	}
	return cursor, nil
}
