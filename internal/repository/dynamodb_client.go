package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"seafood-agent/internal/domain"
)

const (
	skPrefixMsg = "MSG#"
	skMeta      = "META#"
	// skTimeLayout is fixed width so sort keys order chronologically.
	skTimeLayout = "2006-01-02T15:04:05.000000000Z"
	defaultTTL   = time.Hour
	batchLimit   = 25
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Client is the Context Store: a short-lived chat log plus one context
// record per conversation, in a single DynamoDB table.
type Client struct {
	api       dynamodbAPI
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

// New creates a new repository Client. Turns older than ttl are invisible
// to reads and pruned on writes.
func New(api dynamodbAPI, tableName string, ttl time.Duration) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Client{api: api, tableName: tableName, ttl: ttl, now: time.Now}, nil
}

// convPK returns the DynamoDB partition key for a conversation.
func convPK(conversationID string) string {
	return "CONV#" + conversationID
}

// msgSK returns the sort key for a turn created at ts.
func msgSK(ts time.Time, role domain.Role) string {
	return skPrefixMsg + ts.UTC().Format(skTimeLayout) + "#" + string(role)
}

func (c *Client) cutoff() time.Time {
	return c.now().UTC().Add(-c.ttl)
}

// expiresAt is the epoch used by DynamoDB's native TTL sweeper.
func (c *Client) expiresAt(ts time.Time) int64 {
	return ts.Add(c.ttl).Unix()
}

// AppendTurn stores one turn and drops the conversation's expired turns.
func (c *Client) AppendTurn(ctx context.Context, turn domain.ChatTurn) error {
	turn, err := c.prepareTurn(turn)
	if err != nil {
		return fmt.Errorf("repository: AppendTurn: %w", err)
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      c.turnItem(turn),
	})
	if err != nil {
		return fmt.Errorf("repository: AppendTurn: %w", err)
	}
	return c.Prune(ctx, turn.ConversationID)
}

// SaveExchange writes a user turn, the assistant reply and the context
// record in one transaction, then prunes expired turns.
func (c *Client) SaveExchange(ctx context.Context, user, assistant domain.ChatTurn, cc domain.ConversationContext) error {
	var err error
	if user, err = c.prepareTurn(user); err != nil {
		return fmt.Errorf("repository: SaveExchange: %w", err)
	}
	if assistant, err = c.prepareTurn(assistant); err != nil {
		return fmt.Errorf("repository: SaveExchange: %w", err)
	}
	if !assistant.CreatedAt.After(user.CreatedAt) {
		assistant.CreatedAt = user.CreatedAt.Add(time.Microsecond)
	}
	if cc.ConversationID == "" {
		cc.ConversationID = user.ConversationID
	}
	meta, err := c.contextItem(cc)
	if err != nil {
		return fmt.Errorf("repository: SaveExchange: %w", err)
	}

	_, err = c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{TableName: aws.String(c.tableName), Item: c.turnItem(user)}},
			{Put: &types.Put{TableName: aws.String(c.tableName), Item: c.turnItem(assistant)}},
			{Put: &types.Put{TableName: aws.String(c.tableName), Item: meta}},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: SaveExchange: %w", err)
	}
	return c.Prune(ctx, user.ConversationID)
}

func (c *Client) prepareTurn(turn domain.ChatTurn) (domain.ChatTurn, error) {
	if strings.TrimSpace(turn.ConversationID) == "" {
		return turn, errors.New("conversation id is required")
	}
	if turn.Role != domain.RoleUser && turn.Role != domain.RoleAssistant {
		return turn, fmt.Errorf("unknown role %q", turn.Role)
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = c.now()
	}
	turn.CreatedAt = turn.CreatedAt.UTC()
	return turn, nil
}

// Recent returns up to k unexpired turns, oldest first.
func (c *Client) Recent(ctx context.Context, conversationID string, k int) ([]domain.ChatTurn, error) {
	if k <= 0 {
		return nil, nil
	}
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND SK BETWEEN :from AND :to"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: convPK(conversationID)},
			":from": &types.AttributeValueMemberS{Value: skPrefixMsg + c.cutoff().Format(skTimeLayout)},
			":to":   &types.AttributeValueMemberS{Value: skPrefixMsg + "~"},
		},
		// Read newest first so LIMIT favors the most recent context.
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(k)),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: Recent query: %w", err)
	}

	turns := make([]domain.ChatTurn, 0, len(out.Items))
	for _, item := range out.Items {
		t, err := itemToTurn(item)
		if err != nil {
			return nil, fmt.Errorf("repository: Recent unmarshal: %w", err)
		}
		turns = append(turns, t)
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Prune deletes every turn of the conversation older than the TTL.
func (c *Client) Prune(ctx context.Context, conversationID string) error {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND SK BETWEEN :from AND :to"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: convPK(conversationID)},
			":from": &types.AttributeValueMemberS{Value: skPrefixMsg},
			":to":   &types.AttributeValueMemberS{Value: skPrefixMsg + c.cutoff().Format(skTimeLayout)},
		},
		ProjectionExpression: aws.String("PK, SK"),
	}
	var keys []map[string]types.AttributeValue
	for {
		out, err := c.api.Query(ctx, in)
		if err != nil {
			return fmt.Errorf("repository: Prune query: %w", err)
		}
		for _, item := range out.Items {
			keys = append(keys, map[string]types.AttributeValue{"PK": item["PK"], "SK": item["SK"]})
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}

	for start := 0; start < len(keys); start += batchLimit {
		end := min(start+batchLimit, len(keys))
		reqs := make([]types.WriteRequest, 0, end-start)
		for _, k := range keys[start:end] {
			reqs = append(reqs, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: k}})
		}
		// Unprocessed items are retried by the next write or swept by the table TTL.
		_, err := c.api.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{c.tableName: reqs},
		})
		if err != nil {
			return fmt.Errorf("repository: Prune delete: %w", err)
		}
	}
	return nil
}

// GetContext returns the conversation's context record. A missing or
// expired record yields an empty one.
func (c *Client) GetContext(ctx context.Context, conversationID string) (domain.ConversationContext, error) {
	empty := domain.ConversationContext{ConversationID: conversationID}
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: convPK(conversationID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return empty, fmt.Errorf("repository: GetContext get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return empty, nil
	}
	cc, err := itemToContext(out.Item)
	if err != nil {
		return empty, fmt.Errorf("repository: GetContext decode: %w", err)
	}
	if cc.UpdatedAt.Before(c.cutoff()) {
		return empty, nil
	}
	cc.ConversationID = conversationID
	return cc, nil
}

// PutContext writes or replaces the conversation's context record.
func (c *Client) PutContext(ctx context.Context, cc domain.ConversationContext) error {
	item, err := c.contextItem(cc)
	if err != nil {
		return fmt.Errorf("repository: PutContext: %w", err)
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: PutContext: %w", err)
	}
	return nil
}

func (c *Client) turnItem(t domain.ChatTurn) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":             &types.AttributeValueMemberS{Value: convPK(t.ConversationID)},
		"SK":             &types.AttributeValueMemberS{Value: msgSK(t.CreatedAt, t.Role)},
		"conversationId": &types.AttributeValueMemberS{Value: t.ConversationID},
		"role":           &types.AttributeValueMemberS{Value: string(t.Role)},
		"text":           &types.AttributeValueMemberS{Value: t.Text},
		"createdAt":      &types.AttributeValueMemberS{Value: t.CreatedAt.Format(time.RFC3339Nano)},
		"ttl":            &types.AttributeValueMemberN{Value: strconv.FormatInt(c.expiresAt(t.CreatedAt), 10)},
	}
}

func (c *Client) contextItem(cc domain.ConversationContext) (map[string]types.AttributeValue, error) {
	if strings.TrimSpace(cc.ConversationID) == "" {
		return nil, errors.New("conversation id is required")
	}
	updated := c.now().UTC()
	item := map[string]types.AttributeValue{
		"PK":             &types.AttributeValueMemberS{Value: convPK(cc.ConversationID)},
		"SK":             &types.AttributeValueMemberS{Value: skMeta},
		"conversationId": &types.AttributeValueMemberS{Value: cc.ConversationID},
		"updatedAt":      &types.AttributeValueMemberS{Value: updated.Format(time.RFC3339Nano)},
		"ttl":            &types.AttributeValueMemberN{Value: strconv.FormatInt(c.expiresAt(updated), 10)},
	}
	if cc.LastQuoteID != nil {
		item["lastQuoteId"] = &types.AttributeValueMemberN{Value: strconv.FormatUint(uint64(*cc.LastQuoteID), 10)}
	}
	if cc.LastCustomerID != nil {
		item["lastCustomerId"] = &types.AttributeValueMemberN{Value: strconv.FormatUint(uint64(*cc.LastCustomerID), 10)}
	}
	if cc.Pending != nil {
		raw, err := json.Marshal(cc.Pending)
		if err != nil {
			return nil, fmt.Errorf("marshal pending clarification: %w", err)
		}
		item["pending"] = &types.AttributeValueMemberS{Value: string(raw)}
	}
	return item, nil
}

func itemToTurn(item map[string]types.AttributeValue) (domain.ChatTurn, error) {
	conv, err := strAttr(item, "conversationId")
	if err != nil {
		return domain.ChatTurn{}, err
	}
	role, err := strAttr(item, "role")
	if err != nil {
		return domain.ChatTurn{}, err
	}
	text, _ := strAttr(item, "text") // allow empty
	created, err := timeAttr(item, "createdAt")
	if err != nil {
		return domain.ChatTurn{}, err
	}
	return domain.ChatTurn{ConversationID: conv, Role: domain.Role(role), Text: text, CreatedAt: created}, nil
}

func itemToContext(item map[string]types.AttributeValue) (domain.ConversationContext, error) {
	var cc domain.ConversationContext
	updated, err := timeAttr(item, "updatedAt")
	if err != nil {
		return cc, err
	}
	cc.UpdatedAt = updated
	if _, ok := item["lastQuoteId"]; ok {
		id, err := uintAttr(item, "lastQuoteId")
		if err != nil {
			return cc, err
		}
		cc.LastQuoteID = &id
	}
	if _, ok := item["lastCustomerId"]; ok {
		id, err := uintAttr(item, "lastCustomerId")
		if err != nil {
			return cc, err
		}
		cc.LastCustomerID = &id
	}
	if _, ok := item["pending"]; ok {
		raw, err := strAttr(item, "pending")
		if err != nil {
			return cc, err
		}
		var p domain.PendingClarification
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return cc, fmt.Errorf("repository: decode pending clarification: %w", err)
		}
		cc.Pending = &p
	}
	return cc, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func uintAttr(item map[string]types.AttributeValue, key string) (uint, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseUint(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return uint(parsed), nil
}

func timeAttr(item map[string]types.AttributeValue, key string) (time.Time, error) {
	s, err := strAttr(item, key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return t, nil
}
