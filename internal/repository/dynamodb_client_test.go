package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"seafood-agent/internal/domain"
)

type fakeDynamo struct {
	getOut     *dynamodb.GetItemOutput
	getErr     error
	putErr     error
	queryOuts  []*dynamodb.QueryOutput
	queryErr   error
	txErr      error
	batchErr   error
	queryCalls int

	lastGetInput *dynamodb.GetItemInput
	putInputs    []*dynamodb.PutItemInput
	queryInputs  []*dynamodb.QueryInput
	lastTxInput  *dynamodb.TransactWriteItemsInput
	batchInputs  []*dynamodb.BatchWriteItemInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putInputs = append(f.putInputs, in)
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	// Copy so later pagination does not rewrite recorded inputs.
	cp := *in
	f.queryInputs = append(f.queryInputs, &cp)
	i := f.queryCalls
	f.queryCalls++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if i < len(f.queryOuts) {
		return f.queryOuts[i], nil
	}
	return &dynamodb.QueryOutput{}, nil
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.lastTxInput = in
	return &dynamodb.TransactWriteItemsOutput{}, f.txErr
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.batchInputs = append(f.batchInputs, in)
	return &dynamodb.BatchWriteItemOutput{}, f.batchErr
}

var fixedNow = time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)

func mustNewClient(t *testing.T, db *fakeDynamo) *Client {
	t.Helper()
	c, err := New(db, "test-table", time.Hour)
	require.NoError(t, err)
	c.now = func() time.Time { return fixedNow }
	return c
}

func turnItemAt(c *Client, role domain.Role, text string, at time.Time) map[string]types.AttributeValue {
	return c.turnItem(domain.ChatTurn{ConversationID: "abc", Role: role, Text: text, CreatedAt: at})
}

func strVal(t *testing.T, item map[string]types.AttributeValue, key string) string {
	t.Helper()
	v, err := strAttr(item, key)
	require.NoError(t, err)
	return v
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "table", time.Hour)
	require.Error(t, err)
	_, err = New(&fakeDynamo{}, " ", time.Hour)
	require.Error(t, err)

	c, err := New(&fakeDynamo{}, "table", 0)
	require.NoError(t, err)
	require.Equal(t, defaultTTL, c.ttl)
}

func TestMsgSK_SortsChronologically(t *testing.T) {
	a := msgSK(time.Date(2026, 1, 1, 0, 0, 5, 100_000_000, time.UTC), domain.RoleUser)
	b := msgSK(time.Date(2026, 1, 1, 0, 0, 5, 120_000_000, time.UTC), domain.RoleUser)
	require.Less(t, a, b)
}

func TestAppendTurn_PutsItemAndPrunes(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	err := c.AppendTurn(context.Background(), domain.ChatTurn{ConversationID: "abc", Role: domain.RoleUser, Text: "hola"})
	require.NoError(t, err)

	require.Len(t, db.putInputs, 1)
	item := db.putInputs[0].Item
	require.Equal(t, "CONV#abc", strVal(t, item, "PK"))
	require.Equal(t, "MSG#2026-10-19T15:00:00.000000000Z#user", strVal(t, item, "SK"))
	require.Equal(t, "hola", strVal(t, item, "text"))
	require.Equal(t, fmt.Sprintf("%d", fixedNow.Add(time.Hour).Unix()), item["ttl"].(*types.AttributeValueMemberN).Value)

	require.Len(t, db.queryInputs, 1)
	to := db.queryInputs[0].ExpressionAttributeValues[":to"].(*types.AttributeValueMemberS).Value
	require.Equal(t, "MSG#2026-10-19T14:00:00.000000000Z", to)
	require.Empty(t, db.batchInputs)
}

func TestAppendTurn_Validation(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{})
	err := c.AppendTurn(context.Background(), domain.ChatTurn{Role: domain.RoleUser})
	require.Error(t, err)
	err = c.AppendTurn(context.Background(), domain.ChatTurn{ConversationID: "abc", Role: "system"})
	require.Error(t, err)
}

func TestPrune_DeletesExpiredInBatches(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)

	page := func(n, offset int, more bool) *dynamodb.QueryOutput {
		out := &dynamodb.QueryOutput{}
		for i := 0; i < n; i++ {
			out.Items = append(out.Items, turnItemAt(c, domain.RoleUser, "x", fixedNow.Add(-2*time.Hour).Add(time.Duration(offset+i)*time.Second)))
		}
		if more {
			out.LastEvaluatedKey = out.Items[len(out.Items)-1]
		}
		return out
	}
	db.queryOuts = []*dynamodb.QueryOutput{page(20, 0, true), page(10, 20, false)}

	require.NoError(t, c.Prune(context.Background(), "abc"))
	require.Len(t, db.queryInputs, 2)
	require.NotNil(t, db.queryInputs[1].ExclusiveStartKey)
	require.Len(t, db.batchInputs, 2)
	require.Len(t, db.batchInputs[0].RequestItems["test-table"], 25)
	require.Len(t, db.batchInputs[1].RequestItems["test-table"], 5)

	del := db.batchInputs[0].RequestItems["test-table"][0].DeleteRequest
	require.NotNil(t, del)
	require.Len(t, del.Key, 2)
}

func TestPrune_Errors(t *testing.T) {
	db := &fakeDynamo{queryErr: errors.New("boom")}
	c := mustNewClient(t, db)
	require.ErrorContains(t, c.Prune(context.Background(), "abc"), "Prune query")

	db = &fakeDynamo{batchErr: errors.New("throttled")}
	c = mustNewClient(t, db)
	db.queryOuts = []*dynamodb.QueryOutput{{Items: []map[string]types.AttributeValue{turnItemAt(c, domain.RoleUser, "x", fixedNow.Add(-3*time.Hour))}}}
	require.ErrorContains(t, c.Prune(context.Background(), "abc"), "Prune delete")
}

func TestRecent_OldestFirstWithinTTL(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	db.queryOuts = []*dynamodb.QueryOutput{{Items: []map[string]types.AttributeValue{
		turnItemAt(c, domain.RoleAssistant, "third", fixedNow.Add(-1*time.Minute)),
		turnItemAt(c, domain.RoleUser, "second", fixedNow.Add(-2*time.Minute)),
		turnItemAt(c, domain.RoleAssistant, "first", fixedNow.Add(-3*time.Minute)),
	}}}

	turns, err := c.Recent(context.Background(), "abc", 3)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	require.Equal(t, "first", turns[0].Text)
	require.Equal(t, "third", turns[2].Text)
	require.Equal(t, domain.RoleUser, turns[1].Role)
	require.Equal(t, fixedNow.Add(-2*time.Minute), turns[1].CreatedAt)

	in := db.queryInputs[0]
	require.False(t, *in.ScanIndexForward)
	require.Equal(t, int32(3), *in.Limit)
	from := in.ExpressionAttributeValues[":from"].(*types.AttributeValueMemberS).Value
	require.Equal(t, "MSG#2026-10-19T14:00:00.000000000Z", from)
}

func TestRecent_ZeroLimitAndErrors(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	turns, err := c.Recent(context.Background(), "abc", 0)
	require.NoError(t, err)
	require.Nil(t, turns)
	require.Empty(t, db.queryInputs)

	db.queryOuts = []*dynamodb.QueryOutput{{Items: []map[string]types.AttributeValue{{"PK": &types.AttributeValueMemberS{Value: "CONV#abc"}}}}}
	_, err = c.Recent(context.Background(), "abc", 5)
	require.ErrorContains(t, err, "Recent unmarshal")
}

func TestSaveExchange_WritesTurnsAndContextTogether(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	qid := uint(12345)

	err := c.SaveExchange(context.Background(),
		domain.ChatTurn{ConversationID: "abc", Role: domain.RoleUser, Text: "ponle 5 a delcy", CreatedAt: fixedNow},
		domain.ChatTurn{ConversationID: "abc", Role: domain.RoleAssistant, Text: "menu", CreatedAt: fixedNow},
		domain.ConversationContext{
			LastQuoteID: &qid,
			Pending:     &domain.PendingClarification{OriginalText: "ponle 5 a delcy", Options: []string{"a", "b"}},
		})
	require.NoError(t, err)

	require.NotNil(t, db.lastTxInput)
	items := db.lastTxInput.TransactItems
	require.Len(t, items, 3)
	userSK := strVal(t, items[0].Put.Item, "SK")
	botSK := strVal(t, items[1].Put.Item, "SK")
	require.Less(t, userSK, botSK)
	require.Equal(t, skMeta, strVal(t, items[2].Put.Item, "SK"))
	require.Contains(t, strVal(t, items[2].Put.Item, "pending"), `"originalText":"ponle 5 a delcy"`)
	require.Len(t, db.queryInputs, 1)
}

func TestSaveExchange_TransactionError(t *testing.T) {
	db := &fakeDynamo{txErr: errors.New("conditional check failed")}
	c := mustNewClient(t, db)
	err := c.SaveExchange(context.Background(),
		domain.ChatTurn{ConversationID: "abc", Role: domain.RoleUser, Text: "a"},
		domain.ChatTurn{ConversationID: "abc", Role: domain.RoleAssistant, Text: "b"},
		domain.ConversationContext{})
	require.ErrorContains(t, err, "SaveExchange")
	require.Empty(t, db.queryInputs)
}

func TestContext_RoundTrip(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	qid, cid := uint(7), uint(3)
	in := domain.ConversationContext{
		ConversationID: "abc",
		LastQuoteID:    &qid,
		LastCustomerID: &cid,
		Pending:        &domain.PendingClarification{OriginalText: "x", Options: []string{"uno", "dos"}},
	}
	require.NoError(t, c.PutContext(context.Background(), in))
	require.Len(t, db.putInputs, 1)

	db.getOut = &dynamodb.GetItemOutput{Item: db.putInputs[0].Item}
	got, err := c.GetContext(context.Background(), "abc")
	require.NoError(t, err)
	require.Equal(t, "abc", got.ConversationID)
	require.Equal(t, qid, *got.LastQuoteID)
	require.Equal(t, cid, *got.LastCustomerID)
	require.Equal(t, in.Pending, got.Pending)
	require.True(t, *db.lastGetInput.ConsistentRead)
}

func TestGetContext_MissingOrExpired(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{}}
	c := mustNewClient(t, db)
	got, err := c.GetContext(context.Background(), "abc")
	require.NoError(t, err)
	require.Nil(t, got.LastQuoteID)

	qid := uint(9)
	require.NoError(t, c.PutContext(context.Background(), domain.ConversationContext{ConversationID: "abc", LastQuoteID: &qid}))
	db.getOut = &dynamodb.GetItemOutput{Item: db.putInputs[0].Item}
	c.now = func() time.Time { return fixedNow.Add(2 * time.Hour) }
	got, err = c.GetContext(context.Background(), "abc")
	require.NoError(t, err)
	require.Nil(t, got.LastQuoteID)
}

func TestGetContext_DecodeError(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: "CONV#abc"},
		"SK":        &types.AttributeValueMemberS{Value: skMeta},
		"updatedAt": &types.AttributeValueMemberS{Value: fixedNow.Format(time.RFC3339Nano)},
		"pending":   &types.AttributeValueMemberS{Value: "{"},
	}}}
	c := mustNewClient(t, db)
	_, err := c.GetContext(context.Background(), "abc")
	require.ErrorContains(t, err, "GetContext decode")
}

func TestPutContext_RequiresConversation(t *testing.T) {
	c := mustNewClient(t, &fakeDynamo{})
	require.Error(t, c.PutContext(context.Background(), domain.ConversationContext{}))
}
