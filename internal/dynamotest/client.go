// Package dynamotest provides an in-memory DynamoDB fake for exercising
// the store, domain, and reactor layers without AWS. It implements the
// narrow client interface the store consumes, honors the condition
// expressions the store issues, and journals every mutation as a DynamoDB
// stream record so tests can replay the reactor path.
package dynamotest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type table struct {
	keyAttr string
	items   map[string]map[string]types.AttributeValue
}

// Client is the in-memory fake. The zero value is not usable; call
// NewClient and CreateTable.
type Client struct {
	mu         sync.Mutex
	tables     map[string]*table
	journal    []journalEntry
	eventSeq   int
	failTables map[string]bool
}

type journalEntry struct {
	id    string
	table string
	kind  string
	key   map[string]types.AttributeValue
	old   map[string]types.AttributeValue
	new   map[string]types.AttributeValue
}

// NewClient creates an empty fake.
func NewClient() *Client {
	return &Client{
		tables:     make(map[string]*table),
		failTables: make(map[string]bool),
	}
}

// CreateTable registers a table with its key attribute.
func (c *Client) CreateTable(name, keyAttr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[name] = &table{
		keyAttr: keyAttr,
		items:   make(map[string]map[string]types.AttributeValue),
	}
}

// FailTransactsOn makes every subsequent transaction touching the table
// fail, for exercising partial-cleanup paths.
func (c *Client) FailTransactsOn(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failTables[name] = true
}

// RestoreTransactsOn undoes FailTransactsOn.
func (c *Client) RestoreTransactsOn(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.failTables, name)
}

// ItemCount returns the number of items in a table.
func (c *Client) ItemCount(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tables[name]; ok {
		return len(t.items)
	}
	return 0
}

func (c *Client) table(name *string) (*table, error) {
	if name == nil {
		return nil, fmt.Errorf("dynamotest: missing table name")
	}
	t, ok := c.tables[*name]
	if !ok {
		return nil, fmt.Errorf("dynamotest: unknown table %q", *name)
	}
	return t, nil
}

func (t *table) keyValue(attrs map[string]types.AttributeValue) (string, error) {
	v, ok := attrs[t.keyAttr].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("dynamotest: missing string key attribute %q", t.keyAttr)
	}
	return v.Value, nil
}

func clone(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func condFailed() error {
	return &types.ConditionalCheckFailedException{
		Message: aws.String("The conditional request failed"),
	}
}

func (c *Client) record(tableName, kind string, t *table, keyVal string, old, new map[string]types.AttributeValue) {
	c.eventSeq++
	c.journal = append(c.journal, journalEntry{
		id:    fmt.Sprintf("evt-%06d", c.eventSeq),
		table: tableName,
		kind:  kind,
		key:   map[string]types.AttributeValue{t.keyAttr: &types.AttributeValueMemberS{Value: keyVal}},
		old:   clone(old),
		new:   clone(new),
	})
}

// GetItem implements store.DynamoAPI.
func (c *Client) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.table(params.TableName)
	if err != nil {
		return nil, err
	}
	keyVal, err := t.keyValue(params.Key)
	if err != nil {
		return nil, err
	}

	item, ok := t.items[keyVal]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: clone(item)}, nil
}

// PutItem implements store.DynamoAPI, honoring attribute_not_exists
// conditions.
func (c *Client) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.table(params.TableName)
	if err != nil {
		return nil, err
	}
	keyVal, err := t.keyValue(params.Item)
	if err != nil {
		return nil, err
	}

	old, exists := t.items[keyVal]
	if params.ConditionExpression != nil &&
		strings.Contains(*params.ConditionExpression, "attribute_not_exists") && exists {
		return nil, condFailed()
	}

	t.items[keyVal] = clone(params.Item)
	if exists {
		c.record(*params.TableName, "MODIFY", t, keyVal, old, params.Item)
	} else {
		c.record(*params.TableName, "INSERT", t, keyVal, nil, params.Item)
	}
	return &dynamodb.PutItemOutput{}, nil
}

// DeleteItem implements store.DynamoAPI, honoring attribute_exists
// conditions. Deleting a missing item emits no stream record, matching
// DynamoDB.
func (c *Client) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.table(params.TableName)
	if err != nil {
		return nil, err
	}
	keyVal, err := t.keyValue(params.Key)
	if err != nil {
		return nil, err
	}

	old, exists := t.items[keyVal]
	if params.ConditionExpression != nil &&
		strings.Contains(*params.ConditionExpression, "attribute_exists") && !exists {
		return nil, condFailed()
	}

	if exists {
		delete(t.items, keyVal)
		c.record(*params.TableName, "REMOVE", t, keyVal, old, nil)
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

// UpdateItem implements the ADD counter expression the store issues.
func (c *Client) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.table(params.TableName)
	if err != nil {
		return nil, err
	}
	keyVal, err := t.keyValue(params.Key)
	if err != nil {
		return nil, err
	}

	item, exists := t.items[keyVal]
	if !exists {
		return nil, condFailed()
	}

	expr := aws.ToString(params.UpdateExpression)
	if !strings.HasPrefix(expr, "ADD ") {
		return nil, fmt.Errorf("dynamotest: unsupported update expression %q", expr)
	}

	field := params.ExpressionAttributeNames["#f"]
	current := numberField(item, field)

	if floor, ok := params.ExpressionAttributeValues[":floor"]; ok {
		min, err := numberValue(floor)
		if err != nil {
			return nil, err
		}
		if current < min {
			return nil, condFailed()
		}
	}

	delta, err := numberValue(params.ExpressionAttributeValues[":d"])
	if err != nil {
		return nil, err
	}

	old := clone(item)
	updated := clone(item)
	updated[field] = &types.AttributeValueMemberN{Value: strconv.FormatInt(current+delta, 10)}
	t.items[keyVal] = updated
	c.record(*params.TableName, "MODIFY", t, keyVal, old, updated)
	return &dynamodb.UpdateItemOutput{}, nil
}

// Query implements the single-attribute equality queries the store issues.
// Index names are accepted but every item is examined, which is equivalent
// for correctness.
func (c *Client) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.table(params.TableName)
	if err != nil {
		return nil, err
	}

	attr := params.ExpressionAttributeNames["#a"]
	want, ok := params.ExpressionAttributeValues[":v"].(*types.AttributeValueMemberS)
	if attr == "" || !ok {
		return nil, fmt.Errorf("dynamotest: unsupported key condition %q", aws.ToString(params.KeyConditionExpression))
	}

	out := &dynamodb.QueryOutput{}
	for _, item := range t.items {
		if v, isS := item[attr].(*types.AttributeValueMemberS); isS && v.Value == want.Value {
			out.Items = append(out.Items, clone(item))
		}
	}
	return out, nil
}

// Scan implements store.DynamoAPI.
func (c *Client) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.table(params.TableName)
	if err != nil {
		return nil, err
	}

	out := &dynamodb.ScanOutput{}
	for _, item := range t.items {
		out.Items = append(out.Items, clone(item))
	}
	return out, nil
}

// TransactWriteItems implements the delete and SET-field transactions the
// store issues. The batch is all-or-nothing: a table marked failing rejects
// the whole call before anything is applied.
func (c *Client) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, item := range params.TransactItems {
		var tableName *string
		switch {
		case item.Delete != nil:
			tableName = item.Delete.TableName
		case item.Update != nil:
			tableName = item.Update.TableName
		case item.Put != nil:
			tableName = item.Put.TableName
		}
		if tableName != nil && c.failTables[*tableName] {
			return nil, &types.TransactionCanceledException{
				Message: aws.String("Transaction cancelled"),
			}
		}
	}

	for _, op := range params.TransactItems {
		switch {
		case op.Delete != nil:
			t, err := c.table(op.Delete.TableName)
			if err != nil {
				return nil, err
			}
			keyVal, err := t.keyValue(op.Delete.Key)
			if err != nil {
				return nil, err
			}
			if old, exists := t.items[keyVal]; exists {
				delete(t.items, keyVal)
				c.record(*op.Delete.TableName, "REMOVE", t, keyVal, old, nil)
			}

		case op.Update != nil:
			t, err := c.table(op.Update.TableName)
			if err != nil {
				return nil, err
			}
			keyVal, err := t.keyValue(op.Update.Key)
			if err != nil {
				return nil, err
			}
			item, exists := t.items[keyVal]
			if !exists {
				continue
			}
			field := op.Update.ExpressionAttributeNames["#f"]
			value := op.Update.ExpressionAttributeValues[":v"]
			old := clone(item)
			updated := clone(item)
			updated[field] = value
			t.items[keyVal] = updated
			c.record(*op.Update.TableName, "MODIFY", t, keyVal, old, updated)

		default:
			return nil, fmt.Errorf("dynamotest: unsupported transact item")
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func numberField(item map[string]types.AttributeValue, field string) int64 {
	if v, ok := item[field].(*types.AttributeValueMemberN); ok {
		n, _ := strconv.ParseInt(v.Value, 10, 64)
		return n
	}
	return 0
}

func numberValue(av types.AttributeValue) (int64, error) {
	v, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("dynamotest: expected numeric attribute value")
	}
	return strconv.ParseInt(v.Value, 10, 64)
}
