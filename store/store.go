package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of the DynamoDB client the store uses.
// *dynamodb.Client satisfies it; tests substitute an in-memory fake.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Key is a DynamoDB primary key.
type Key map[string]types.AttributeValue

// StringKey builds a single-attribute string key.
func StringKey(attr, value string) Key {
	return Key{attr: &types.AttributeValueMemberS{Value: value}}
}

// Document is a raw schemaless item.
type Document map[string]types.AttributeValue

// Store provides point reads and writes, guarded counter deltas, filtered
// scans, and transactional multi-document batches over DynamoDB tables.
type Store struct {
	client DynamoAPI
}

// New creates a new Store instance.
func New(client DynamoAPI) *Store {
	return &Store{client: client}
}

// Get retrieves a document by key, returning ErrNotFound if missing.
func (s *Store) Get(ctx context.Context, table string, key Key) (Document, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       key,
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}
	return Document(result.Item), nil
}

// Put writes a document unconditionally. Re-writing the same document is an
// idempotent overwrite, which is what makes redelivered reactor writes safe.
func (s *Store) Put(ctx context.Context, table string, item Document) error {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	})
	return err
}

// Create writes a document only if no document with the same key exists.
// A concurrent or repeated create of the same key fails with
// ErrAlreadyExists instead of silently overwriting.
func (s *Store) Create(ctx context.Context, table, keyAttr string, item Document) error {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(table),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#k)"),
		ExpressionAttributeNames: map[string]string{"#k": keyAttr},
	})
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return ErrAlreadyExists
	}
	return err
}

// Delete removes a document by key. Deleting a missing document is a no-op.
func (s *Store) Delete(ctx context.Context, table string, key Key) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(table),
		Key:       key,
	})
	return err
}

// DeleteExisting removes a document by key, failing with ErrNotFound if the
// document is absent.
func (s *Store) DeleteExisting(ctx context.Context, table string, key Key) error {
	keyAttr := soleKeyAttr(key)
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(table),
		Key:                      key,
		ConditionExpression:      aws.String("attribute_exists(#k)"),
		ExpressionAttributeNames: map[string]string{"#k": keyAttr},
	})
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return ErrNotFound
	}
	return err
}

// AddToCounter applies an atomic field-level delta to a numeric field.
// The document must exist, and a negative delta may not take the field
// below zero; either violation fails with ErrConditionFailed. Using ADD
// instead of read-modify-write keeps concurrent deltas from losing updates.
func (s *Store) AddToCounter(ctx context.Context, table string, key Key, field string, delta int) error {
	keyAttr := soleKeyAttr(key)

	condExpr := "attribute_exists(#k)"
	exprNames := map[string]string{
		"#k": keyAttr,
		"#f": field,
	}
	exprValues := map[string]types.AttributeValue{
		":d": &types.AttributeValueMemberN{Value: strconv.Itoa(delta)},
	}
	if delta < 0 {
		condExpr = "attribute_exists(#k) AND #f >= :floor"
		exprValues[":floor"] = &types.AttributeValueMemberN{Value: strconv.Itoa(-delta)}
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       key,
		UpdateExpression:          aws.String("ADD #f :d"),
		ConditionExpression:       aws.String(condExpr),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
	})
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return ErrConditionFailed
	}
	return err
}

// soleKeyAttr returns the attribute name of a single-attribute key.
func soleKeyAttr(key Key) string {
	for attr := range key {
		return attr
	}
	return "id"
}

// mapTransactError maps transaction cancellations to store errors.
func mapTransactError(err error) error {
	if err == nil {
		return nil
	}
	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for _, reason := range txErr.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return ErrConditionFailed
			}
		}
		return fmt.Errorf("transaction canceled: %w", err)
	}
	return err
}
