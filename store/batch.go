package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// transactLimit is the DynamoDB cap on items per transaction.
const transactLimit = 100

// TransactDelete removes a set of documents from one table atomically.
// Batches larger than the transaction limit are split into sequential
// transactions, each atomic on its own.
func (s *Store) TransactDelete(ctx context.Context, table string, keys []Key) error {
	for start := 0; start < len(keys); start += transactLimit {
		end := start + transactLimit
		if end > len(keys) {
			end = len(keys)
		}

		items := make([]types.TransactWriteItem, 0, end-start)
		for _, key := range keys[start:end] {
			items = append(items, types.TransactWriteItem{
				Delete: &types.Delete{
					TableName: aws.String(table),
					Key:       key,
				},
			})
		}

		_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: items,
		})
		if err := mapTransactError(err); err != nil {
			return fmt.Errorf("delete batch %s [%d:%d]: %w", table, start, end, err)
		}
	}
	return nil
}

// TransactSetField rewrites one field to the same value on a set of
// documents in one table atomically, splitting at the transaction limit.
func (s *Store) TransactSetField(ctx context.Context, table string, keys []Key, field string, value types.AttributeValue) error {
	for start := 0; start < len(keys); start += transactLimit {
		end := start + transactLimit
		if end > len(keys) {
			end = len(keys)
		}

		items := make([]types.TransactWriteItem, 0, end-start)
		for _, key := range keys[start:end] {
			items = append(items, types.TransactWriteItem{
				Update: &types.Update{
					TableName:                aws.String(table),
					Key:                      key,
					UpdateExpression:         aws.String("SET #f = :v"),
					ExpressionAttributeNames: map[string]string{"#f": field},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":v": value,
					},
				},
			})
		}

		_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: items,
		})
		if err := mapTransactError(err); err != nil {
			return fmt.Errorf("update batch %s [%d:%d]: %w", table, start, end, err)
		}
	}
	return nil
}
