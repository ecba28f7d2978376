package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// QueryIndex returns every document in a table whose indexed attribute
// equals value, paginating through all result pages.
func (s *Store) QueryIndex(ctx context.Context, table, index, attr, value string) ([]Document, error) {
	input := &dynamodb.QueryInput{
		TableName:                aws.String(table),
		IndexName:                aws.String(index),
		KeyConditionExpression:   aws.String("#a = :v"),
		ExpressionAttributeNames: map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
	}

	var docs []Document
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			docs = append(docs, Document(raw))
		}
	}

	return docs, nil
}

// ScanAll returns every document in a table, paginating through all pages.
// Callers order the results themselves; the scan itself is unordered.
func (s *Store) ScanAll(ctx context.Context, table string) ([]Document, error) {
	var docs []Document
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(table),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			docs = append(docs, Document(raw))
		}
	}

	return docs, nil
}
