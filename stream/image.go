package stream

import (
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/natterhq/natter/store"
)

// stringAttr extracts a string attribute from a stream image.
func stringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// documentString extracts a string attribute from a store document.
func documentString(doc store.Document, attr string) string {
	if v, ok := doc[attr].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

// ConvertKey converts a stream record key to a store.Key.
func ConvertKey(streamKey map[string]events.DynamoDBAttributeValue) store.Key {
	result := make(store.Key)
	for k, v := range streamKey {
		switch v.DataType() {
		case events.DataTypeString:
			result[k] = &types.AttributeValueMemberS{Value: v.String()}
		case events.DataTypeNumber:
			result[k] = &types.AttributeValueMemberN{Value: v.Number()}
		case events.DataTypeBinary:
			result[k] = &types.AttributeValueMemberB{Value: v.Binary()}
		}
	}
	return result
}
