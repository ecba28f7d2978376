// Command reactor runs the stream-triggered reactors as a Lambda consuming
// DynamoDB Streams from all five tables.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/natterhq/natter/store"
	"github.com/natterhq/natter/stream"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	awsCfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Error("load aws config", "error", err)
		os.Exit(1)
	}

	st := store.New(dynamodb.NewFromConfig(awsCfg))
	tables := store.PrefixedConfig(os.Getenv("TABLE_PREFIX"))
	dispatcher := stream.NewSocialDispatcher(st, tables, logger)

	lambda.Start(dispatcher.HandleStream)
}
