// Command api runs the request-path Lambda behind API Gateway.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/natterhq/natter/api"
	"github.com/natterhq/natter/social"
	"github.com/natterhq/natter/store"
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
	handler := api.NewHandler(social.NewService(st, tables, logger), logger)

	lambda.Start(handler.Handle)
}
