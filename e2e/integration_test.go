//go:build e2e

// Package e2e contains end-to-end integration tests using real DynamoDB tables.
// Run with: go test -tags=e2e -v ./e2e/...
package e2e

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/natterhq/natter/internal/key"
	"github.com/natterhq/natter/social"
	"github.com/natterhq/natter/store"
)

// Test configuration
const (
	awsProfile = "natter-dev"

	// Table names - unique per test run to avoid conflicts
	tablePrefix = "natter-e2e-test"
)

var (
	testID string
	tables store.Config

	ddbClient *dynamodb.Client
	testStore *store.Store
)

// --- Test Setup & Teardown ---

func TestMain(m *testing.M) {
	// Generate unique test ID
	testID = uuid.New().String()[:8]
	tables = store.PrefixedConfig(fmt.Sprintf("%s-%s-", tablePrefix, testID))

	fmt.Printf("Test ID: %s\n", testID)
	fmt.Printf("Tables:\n")
	fmt.Printf("  - Posts: %s\n", tables.Posts)
	fmt.Printf("  - Comments: %s\n", tables.Comments)
	fmt.Printf("  - Likes: %s\n", tables.Likes)
	fmt.Printf("  - Notifications: %s\n", tables.Notifications)
	fmt.Printf("  - Users: %s\n", tables.Users)

	ctx := context.Background()
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithSharedConfigProfile(awsProfile),
	)
	if err != nil {
		fmt.Printf("Failed to load AWS config: %v\n", err)
		os.Exit(1)
	}

	ddbClient = dynamodb.NewFromConfig(cfg)

	if err := createTables(ctx); err != nil {
		fmt.Printf("Failed to create tables: %v\n", err)
		os.Exit(1)
	}

	testStore = store.New(ddbClient)

	code := m.Run()

	if err := deleteTables(ctx); err != nil {
		fmt.Printf("Failed to delete tables: %v\n", err)
	}

	os.Exit(code)
}

func gsi(name, hashAttr string) types.GlobalSecondaryIndex {
	return types.GlobalSecondaryIndex{
		IndexName: aws.String(name),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(hashAttr), KeyType: types.KeyTypeHash},
		},
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

func createTables(ctx context.Context) error {
	fmt.Println("Creating test tables...")

	specs := []struct {
		name    string
		keyAttr string
		indexes []types.GlobalSecondaryIndex
		attrs   []string
	}{
		{
			name:    tables.Posts,
			keyAttr: social.AttrID,
			indexes: []types.GlobalSecondaryIndex{gsi(store.AuthorIndex, social.AttrAuthorHandle)},
			attrs:   []string{social.AttrAuthorHandle},
		},
		{
			name:    tables.Comments,
			keyAttr: social.AttrID,
			indexes: []types.GlobalSecondaryIndex{gsi(store.PostIndex, social.AttrPostID)},
			attrs:   []string{social.AttrPostID},
		},
		{
			name:    tables.Likes,
			keyAttr: social.AttrID,
			indexes: []types.GlobalSecondaryIndex{gsi(store.PostIndex, social.AttrPostID)},
			attrs:   []string{social.AttrPostID},
		},
		{
			name:    tables.Notifications,
			keyAttr: social.AttrID,
			indexes: []types.GlobalSecondaryIndex{
				gsi(store.PostIndex, social.AttrPostID),
				gsi(store.RecipientIndex, social.AttrRecipient),
			},
			attrs: []string{social.AttrPostID, social.AttrRecipient},
		},
		{
			name:    tables.Users,
			keyAttr: social.AttrHandle,
		},
	}

	for _, spec := range specs {
		defs := []types.AttributeDefinition{
			{AttributeName: aws.String(spec.keyAttr), AttributeType: types.ScalarAttributeTypeS},
		}
		for _, attr := range spec.attrs {
			defs = append(defs, types.AttributeDefinition{
				AttributeName: aws.String(attr), AttributeType: types.ScalarAttributeTypeS,
			})
		}
		_, err := ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName: aws.String(spec.name),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(spec.keyAttr), KeyType: types.KeyTypeHash},
			},
			AttributeDefinitions:   defs,
			GlobalSecondaryIndexes: spec.indexes,
			BillingMode:            types.BillingModePayPerRequest,
		})
		if err != nil {
			return fmt.Errorf("create table %s: %w", spec.name, err)
		}
	}

	for _, spec := range specs {
		waiter := dynamodb.NewTableExistsWaiter(ddbClient)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(spec.name),
		}, 2*time.Minute); err != nil {
			return fmt.Errorf("wait for table %s: %w", spec.name, err)
		}
	}

	fmt.Println("All tables created and active")
	return nil
}

func deleteTables(ctx context.Context) error {
	fmt.Println("Deleting test tables...")

	for _, name := range []string{tables.Posts, tables.Comments, tables.Likes, tables.Notifications, tables.Users} {
		_, err := ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{
			TableName: aws.String(name),
		})
		if err != nil {
			fmt.Printf("Warning: failed to delete table %s: %v\n", name, err)
		}
	}

	fmt.Println("Tables deleted")
	return nil
}

// eventually retries fn until it returns true, to absorb GSI propagation
// delay.
func eventually(t *testing.T, fn func() (bool, error)) {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for {
		ok, err := fn()
		if err != nil {
			t.Fatalf("eventually: %v", err)
		}
		if ok {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func newPost(t *testing.T, author string) social.Post {
	t.Helper()
	post := social.Post{
		ID:           uuid.New().String(),
		AuthorHandle: author,
		Body:         "e2e post",
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	item, err := attributevalue.MarshalMap(post)
	if err != nil {
		t.Fatalf("marshal post: %v", err)
	}
	if err := testStore.Put(context.Background(), tables.Posts, item); err != nil {
		t.Fatalf("put post: %v", err)
	}
	return post
}

// --- Document Tests ---

func TestPutAndGet(t *testing.T) {
	ctx := context.Background()
	post := newPost(t, "alice")

	doc, err := testStore.Get(ctx, tables.Posts, store.StringKey(social.AttrID, post.ID))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	var got social.Post
	if err := attributevalue.UnmarshalMap(doc, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != post {
		t.Errorf("expected %+v, got %+v", post, got)
	}
}

func TestGet_NotFound(t *testing.T) {
	_, err := testStore.Get(context.Background(), tables.Posts,
		store.StringKey(social.AttrID, "nonexistent-id"))
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	ctx := context.Background()
	post := newPost(t, "alice")

	like := social.Like{
		ID:           key.LikeID(post.ID, "bob"),
		PostID:       post.ID,
		AuthorHandle: "bob",
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	item, err := attributevalue.MarshalMap(like)
	if err != nil {
		t.Fatalf("marshal like: %v", err)
	}

	if err := testStore.Create(ctx, tables.Likes, social.AttrID, item); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if err := testStore.Create(ctx, tables.Likes, social.AttrID, item); !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

// --- Counter Tests ---

func TestAddToCounter(t *testing.T) {
	ctx := context.Background()
	post := newPost(t, "alice")
	postKey := store.StringKey(social.AttrID, post.ID)

	for i := 0; i < 3; i++ {
		if err := testStore.AddToCounter(ctx, tables.Posts, postKey, social.FieldLikeCount, 1); err != nil {
			t.Fatalf("increment %d failed: %v", i, err)
		}
	}
	if err := testStore.AddToCounter(ctx, tables.Posts, postKey, social.FieldLikeCount, -1); err != nil {
		t.Fatalf("decrement failed: %v", err)
	}

	doc, err := testStore.Get(ctx, tables.Posts, postKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	var got social.Post
	if err := attributevalue.UnmarshalMap(doc, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.LikeCount != 2 {
		t.Errorf("expected likeCount 2, got %d", got.LikeCount)
	}
}

func TestAddToCounter_MissingDocument(t *testing.T) {
	err := testStore.AddToCounter(context.Background(), tables.Posts,
		store.StringKey(social.AttrID, "nonexistent-id"), social.FieldLikeCount, 1)
	if !errors.Is(err, store.ErrConditionFailed) {
		t.Errorf("expected ErrConditionFailed, got %v", err)
	}
}

func TestAddToCounter_FloorAtZero(t *testing.T) {
	ctx := context.Background()
	post := newPost(t, "alice")
	postKey := store.StringKey(social.AttrID, post.ID)

	err := testStore.AddToCounter(ctx, tables.Posts, postKey, social.FieldLikeCount, -1)
	if !errors.Is(err, store.ErrConditionFailed) {
		t.Errorf("expected ErrConditionFailed decrementing below zero, got %v", err)
	}
}

// --- Index and Batch Tests ---

func TestQueryIndexAndTransactDelete(t *testing.T) {
	ctx := context.Background()
	post := newPost(t, "alice")

	var keys []store.Key
	for _, author := range []string{"bob", "carol", "dave"} {
		like := social.Like{
			ID:           key.LikeID(post.ID, author),
			PostID:       post.ID,
			AuthorHandle: author,
			CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		}
		item, err := attributevalue.MarshalMap(like)
		if err != nil {
			t.Fatalf("marshal like: %v", err)
		}
		if err := testStore.Put(ctx, tables.Likes, item); err != nil {
			t.Fatalf("put like: %v", err)
		}
		keys = append(keys, store.StringKey(social.AttrID, like.ID))
	}

	eventually(t, func() (bool, error) {
		docs, err := testStore.QueryIndex(ctx, tables.Likes, store.PostIndex, social.AttrPostID, post.ID)
		if err != nil {
			return false, err
		}
		return len(docs) == 3, nil
	})

	if err := testStore.TransactDelete(ctx, tables.Likes, keys); err != nil {
		t.Fatalf("TransactDelete failed: %v", err)
	}

	eventually(t, func() (bool, error) {
		docs, err := testStore.QueryIndex(ctx, tables.Likes, store.PostIndex, social.AttrPostID, post.ID)
		if err != nil {
			return false, err
		}
		return len(docs) == 0, nil
	})
}

func TestTransactSetField(t *testing.T) {
	ctx := context.Background()

	var keys []store.Key
	for i := 0; i < 2; i++ {
		n := social.Notification{
			ID:              uuid.New().String(),
			RecipientHandle: "alice",
			SenderHandle:    "bob",
			PostID:          uuid.New().String(),
			Type:            social.NotificationLike,
			CreatedAt:       time.Now().UTC().Format(time.RFC3339),
		}
		item, err := attributevalue.MarshalMap(n)
		if err != nil {
			t.Fatalf("marshal notification: %v", err)
		}
		if err := testStore.Put(ctx, tables.Notifications, item); err != nil {
			t.Fatalf("put notification: %v", err)
		}
		keys = append(keys, store.StringKey(social.AttrID, n.ID))
	}

	read, err := attributevalue.Marshal(true)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := testStore.TransactSetField(ctx, tables.Notifications, keys, social.FieldRead, read); err != nil {
		t.Fatalf("TransactSetField failed: %v", err)
	}

	for _, k := range keys {
		doc, err := testStore.Get(ctx, tables.Notifications, k)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		var n social.Notification
		if err := attributevalue.UnmarshalMap(doc, &n); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if !n.Read {
			t.Errorf("expected notification %s marked read", n.ID)
		}
	}
}

func TestDeleteExisting_Missing(t *testing.T) {
	err := testStore.DeleteExisting(context.Background(), tables.Likes,
		store.StringKey(social.AttrID, "nonexistent-id"))
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
