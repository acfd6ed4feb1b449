package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"podreseller_back_end/internal/config"
)

const (
	ProductsCollection = "products"
	CartsCollection    = "carts"
	UsersCollection    = "users"
	PaymentsCollection = "payments"
	CleanupsCollection = "cart_cleanups"
)

const connectTimeout = 30 * time.Second

// Mongo bundles the client with the storefront database.
type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// =============================================
// MONGODB
// =============================================

// ConnectMongo opens the client with the stable server API and pings the deployment.
func ConnectMongo(ctx context.Context, cfg config.Config) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	serverAPI := options.ServerAPI(options.ServerAPIVersion1).
		SetStrict(true).
		SetDeprecationErrors(true)

	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetServerAPIOptions(serverAPI).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	slog.Info("connected to MongoDB", "database", cfg.DBName)
	return &Mongo{Client: client, DB: client.Database(cfg.DBName)}, nil
}

func (m *Mongo) Collection(name string) *mongo.Collection {
	return m.DB.Collection(name)
}

func (m *Mongo) Disconnect(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the handlers rely on. The unique email
// index is what makes user creation idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		}},
		ProductsCollection: {
			{Keys: bson.D{{Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "sellerName", Value: 1}}},
		},
		CartsCollection:    {{Keys: bson.D{{Key: "email", Value: 1}}}},
		PaymentsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}},
			{Keys: bson.D{{Key: "transactionId", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
		CleanupsCollection: {{Keys: bson.D{{Key: "createdAt", Value: 1}}}},
	}

	for coll, models := range indexes {
		names, err := db.Collection(coll).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
		slog.Info("indexes ready", "collection", coll, "indexes", names)
	}
	return nil
}

// =============================================
// REDIS
// =============================================

// ConnectRedis returns nil without error when no address is configured.
func ConnectRedis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		slog.Warn("REDIS_ADDR not set, role cache and cart sync disabled")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	slog.Info("connected to Redis", "addr", cfg.RedisAddr)
	return client, nil
}

// =============================================
// ELASTICSEARCH
// =============================================

// ConnectElastic returns nil without error when no URL is configured.
func ConnectElastic(cfg config.Config) (*elasticsearch.Client, error) {
	if cfg.ElasticURL == "" {
		slog.Warn("ELASTIC_URL not set, search falls back to MongoDB")
		return nil, nil
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.ElasticURL},
		Username:  cfg.ElasticUser,
		Password:  cfg.ElasticPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch info: %s", res.Status())
	}

	slog.Info("connected to Elasticsearch", "url", cfg.ElasticURL)
	return client, nil
}

// =============================================
// MINIO
// =============================================

// ConnectMinIO returns nil without error when no endpoint is configured. The
// bucket is created on first use.
func ConnectMinIO(ctx context.Context, cfg config.Config) (*minio.Client, error) {
	if cfg.MinioEndpoint == "" {
		slog.Warn("MINIO_ENDPOINT not set, image upload disabled")
		return nil, nil
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
		slog.Info("bucket created", "bucket", cfg.MinioBucket)
	}

	slog.Info("connected to MinIO", "endpoint", cfg.MinioEndpoint)
	return client, nil
}
