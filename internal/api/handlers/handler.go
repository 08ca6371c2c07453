package handlers

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/troikatech/taxi-voicebot/internal/call"
	"github.com/troikatech/taxi-voicebot/pkg/env"
	"github.com/troikatech/taxi-voicebot/pkg/logger"
	"github.com/troikatech/taxi-voicebot/pkg/mongo"
)

type Handler struct {
	cfg         *env.Config
	redisClient *redis.Client
	mongoClient *mongo.Client
	registry    *call.Registry
	logger      *zap.Logger
}

func NewHandler(
	cfg *env.Config,
	redisClient *redis.Client,
	mongoClient *mongo.Client,
	registry *call.Registry,
) *Handler {
	return &Handler{
		cfg:         cfg,
		redisClient: redisClient,
		mongoClient: mongoClient,
		registry:    registry,
		logger:      logger.Log,
	}
}
