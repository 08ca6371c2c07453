package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"go.uber.org/zap"

	"github.com/troikatech/taxi-voicebot/internal/api/handlers"
	"github.com/troikatech/taxi-voicebot/internal/call"
	"github.com/troikatech/taxi-voicebot/internal/dispatch"
	"github.com/troikatech/taxi-voicebot/pkg/ari"
	"github.com/troikatech/taxi-voicebot/pkg/env"
	"github.com/troikatech/taxi-voicebot/pkg/logger"
	"github.com/troikatech/taxi-voicebot/pkg/middleware"
	"github.com/troikatech/taxi-voicebot/pkg/mongo"
	"github.com/troikatech/taxi-voicebot/pkg/otel"
	"github.com/troikatech/taxi-voicebot/pkg/storage"
	"github.com/troikatech/taxi-voicebot/pkg/utils"
)

// VoicebotServer combines the call controller and the ops API.
type VoicebotServer struct {
	cfg         *env.Config
	ariClient   *ari.Client
	mongoClient *mongo.Client
	redisClient *redis.Client
	soundStore  *storage.SoundStore
	registry    *call.Registry
	dispatcher  *dispatch.Dispatcher
	transcriber call.Transcriber
	synthesizer call.Synthesizer
	extractor   call.Extractor
	script      call.Script
	handler     *handlers.Handler

	baseCtx context.Context
}

func main() {
	cfg, err := env.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.LogLevel, cfg.AppEnv); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize OpenTelemetry if enabled
	if cfg.OTELEnabled {
		shutdown, err := otel.InitTracing("taxi-voicebot", "1.0.0", cfg.OTELEndpoint)
		if err != nil {
			logger.Log.Warn("Failed to initialize OpenTelemetry", zap.Error(err))
		} else {
			defer shutdown()
			logger.Log.Info("OpenTelemetry tracing enabled", zap.String("endpoint", cfg.OTELEndpoint))
		}
	}

	logger.Log.Info("Starting Taxi Voicebot (call controller + ops API)",
		zap.String("env", cfg.AppEnv),
		zap.String("port", cfg.AppPort),
		zap.String("ari_app", cfg.ARIAppName),
	)

	// Initialize Redis
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Log.Fatal("Failed to parse Redis URL", zap.Error(err))
	}
	redisClient := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Log.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// Initialize MongoDB
	mongoClient, err := mongo.NewClient(cfg.MongoURI, cfg.DBName)
	if err != nil {
		logger.Log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(ctx); err != nil {
			logger.Log.Warn("Failed to disconnect MongoDB", zap.Error(err))
		}
	}()

	// Sounds directory for synthesized prompts
	soundStore, err := storage.NewSoundStore(
		cfg.ARISoundsDir,
		filepath.Base(cfg.ARISoundsDir),
		cfg.AudioFormat,
	)
	if err != nil {
		logger.Log.Fatal("Failed to create sound store", zap.Error(err))
	}

	speechTimeout := time.Duration(cfg.SpeechTimeoutMs) * time.Millisecond

	// Speech-to-text
	var transcriber call.Transcriber
	switch cfg.STTProvider {
	case "deepgram":
		transcriber = speechDeepgram(cfg, speechTimeout)
	default:
		transcriber = speechWhisper(cfg, speechTimeout)
	}
	logger.Log.Info("STT service initialized", zap.String("provider", cfg.STTProvider))

	// Text-to-speech
	synthesizer := newSynthesizer(cfg, speechTimeout)
	if synthesizer.IsAvailable() {
		logger.Log.Info("TTS service initialized", zap.String("model", cfg.TTSModel))
	} else {
		logger.Log.Warn("TTS service unavailable - set OPENAI_API_KEY")
	}

	// Slot extraction
	extractor := newExtractor(cfg)
	if extractor.IsAvailable() {
		logger.Log.Info("Extractor initialized", zap.String("model", cfg.ExtractModel))
	}

	dispatcher := dispatch.NewDispatcher(
		mongoClient.Collection(dispatch.CallsCollection),
		mongoClient.Collection(dispatch.BookingsCollection),
		redisClient,
		cfg.DispatchQueue,
		logger.Log,
	)

	registry := call.NewRegistry(logger.Log)

	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	server := &VoicebotServer{
		cfg:         cfg,
		mongoClient: mongoClient,
		redisClient: redisClient,
		soundStore:  soundStore,
		registry:    registry,
		dispatcher:  dispatcher,
		transcriber: transcriber,
		synthesizer: synthesizer,
		extractor:   extractor,
		script:      buildScript(cfg),
		baseCtx:     appCtx,
	}

	// Telephony client; the server itself is the event handler so incoming
	// calls launch sessions.
	server.ariClient = ari.NewClient(
		cfg.ARIBaseURL,
		cfg.ARIUsername,
		cfg.ARIPassword,
		cfg.ARIAppName,
		server,
		logger.Log,
	)
	go func() {
		if err := server.ariClient.Listen(appCtx); err != nil && appCtx.Err() == nil {
			logger.Log.Error("ARI event listener exited", zap.Error(err))
		}
	}()

	server.handler = handlers.NewHandler(cfg, redisClient, mongoClient, registry)

	router := server.setupRouter()

	srv := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Log.Info("Taxi Voicebot listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down server...")

	// Ask live sessions to wrap up, then stop the event loop.
	registry.StopAll("server_shutdown")
	stopApp()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}

// CallStarted launches a session for a channel that entered the application.
func (s *VoicebotServer) CallStarted(channelID, callerNumber string) {
	logger.Log.Info("incoming call",
		zap.String("call_id", channelID),
		zap.String("caller", utils.MaskPhoneNumber(callerNumber)),
	)

	channel := s.ariClient.Channel(channelID)
	audio := call.NewAudioAdapter(
		channel,
		s.ariClient.StoredRecordings(),
		s.soundStore,
		call.AudioConfig{
			Format:      s.cfg.AudioFormat,
			SampleRate:  s.cfg.SampleRate,
			MaxDuration: time.Duration(s.cfg.MaxRecordSeconds) * time.Second,
			MaxSilence:  time.Duration(s.cfg.MaxSilenceMs) * time.Millisecond,
		},
		logger.Log,
	)

	session := call.NewSession(
		channelID,
		callerNumber,
		s.script,
		s.cfg.MaxRetries,
		s.cfg.TTSVoice,
		s.cfg.SampleRate,
		channel,
		audio,
		s.transcriber,
		s.synthesizer,
		s.extractor,
		s.dispatcher,
		logger.Log,
	)
	s.registry.Add(session)

	go func() {
		defer s.registry.Remove(channelID)
		session.Run(s.baseCtx)
	}()
}

// CallEnded stops the session for a channel that left the application,
// typically a caller hangup.
func (s *VoicebotServer) CallEnded(channelID string) {
	s.registry.Stop(channelID, "caller_hangup")
}

func (s *VoicebotServer) setupRouter() *gin.Engine {
	if s.cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.TraceMiddleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestSizeLimit(1 << 20)) // 1 MB limit

	if s.cfg.OTELEnabled {
		router.Use(otel.GinMiddleware())
	}

	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("[%s] %s %s %d %s\n",
			param.TimeStamp.Format(time.RFC3339),
			param.Method,
			param.Path,
			param.StatusCode,
			param.Latency,
		)
	}))

	// CORS
	corsConfig := cors.DefaultConfig()
	if s.cfg.CORSAllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{s.cfg.CORSAllowedOrigins}
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	rateLimiter := middleware.NewRateLimiter(s.redisClient, s.cfg.APIRateLimitRPM)

	// Health and metrics
	router.GET("/health", s.handler.HealthCheck)
	router.GET("/metrics", s.handler.GetMetrics)
	router.GET("/metrics/prometheus", s.handler.GetPrometheusMetrics)

	// Operator API
	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(s.cfg.JWTSecret))
	api.Use(rateLimiter.Middleware())
	{
		calls := api.Group("/calls")
		{
			calls.GET("", s.handler.ListActiveCalls)
			calls.POST("/:call_id/stop", s.handler.StopCall)
		}
		api.GET("/bookings", s.handler.ListBookings)
	}

	return router
}

func buildScript(cfg *env.Config) call.Script {
	script := call.DefaultScript()

	if cfg.GreetingText != "" {
		script.Greeting = cfg.GreetingText
	}
	if cfg.RetryPrefixText != "" {
		script.RetryPrefix = cfg.RetryPrefixText
	}
	if cfg.ApologyText != "" {
		script.Apology = cfg.ApologyText
	}
	if cfg.RestartText != "" {
		script.Restart = cfg.RestartText
	}
	if cfg.DoneText != "" {
		script.Done = cfg.DoneText
	}

	// Reorder the questions per configuration. Validation already ensured
	// every name is known and unique.
	byName := map[string]call.FieldSpec{}
	for _, f := range script.Fields {
		byName[f.Name] = f
	}
	ordered := make([]call.FieldSpec, 0, len(cfg.FieldOrder))
	for _, name := range cfg.FieldOrder {
		ordered = append(ordered, byName[name])
	}
	script.Fields = ordered

	return script
}
