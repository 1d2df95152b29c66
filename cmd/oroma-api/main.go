package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oromamedia/oroma-tv/backend/internal/analytics"
	"github.com/oromamedia/oroma-tv/backend/internal/auth"
	"github.com/oromamedia/oroma-tv/backend/internal/config"
	"github.com/oromamedia/oroma-tv/backend/internal/database"
	"github.com/oromamedia/oroma-tv/backend/internal/live"
	"github.com/oromamedia/oroma-tv/backend/internal/logging"
	"github.com/oromamedia/oroma-tv/backend/internal/moderation"
	"github.com/oromamedia/oroma-tv/backend/internal/news"
	"github.com/oromamedia/oroma-tv/backend/internal/ratelimit"
	"github.com/oromamedia/oroma-tv/backend/internal/requests"
	"github.com/oromamedia/oroma-tv/backend/internal/server"
	"github.com/oromamedia/oroma-tv/backend/internal/streamstatus"
	"github.com/oromamedia/oroma-tv/backend/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	tokenIssuerName   = "oroma-api"
	tokenAudienceName = "oroma-admin"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "oroma-api",
		Short: "Oroma TV live interaction backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("redis-addr", defaults.GetString("redis.addr"), "Redis address for rate limiting (empty uses SQLite)")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Token signing secret (overrides env)")
	cmd.PersistentFlags().String("admin-username", defaults.GetString("auth.admin_username"), "Admin account username")
	cmd.PersistentFlags().String("admin-password-hash", "", "Bcrypt hash of the admin password (overrides env)")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("auth.token_ttl_minutes"), "Admin token TTL in minutes")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "redis.addr", "redis-addr")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
	bindFlag(cmd, "auth.admin_username", "admin-username")
	bindFlag(cmd, "auth.admin_password_hash", "admin-password-hash")
	bindFlag(cmd, "auth.token_ttl_minutes", "token-ttl-minutes")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	telemetry.Init()

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	idProvider := live.NewUUIDProvider()

	var limiter ratelimit.Limiter
	if appConfig.RedisAddr != "" {
		limiter, err = ratelimit.NewRedisLimiter(redis.NewClient(&redis.Options{Addr: appConfig.RedisAddr}))
		if err != nil {
			return err
		}
		logger.Info("rate limiting via redis", zap.String("address", appConfig.RedisAddr))
	} else {
		limiter, err = ratelimit.NewSQLLimiter(db, time.Now)
		if err != nil {
			return err
		}
	}

	recorder, err := analytics.NewRecorder(analytics.RecorderConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	newStore := func(kind live.Kind, retention live.RetentionPolicy) (*live.Store, error) {
		return live.NewStore(live.StoreConfig{
			Database:   db,
			Clock:      time.Now,
			IDProvider: idProvider,
			Kind:       kind,
			Retention:  retention,
		})
	}

	chatStore, err := newStore(live.KindChat, live.RetentionPolicy{MaxCount: 200})
	if err != nil {
		return err
	}
	commentStore, err := newStore(live.KindComment, live.RetentionPolicy{MaxAge: 24 * time.Hour})
	if err != nil {
		return err
	}
	reactionStore, err := newStore(live.KindReaction, live.RetentionPolicy{MaxAge: time.Hour})
	if err != nil {
		return err
	}
	streamReactionStore, err := newStore(live.KindStreamReaction, live.RetentionPolicy{MaxAge: 24 * time.Hour})
	if err != nil {
		return err
	}

	chatGate, err := live.NewGate(live.GateConfig{
		Store:            chatStore,
		Limiter:          limiter,
		Rule:             ratelimit.Rule{Limit: 10, Window: time.Minute},
		Scope:            live.ScopeOrigin,
		Filter:           moderation.NewFilter(appConfig.ChatPolicy, moderation.ChatBannedWords),
		RequireUsername:  true,
		RateLimitMessage: "Too many messages. Please wait a moment.",
		Analytics:        recorder,
		AnalyticsEvent:   "chat_message",
		Logger:           logger,
	})
	if err != nil {
		return err
	}
	commentGate, err := live.NewGate(live.GateConfig{
		Store:            commentStore,
		Limiter:          limiter,
		Rule:             ratelimit.Rule{Limit: 1, Window: 10 * time.Second},
		Scope:            live.ScopeSession,
		Filter:           moderation.NewFilter(appConfig.CommentPolicy, moderation.CommentBannedWords),
		RequireUsername:  true,
		RateLimitMessage: "Please wait before sending another message",
		Analytics:        recorder,
		AnalyticsEvent:   "live_comment",
		Logger:           logger,
	})
	if err != nil {
		return err
	}
	reactionGate, err := live.NewGate(live.GateConfig{
		Store:            reactionStore,
		Limiter:          limiter,
		Rule:             ratelimit.Rule{Limit: 1, Window: 2 * time.Second},
		Scope:            live.ScopeSession,
		AllowedSymbols:   live.LiveReactionSymbols,
		RateLimitMessage: "Please wait before sending another reaction",
		Analytics:        recorder,
		AnalyticsEvent:   "live_reaction",
		Logger:           logger,
	})
	if err != nil {
		return err
	}
	streamReactionGate, err := live.NewGate(live.GateConfig{
		Store:            streamReactionStore,
		Limiter:          limiter,
		Rule:             ratelimit.Rule{Limit: 5, Window: time.Minute},
		Scope:            live.ScopeOrigin,
		AllowedSymbols:   live.StreamReactionSymbols,
		RateLimitMessage: "Too many reactions. Please wait a moment.",
		Analytics:        recorder,
		AnalyticsEvent:   "stream_reaction",
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	tracker, err := live.NewTracker(live.TrackerConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	requestService, err := requests.NewService(requests.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Limiter:    limiter,
		Rule:       ratelimit.Rule{Limit: 3, Window: time.Hour},
		Analytics:  recorder,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	newsService, err := news.NewService(news.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
		Analytics:  recorder,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	statusService, err := streamstatus.NewService(streamstatus.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: idProvider,
	})
	if err != nil {
		return err
	}

	tokenIssuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        tokenIssuerName,
		Audience:      tokenAudienceName,
		TokenTTL:      appConfig.TokenTTL,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Chat:            chatGate,
		Comments:        commentGate,
		LiveReactions:   reactionGate,
		StreamReactions: streamReactionGate,
		Presence:        tracker,
		Requests:        requestService,
		News:            newsService,
		StreamStatus:    statusService,
		Tokens:          tokenIssuer,
		Admin: auth.AdminCredentials{
			Username:     appConfig.AdminUsername,
			PasswordHash: appConfig.AdminPasswordHash,
		},
		Analytics: recorder,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
