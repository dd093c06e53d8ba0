package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskhub/config"
	"taskhub/handlers"
	"taskhub/logging"
	"taskhub/models"
	"taskhub/repositories"
	"taskhub/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type stores struct {
	tasks    repositories.TaskRepository
	channels repositories.ChannelRepository
	workLogs repositories.WorkLogRepository
	users    repositories.UserDirectory
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: %v", err)
	}
	logging.InitLogger(logging.Options{File: cfg.LogFile, Level: cfg.LogLevel})
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Tasks Hub...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, cleanup := openStores(ctx, cfg)
	defer cleanup()

	var sinks []services.Sink
	if cfg.NotificationsBackend == "cassandra" {
		notifications, err := repositories.NewNotificationRepo(cfg.CassandraHosts, cfg.CassandraKeyspace, logging.Logger)
		if err != nil {
			logging.Logger.Fatalf("Event ID: CASSANDRA_INIT_FAILED, Description: %v", err)
		}
		defer notifications.CloseSession()
		if err := notifications.CreateTable(); err != nil {
			logging.Logger.Fatalf("Event ID: CASSANDRA_TABLE_FAILED, Description: %v", err)
		}
		sinks = append(sinks, notifications)
	}
	broadcaster := services.NewBroadcaster(sinks...)
	defer broadcaster.Close()

	aliases := services.DefaultDepartmentAliases()
	if cfg.DepartmentAliasesFile != "" {
		aliases, err = services.LoadDepartmentAliases(cfg.DepartmentAliasesFile)
		if err != nil {
			logging.Logger.Fatalf("Event ID: ALIASES_LOAD_FAILED, Description: %v", err)
		}
		logging.Logger.Infof("Event ID: ALIASES_LOADED, Description: Department aliases loaded from %s", cfg.DepartmentAliasesFile)
	}

	retry := services.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.RetryMaxAttempts
	retry.InitialInterval = cfg.RetryInitialInterval

	policy := services.DefaultSyncPolicy()
	policy.Membership = services.MembershipPolicy(cfg.SyncMembershipPolicy)
	policy.ChannelType = models.ChannelType(cfg.SyncChannelType)
	if err := policy.Validate(); err != nil {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: %v", err)
	}

	channelService := services.NewChannelService(st.channels, st.users, broadcaster, policy, retry)
	ledger := services.NewReworkLedger(st.workLogs, broadcaster, retry, time.Now)
	taskService := services.NewTaskService(st.tasks, st.workLogs, st.users, broadcaster,
		services.WithChannelProvisioner(channelService),
		services.WithReworkLedger(ledger),
		services.WithAliases(aliases),
		services.WithRetryPolicy(retry),
	)

	if cfg.SyncOnStartup {
		startupSync(channelService, cfg.GlobalChannelName)
	}

	router := handlers.NewRouter(
		handlers.NewTaskHandler(taskService),
		handlers.NewChannelHandler(channelService),
		handlers.NewWorkLogHandler(ledger),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           handlers.EnableCORS(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Errorf("Event ID: SERVER_SHUTDOWN_ERROR, Description: %v", err)
	}
	logging.Logger.Info("Event ID: SERVICE_STOP, Description: Tasks Hub stopped.")
}

func openStores(ctx context.Context, cfg *config.Config) (stores, func()) {
	if cfg.StoreBackend == "memory" {
		logging.Logger.Warn("Event ID: MEMORY_STORE, Description: Using in-memory stores; data is lost on exit")
		return stores{
			tasks:    repositories.NewMemoryTaskRepo(),
			channels: repositories.NewMemoryChannelRepo(),
			workLogs: repositories.NewMemoryWorkLogRepo(),
			users:    repositories.NewMemoryDirectory(),
		}, func() {}
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: MongoDB connection ping error: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s.", cfg.MongoURI)
	db := client.Database(cfg.MongoDBName)

	taskRepo := repositories.NewTaskMongoRepo(db)
	channelRepo := repositories.NewChannelMongoRepo(db)
	if err := taskRepo.EnsureIndexes(ctx); err != nil {
		logging.Logger.Fatalf("Event ID: DB_INDEX_FAILED, Description: %v", err)
	}
	if err := channelRepo.EnsureIndexes(ctx); err != nil {
		logging.Logger.Fatalf("Event ID: DB_INDEX_FAILED, Description: %v", err)
	}

	st := stores{
		tasks:    taskRepo,
		channels: channelRepo,
		users:    repositories.NewUserMongoDirectory(db),
	}
	closers := []func(){func() { client.Disconnect(context.Background()) }}

	if cfg.WorkLogBackend == "postgres" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			logging.Logger.Fatalf("Event ID: PG_CONNECTION_FAILED, Description: %v", err)
		}
		if err := pool.Ping(ctx); err != nil {
			logging.Logger.Fatalf("Event ID: PG_PING_FAILED, Description: %v", err)
		}
		pgStore := repositories.NewWorkLogPgStore(pool)
		if err := pgStore.EnsureTable(ctx); err != nil {
			logging.Logger.Fatalf("Event ID: PG_TABLE_FAILED, Description: %v", err)
		}
		logging.Logger.Info("Event ID: PG_CONNECTED, Description: Work logs stored in PostgreSQL.")
		st.workLogs = pgStore
		closers = append(closers, pool.Close)
	} else {
		logRepo := repositories.NewWorkLogMongoRepo(db)
		if err := logRepo.EnsureIndexes(ctx); err != nil {
			logging.Logger.Fatalf("Event ID: DB_INDEX_FAILED, Description: %v", err)
		}
		st.workLogs = logRepo
	}

	return st, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}

func startupSync(channels *services.ChannelService, globalName string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if globalName != "" {
		if _, err := channels.EnsureGlobalChannel(ctx, globalName); err != nil {
			logging.Logger.Errorf("Event ID: GLOBAL_CHANNEL_FAILED, Description: %v", err)
		}
	}
	if _, err := channels.SyncDepartmentChannels(ctx); err != nil {
		logging.Logger.Errorf("Event ID: STARTUP_SYNC_FAILED, Description: %v", err)
	}
}
