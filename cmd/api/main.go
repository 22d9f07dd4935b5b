package main

import (
	"context"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"nocturne/internal/adapter/api"
	"nocturne/internal/adapter/api/handler"
	apimiddleware "nocturne/internal/adapter/api/middleware"
	"nocturne/internal/adapter/api/router"
	"nocturne/internal/adapter/repository"
	"nocturne/internal/chatsync"
	"nocturne/internal/domain/entity"
	"nocturne/internal/infrastructure/functions"
	"nocturne/internal/infrastructure/storage"
	"nocturne/internal/infrastructure/websocket"
	"nocturne/internal/usecase"
	"nocturne/pkg/config"
	"nocturne/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var opts []option.ClientOption
	if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(serviceAccountJSON)))
	} else if serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"); serviceAccountPath != "" {
		opts = append(opts, option.WithCredentialsFile(serviceAccountPath))
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"))
	if err != nil {
		log.Fatalf("Failed to initialize Cloud Storage: %v", err)
	}
	defer storageClient.Close()

	chatRepo := repository.NewFirestoreChatRepository(firestoreClient)
	userRepo := repository.NewFirestoreUserRepository(firestoreClient)
	functionsClient := functions.NewClient(cfg.FunctionsBaseURL)

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	sessions := chatsync.NewSessionManager(chatRepo, userRepo, func(userID string, conversations []entity.ConversationSummary) {
		payload, err := handler.EncodeConversations(conversations)
		if err != nil {
			logger.Error("Failed to encode conversation push for user %s: %v", userID, err)
			return
		}
		wsManager.SendToUser(userID, payload)
	})

	chatUseCase := usecase.NewChatUseCase(chatRepo, userRepo, sessions, storageClient, functionsClient)
	userUseCase := usecase.NewUserUseCase(userRepo, storageClient)

	authMiddleware := apimiddleware.NewAuthMiddleware(authClient)
	chatHandler := handler.NewChatHandler(chatUseCase)
	userHandler := handler.NewUserHandler(userUseCase)
	wsHandler := handler.NewWebSocketHandler(wsManager, sessions, authMiddleware)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Validator = api.NewValidator()

	router.Setup(e, authMiddleware, chatHandler, userHandler, wsHandler)

	logger.Info("Starting server on port %s", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
