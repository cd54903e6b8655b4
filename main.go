package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"linkup-service/internal/db"
	"linkup-service/internal/geo"
	"linkup-service/internal/graph"
	"linkup-service/internal/handlers"
	"linkup-service/internal/match"
	"linkup-service/internal/middleware"
	"linkup-service/internal/observability"
	"linkup-service/internal/rabbitmq"
	"linkup-service/internal/repositories"
	"linkup-service/internal/telemetry"
)

const serviceName = "linkup-service"

func main() {
	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing, err := observability.InitTracing(context.Background(), serviceName, getEnv("OTLP_ENDPOINT", ""))
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	publisher := rabbitmq.NewPublisher(getEnv("AMQP_URL", ""), getEnv("AMQP_EXCHANGE", "linkup.events"))
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))

	audit := telemetry.NewAuditEmitter(publisher, "audit.linkup", serviceName, getEnv("ENVIRONMENT", "dev"))

	connections := graph.NewClient(getEnv("GRAPH_SERVICE_URL", ""))

	postRepo := repositories.NewPostRepo(database)
	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	geoIndex := geo.NewIndex()
	if err := warmGeoIndex(postRepo, geoIndex); err != nil {
		log.Fatalf("failed to warm geo index: %v", err)
	}
	log.Printf("geo index warmed entries=%d", geoIndex.Len())

	coordinator := match.NewCoordinator(chatRepo, audit)

	postHandler := handlers.NewPostHandler(postRepo, geoIndex, connections, coordinator, audit)
	chatHandler := handlers.NewChatHandler(chatRepo, messageRepo, audit)

	authenticator := middleware.NewAuthenticator(getEnv("JWT_SECRET", "dev-secret"), getEnv("JWT_ISSUER", "linkup-auth"))
	authMiddleware := middleware.AuthMiddleware(authenticator)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(otelgin.Middleware(serviceName))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/posts", authMiddleware, postHandler.CreatePost)
	router.GET("/posts", authMiddleware, postHandler.DiscoverPosts)
	router.GET("/posts/:post_id", authMiddleware, postHandler.GetPost)
	router.POST("/posts/:post_id/replies", authMiddleware, postHandler.SubmitReply)
	router.PATCH("/posts/:post_id/replies/:user_id", authMiddleware, postHandler.ResolveReply)

	router.POST("/chats", authMiddleware, chatHandler.CreateChat)
	router.GET("/chats", authMiddleware, chatHandler.ListChats)
	router.GET("/chats/:chat_id/messages", authMiddleware, chatHandler.GetChatMessages)
	router.POST("/chats/:chat_id/messages", authMiddleware, chatHandler.PostChatMessage)
	router.POST("/chats/:chat_id/read", authMiddleware, chatHandler.MarkRead)

	port := getEnv("PORT", "8086")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// warmGeoIndex loads the location of every unexpired post so radius queries
// work from the first request after a restart.
func warmGeoIndex(postRepo repositories.PostRepository, index *geo.Index) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	locations, err := postRepo.ActiveLocations(ctx, time.Now())
	if err != nil {
		return err
	}
	for _, loc := range locations {
		index.Insert(loc.PostID, loc.Point)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
