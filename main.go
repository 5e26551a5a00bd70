package main

import (
	"context"
	"log"
	"strings"

	"github.com/authgate/backend/internal/client"
	"github.com/authgate/backend/internal/config"
	"github.com/authgate/backend/internal/db"
	"github.com/authgate/backend/internal/handler"
	"github.com/authgate/backend/internal/obs"
	"github.com/authgate/backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}
	cfg := config.Load()

	ctx := context.Background()

	pg, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pg.Close()

	if err := pg.EnsureSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}

	creds, err := service.NewCredentialService(cfg.Otp)
	if err != nil {
		log.Fatalf("credential service: %v", err)
	}

	tokens, err := service.NewTokenService(pg, cfg.Auth)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	mailer := client.NewLogMailer()
	media := client.NewLocalMediaStore("")

	authSvc := service.NewAuthService(pg, creds, tokens, mailer)
	userSvc := service.NewUserService(pg, creds, tokens, media)

	var oidcSvc *service.OidcService
	if cfg.Oidc.IssuerURL != "" {
		oidcSvc, err = service.NewOidcService(ctx, pg, authSvc, creds, cfg.Oidc)
		if err != nil {
			log.Fatalf("oidc service: %v", err)
		}
	}

	obs.Init()

	router := gin.Default()
	router.Use(obs.Instrument())
	if cfg.Server.AllowedOrigins != "" {
		router.Use(handler.CORSMiddleware(strings.Split(cfg.Server.AllowedOrigins, ","), true))
	}

	authHandler := handler.NewAuthHandler(authSvc, tokens, oidcSvc)
	userHandler := handler.NewUserHandler(userSvc)

	router.GET("/", handler.Root)
	router.GET("/ping", handler.Ping)
	router.GET("/metrics", obs.Handler())

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register/send-otp", authHandler.SendOtp)
			auth.POST("/register/verify", authHandler.VerifyOtp)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/oidc/url", authHandler.OidcURL)
			auth.POST("/oidc/login", authHandler.OidcLogin)
			auth.GET("/me", handler.AuthMiddleware(tokens), authHandler.Me)
		}

		account := api.Group("/account", handler.AuthMiddleware(tokens))
		{
			account.PATCH("/profile", userHandler.UpdateProfile)
			account.PUT("/password", userHandler.ChangePassword)
			account.POST("/avatar", userHandler.UploadAvatar)
			account.DELETE("", userHandler.DeleteAccount)
			account.POST("/email/send-otp", authHandler.SendEmailChangeOtp)
			account.POST("/email/verify-otp", authHandler.VerifyEmailChangeOtp)
			account.POST("/email/send-new-otp", authHandler.SendNewEmailOtp)
			account.POST("/email/confirm", authHandler.ConfirmEmailChange)
		}

		admin := api.Group("/admin", handler.AuthMiddleware(tokens), handler.RequireAdmin())
		{
			admin.GET("/users", userHandler.ListUsers)
			admin.GET("/users/:id", userHandler.GetUser)
			admin.PUT("/users/:id/role", userHandler.UpdateRole)
			admin.DELETE("/users/:id", userHandler.DeleteUser)
		}
	}

	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
