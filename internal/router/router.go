// internal/router/router.go
package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/config"
	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/handlers"
	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/middleware"
	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/services"
	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/store"
	"github.com/Kavithma-Dharmathilake/CarSaleWebApp/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) (*gin.Engine, error) {
	carStore := store.NewGormCarStore(db)
	transactionStore := store.NewGormTransactionStore(db)

	authService := services.NewAuthService(db, cfg)
	carService := services.NewCarService(carStore)
	transactionService := services.NewTransactionService(transactionStore, carStore)
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage service: %w", err)
	}

	utils.SetJWTSecret(cfg.JWT.SecretKey)

	return Build(cfg, authService, carService, transactionService, storageService), nil
}

// Build wires handlers onto a fresh engine. Split from Initialize so tests can
// inject services backed by in-memory stores.
func Build(cfg *config.Config, authService *services.AuthService, carService *services.CarService, transactionService *services.TransactionService, storageService *services.StorageService) *gin.Engine {
	authHandler := handlers.NewAuthHandler(authService)
	carHandler := handlers.NewCarHandler(carService, storageService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)

	limiters := middleware.NewRateLimiters(cfg.RateLimit)

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(limiters.General())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", limiters.Auth(), authHandler.Register)
			auth.POST("/login", limiters.Auth(), authHandler.Login)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
			auth.PUT("/profile", middleware.AuthRequired(), authHandler.UpdateProfile)
			auth.PUT("/password", middleware.AuthRequired(), authHandler.ChangePassword)
		}

		cars := api.Group("/cars")
		{
			cars.GET("", middleware.OptionalAuth(), carHandler.GetCars)
			cars.GET("/featured", carHandler.GetFeaturedCars)
			cars.GET("/filters", carHandler.GetFilterOptions)
			cars.GET("/:id", middleware.OptionalAuth(), carHandler.GetCar)

			admin := cars.Group("")
			admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
			{
				admin.GET("/stats", carHandler.GetStatistics)
				admin.POST("", carHandler.CreateCar)
				admin.PUT("/:id", carHandler.UpdateCar)
				admin.PUT("/:id/availability", carHandler.SetAvailability)
				admin.DELETE("/:id", carHandler.DeleteCar)
				admin.POST("/upload-image", limiters.Upload(), carHandler.UploadImage)
			}
		}

		transactions := api.Group("/transactions")
		transactions.Use(middleware.AuthRequired())
		{
			transactions.POST("", transactionHandler.CreateTransaction)
			transactions.GET("/user/:userId", transactionHandler.GetUserTransactions)
			transactions.GET("/:id", transactionHandler.GetTransaction)
			transactions.PUT("/:id/complete", transactionHandler.CompleteTransaction)
			transactions.PUT("/:id/cancel", transactionHandler.CancelTransaction)

			admin := transactions.Group("")
			admin.Use(middleware.AdminRequired())
			{
				admin.GET("", transactionHandler.GetTransactions)
				admin.GET("/stats", transactionHandler.GetStatistics)
				admin.POST("/:id/refund", transactionHandler.ProcessRefund)
			}
		}
	}

	return r
}
