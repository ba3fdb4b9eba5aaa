package main

import (
	"log"
	"strings"

	"github.com/andydwyer/flix/internal/config"
	"github.com/andydwyer/flix/internal/handler"
	"github.com/andydwyer/flix/internal/middleware"
	"github.com/andydwyer/flix/internal/model"
	"github.com/andydwyer/flix/internal/repository"
	"github.com/andydwyer/flix/internal/service"
	"github.com/andydwyer/flix/pkg/database"
	"github.com/andydwyer/flix/pkg/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := database.Connect()
	if err := migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	if cfg.AppEnv == "development" {
		if err := seedAdminUser(db); err != nil {
			log.Fatalf("failed to seed admin user: %v", err)
		}
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		rdb = redis.NewClient(opts)
	} else {
		log.Println("REDIS_URL not set, review cooldowns disabled")
	}

	var posterStorage storage.PosterStorage
	if ps, err := storage.NewCloudinaryStorage(); err != nil {
		log.Printf("poster storage disabled: %v", err)
	} else {
		posterStorage = ps
	}

	var searchSvc service.SearchService
	if cfg.MeiliMasterKey != "" {
		meiliClient := meilisearch.New(cfg.MeiliSearchHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		searchSvc = service.NewMeiliSearchService(meiliClient)
	} else {
		log.Println("MEILI_MASTER_KEY not set, movie search disabled")
	}

	userRepo := repository.NewUserRepository(db)
	movieRepo := repository.NewMovieRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	favouriteRepo := repository.NewFavouriteRepository(db)
	genreRepo := repository.NewGenreRepository(db)

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL)
	authHandler := handler.NewAuthHandler(authService)

	userService := service.NewUserService(userRepo, favouriteRepo)
	userHandler := handler.NewUserHandler(userService)

	movieService := service.NewMovieService(movieRepo, posterStorage, searchSvc)
	movieHandler := handler.NewMovieHandler(movieService)

	reviewService := service.NewReviewService(reviewRepo, movieRepo, rdb, cfg.ReviewCooldown)
	reviewHandler := handler.NewReviewHandler(reviewService)

	favouriteService := service.NewFavouriteService(favouriteRepo, movieRepo)
	favouriteHandler := handler.NewFavouriteHandler(favouriteService)

	genreService := service.NewGenreService(genreRepo)
	genreHandler := handler.NewGenreHandler(genreService)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.AllowedOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	authMiddleware := middleware.NewAuthMiddleware(userRepo, cfg.JWTSecret)

	api := router.Group("/api")
	{
		api.POST("/signup", authHandler.Signup)
		api.POST("/signin", authHandler.Signin)

		// Public catalog
		api.GET("/movies", movieHandler.ListMovies)
		api.GET("/movies/search", movieHandler.SearchMovies)
		api.GET("/movies/filter/:filter", movieHandler.ListMovies)
		api.GET("/movies/:slug", movieHandler.GetMovie)
		api.GET("/movies/:slug/reviews", reviewHandler.ListReviews)
		api.GET("/movies/:slug/fans", favouriteHandler.ListFans)
		api.GET("/genres", genreHandler.ListGenres)
		api.GET("/genres/:id", genreHandler.GetGenre)
	}

	signedIn := api.Group("")
	signedIn.Use(authMiddleware.RequireAuth(), authMiddleware.LoadUser())
	{
		signedIn.GET("/users/:id", userHandler.GetUser)
		signedIn.PUT("/users/:id", userHandler.UpdateUser)
		signedIn.DELETE("/users/:id", userHandler.DeleteUser)

		signedIn.POST("/movies/:slug/reviews", reviewHandler.CreateReview)
		signedIn.DELETE("/movies/:slug/reviews/:id", reviewHandler.DeleteReview)

		signedIn.POST("/movies/:slug/favourite", favouriteHandler.Favourite)
		signedIn.DELETE("/movies/:slug/favourite", favouriteHandler.Unfavourite)

		admin := signedIn.Group("")
		admin.Use(authMiddleware.RequireAdmin())
		{
			admin.GET("/users", userHandler.ListUsers)

			admin.POST("/movies", movieHandler.CreateMovie)
			admin.PUT("/movies/:slug", movieHandler.UpdateMovie)
			admin.DELETE("/movies/:slug", movieHandler.DeleteMovie)

			admin.POST("/genres", genreHandler.CreateGenre)
			admin.PUT("/genres/:id", genreHandler.UpdateGenre)
			admin.DELETE("/genres/:id", genreHandler.DeleteGenre)
		}
	}

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Movie{},
		&model.Review{},
		&model.Favourite{},
		&model.Genre{},
		&model.Characterization{},
	)
}

func seedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.User{}).
		Where("admin = ?", true).
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Admin user already exists, skipping seed")
		return nil
	}

	password := "flicks123"
	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	adminUser := model.User{
		Name:         "Administrator",
		Username:     "admin",
		Email:        "admin@flix.local",
		PasswordHash: string(hashedPasswordBytes),
		Admin:        true,
	}

	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	log.Println("Admin user seeded")
	log.Println("   Email: admin@flix.local")
	log.Println("   Password: flicks123")

	return nil
}
