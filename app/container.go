package app

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/api"
	"github.com/sahilchouksey/coursehub-api/config"
	"github.com/sahilchouksey/coursehub-api/database"
	"github.com/sahilchouksey/coursehub-api/router"
	"github.com/sahilchouksey/coursehub-api/services"
	"github.com/sahilchouksey/coursehub-api/services/cron"
	"github.com/sahilchouksey/coursehub-api/services/inference"
	"github.com/sahilchouksey/coursehub-api/services/payments"
	"github.com/sahilchouksey/coursehub-api/services/storage"
	"github.com/sahilchouksey/coursehub-api/utils/auth"
	"github.com/sahilchouksey/coursehub-api/utils/cache"
	"github.com/sahilchouksey/coursehub-api/utils/middleware"
)

// Collaborators are the external systems the API talks to. Nil fields are
// built from the environment.
type Collaborators struct {
	Store   database.Storage
	Cache   *cache.RedisCache
	Gateway payments.Gateway
	Objects storage.ObjectStore
	LLM     inference.LLM
}

// Container holds the wired application
type Container struct {
	Env    *config.EnvironmentVariable
	Logger *slog.Logger
	Collaborators

	Refresh auth.RefreshRegistry
	Jobs    *cron.CronManager
	Deps    router.Deps
}

// NewContainer fills missing collaborators from env and builds every service
func NewContainer(env *config.EnvironmentVariable, logger *slog.Logger, collab Collaborators) (*Container, error) {
	c := &Container{Env: env, Logger: logger, Collaborators: collab}

	if c.Store == nil {
		store, err := openStore(env)
		if err != nil {
			return nil, err
		}
		c.Store = store
	}
	if err := c.Store.Init(); err != nil {
		return nil, err
	}

	if c.Cache == nil && env.REDIS_URL != "" {
		redisCache, err := cache.NewRedisCache(env.REDIS_URL, env.REDIS_PASSWORD, env.REDIS_DB)
		if err != nil {
			logger.Warn("failed to connect to Redis, brute force protection disabled", "error", err)
		} else {
			c.Cache = redisCache
		}
	}

	if c.Gateway == nil {
		if env.STRIPE_SECRET_KEY != "" {
			c.Gateway = payments.NewStripeGateway(env.STRIPE_SECRET_KEY, env.STRIPE_WEBHOOK_SECRET)
		} else {
			logger.Warn("STRIPE_SECRET_KEY not set, using the sandbox payment gateway")
			c.Gateway = payments.NewSandboxGateway(env.STRIPE_WEBHOOK_SECRET)
		}
	}

	if c.Objects == nil {
		if env.STORAGE_BUCKET != "" {
			s3Store, err := storage.NewS3Store(storage.S3Config{
				AccessKey: env.STORAGE_ACCESS_KEY,
				SecretKey: env.STORAGE_SECRET_KEY,
				Bucket:    env.STORAGE_BUCKET,
				Region:    env.STORAGE_REGION,
				Endpoint:  env.STORAGE_ENDPOINT,
				PublicURL: env.STORAGE_PUBLIC_URL,
			})
			if err != nil {
				return nil, err
			}
			c.Objects = s3Store
		} else {
			logger.Warn("STORAGE_BUCKET not set, uploads are kept in memory")
			c.Objects = storage.NewMemoryStore(env.STORAGE_PUBLIC_URL)
		}
	}

	if c.LLM == nil {
		c.LLM = inference.NewClient(inference.Config{
			APIKey:  env.AI_API_KEY,
			BaseURL: env.AI_BASE_URL,
			Model:   env.AI_MODEL,
			Timeout: env.AI_TIMEOUT,
		})
	}

	if c.Cache != nil {
		c.Refresh = auth.NewRedisRefreshRegistry(c.Cache)
	} else {
		c.Refresh = auth.NewMemoryRefreshRegistry()
	}

	c.wire()
	return c, nil
}

func openStore(env *config.EnvironmentVariable) (database.Storage, error) {
	if env.STORE_DRIVER == "postgres" {
		return database.StartGORM(env)
	}
	return database.NewMemoryStore(), nil
}

func (c *Container) wire() {
	env := c.Env
	policy := auth.RolePolicy{}
	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		AccessSecret:  env.JWT_ACCESS_SECRET,
		RefreshSecret: env.JWT_REFRESH_SECRET,
		AccessExpiry:  env.JWT_ACCESS_TTL,
		RefreshExpiry: env.JWT_REFRESH_TTL,
		Issuer:        env.JWT_ISSUER,
	})
	hasher := auth.NewHasher(env.BCRYPT_COST)

	courseService := services.NewCourseService(c.Store, c.Objects, policy, c.Logger)
	paymentService := services.NewPaymentService(c.Store, c.Gateway, policy, c.Logger)

	if env.CRON_ENABLED {
		c.Jobs = cron.NewCronManager(paymentService, c.Refresh, c.Logger)
	}

	c.Deps = router.Deps{
		Logger: c.Logger,
		Store:  c.Store,
		Cache:  c.Cache,
		Jobs:   c.Jobs,
		JWT:    jwtManager,
		Policy: policy,

		Auth:     services.NewAuthService(c.Store.Users(), jwtManager, hasher, c.Refresh, c.Logger),
		Users:    services.NewUserService(c.Store, hasher, policy, c.Logger),
		Courses:  courseService,
		Payments: paymentService,
		AI:       services.NewAIService(c.LLM, courseService, services.NewPDFExtractor(), c.Logger).WithCache(c.Cache),
		Uploads:  services.NewUploadService(c.Objects, policy, c.Logger),

		Security: middleware.SecurityConfig{
			AllowedOrigins:    env.ALLOWED_ORIGINS,
			RateLimitRequests: env.RATE_LIMIT_MAX,
			RateLimitWindow:   time.Minute,
		},
	}
}

// App builds a fiber app with every route mounted
func (c *Container) App() *fiber.App {
	app := api.NewApp()
	router.SetupRoutes(app, c.Deps)
	return app
}

// Close stops background jobs and releases connections
func (c *Container) Close() {
	if c.Jobs != nil {
		c.Jobs.Stop()
	}
	if c.Cache != nil {
		c.Cache.Close()
	}
	if err := c.Store.Close(); err != nil {
		c.Logger.Warn("failed to close store", "error", err)
	}
}
