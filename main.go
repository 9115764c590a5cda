package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/example/task-service/config"
	"github.com/example/task-service/modules/activity"
	"github.com/example/task-service/modules/api"
	"github.com/example/task-service/modules/identity"
	"github.com/example/task-service/modules/task"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	flag "github.com/spf13/pflag"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.StringP("config", "c", "", "path to a YAML configuration file (defaults to $TASKS_CONFIG)")
	flag.Parse()

	log.Println("=== Task Service ===")

	cfg, err := config.Load(context.Background(), *configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Order: independent modules first, then dependent modules
	app.Register(identity.NewModule(cfg.Identity))
	app.Register(task.NewModule(cfg.Database, cfg.Cache))
	app.Register(activity.NewModule(activity.DefaultLimit))
	app.Register(api.NewModule(cfg.HTTP, cfg.Identity.CookieName, cfg.Cache))

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg config.Config) {
	store := cfg.Database.Driver
	if store == "sqlite" {
		store += " (" + cfg.Database.Path + ")"
	} else {
		store += " (" + cfg.Database.Host + ")"
	}
	cache := "disabled"
	if cfg.Cache.Enabled() {
		cache = "redis (" + cfg.Cache.RedisAddr + ")"
	}
	throttle := "disabled"
	if cfg.Cache.Enabled() && cfg.HTTP.LoginRateLimit > 0 {
		throttle = fmt.Sprintf("%d per %s", cfg.HTTP.LoginRateLimit, cfg.HTTP.LoginRateWindow)
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("  Task store: %s", store)
	log.Printf("  Read cache: %s", cache)
	log.Printf("  Auth throttle: %s", throttle)
	log.Printf("  Session cookie: %s", cfg.Identity.CookieName)
	log.Println("")
	log.Printf("Endpoints (listening on %s):", cfg.HTTP.Addr)
	log.Println("")
	log.Println("  Public Endpoints:")
	log.Println("  POST   /api/v1/auth/register  - Register a new user")
	log.Println("  POST   /api/v1/auth/login     - Login and receive the session cookie")
	log.Println("  GET    /health/live           - Liveness check")
	log.Println("  GET    /health/ready          - Readiness check (task store, identity)")
	log.Println("")
	log.Println("  Session Endpoints (require the session cookie):")
	log.Println("  POST   /graphql               - getTask, findTasks, createTask, updateTask, trashTask")
	log.Println("  GET    /api/v1/activity       - Recent task activity")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
