package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/example/planner/config"
	"github.com/example/planner/modules/api"
	"github.com/example/planner/modules/images"
	"github.com/example/planner/modules/records"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	fsjetstream "github.com/go-monolith/mono/plugin/fs-jetstream"
	kvjetstream "github.com/go-monolith/mono/plugin/kv-jetstream"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Println("=== Planner ===")
	log.Printf("HTTP Address: %s", cfg.HTTP.Addr())
	log.Printf("Storage Path: %s", cfg.Storage.Path)
	log.Printf("Record Backend: %s", cfg.Storage.Backend)
	log.Printf("Max Image Size: %d bytes", cfg.Images.MaxSize)

	// Only "error" lowers verbosity; the framework logs text.
	logLevel := mono.WithLogLevel(mono.LogLevelInfo)
	if strings.EqualFold(cfg.Log.Level, "error") {
		logLevel = mono.WithLogLevel(mono.LogLevelError)
	}
	if cfg.Log.Format != "" && !strings.EqualFold(cfg.Log.Format, "text") {
		log.Printf("Warning: unsupported log format %q, using text", cfg.Log.Format)
	}

	// Create mono application with embedded NATS JetStream
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout.Duration),
		logLevel,
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithJetStreamStorageDir(cfg.Storage.Path),
	)
	if err != nil {
		log.Fatalf("Failed to create mono application: %v", err)
	}

	// Records: one persistent bucket holding the task, tag and theme keys
	kvPlugin, err := kvjetstream.New(kvjetstream.Config{
		Buckets: []kvjetstream.BucketConfig{
			{
				Name:        records.BucketName,
				Description: "Planner records",
				Storage:     kvjetstream.FileStorage,
			},
		},
	})
	if err != nil {
		log.Fatalf("Failed to create kv plugin: %v", err)
	}
	if err := app.RegisterPlugin(kvPlugin, "kv"); err != nil {
		log.Fatalf("Failed to register kv plugin: %v", err)
	}

	// Images: object store for locally uploaded pictures
	storagePlugin, err := fsjetstream.New(fsjetstream.Config{
		Buckets: []fsjetstream.BucketConfig{
			{
				Name:        images.BucketName,
				Description: "Planner images",
				MaxBytes:    cfg.Images.MaxBucket,
				Storage:     fsjetstream.FileStorage,
				Compression: true,
			},
		},
	})
	if err != nil {
		log.Fatalf("Failed to create storage plugin: %v", err)
	}
	if err := app.RegisterPlugin(storagePlugin, "storage"); err != nil {
		log.Fatalf("Failed to register storage plugin: %v", err)
	}

	recordsModule := records.NewModule(records.Config{
		Backend:     cfg.Storage.Backend,
		SQLitePath:  cfg.Storage.SQLitePath,
		SQLiteDebug: cfg.Storage.SQLiteDebug,
		RedisAddr:   cfg.Storage.RedisAddr,
		RedisPrefix: cfg.Storage.RedisPrefix,
	}, app.Logger())
	imagesModule := images.NewModule(cfg.Images.MaxSize, app.Logger())
	apiModule := api.NewModule(api.Config{
		Host:         cfg.HTTP.Host,
		Port:         cfg.HTTP.Port,
		MaxImageSize: cfg.Images.MaxSize,
	}, imagesModule, app.Logger())

	// Order: image store (consumes release events), record store, HTTP API
	app.Register(imagesModule)
	app.Register(recordsModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout.Duration,
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
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("REST API Endpoints (http://%s):", cfg.HTTP.Addr())
	log.Println("  GET    /api/v1/tasks?date=&tag=        - List tasks")
	log.Println("  GET    /api/v1/tasks/today             - Today's deadlines")
	log.Println("  POST   /api/v1/tasks                   - Create a task")
	log.Println("  PATCH  /api/v1/tasks/:id               - Edit a task")
	log.Println("  POST   /api/v1/tasks/:id/toggle        - Toggle completion")
	log.Println("  DELETE /api/v1/tasks/:id?confirm=true  - Delete a task")
	log.Println("  GET    /api/v1/calendar/:year/:month   - Month view")
	log.Println("  GET    /api/v1/tags                    - List tags")
	log.Println("  POST   /api/v1/tags                    - Create a tag")
	log.Println("  PATCH  /api/v1/tags/:id                - Edit a tag")
	log.Println("  DELETE /api/v1/tags/:id?confirm=true   - Delete a tag")
	log.Println("  POST   /api/v1/images                  - Upload an image")
	log.Println("  GET    /api/v1/images/:id              - Fetch an image")
	log.Println("  DELETE /api/v1/images/:id              - Delete an image")
	log.Println("  GET    /api/v1/preferences/theme       - Read theme")
	log.Println("  PUT    /api/v1/preferences/theme       - Store theme")
	log.Println("  GET    /health                         - Health check")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
