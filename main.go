package main

import (
	"backoffice/config"
	"backoffice/controllers"
	"backoffice/database"
	"backoffice/routers"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
)

func main() {
	log.SetFlags(log.LstdFlags | log.LUTC | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Open(cfg.Database.Driver, cfg.Database.ConnectionString)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := database.SeedAdmin(ctx, db, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword); err != nil {
		log.Fatal(err)
	}

	if cfg.Seed.Demo {
		if err := database.SeedDemo(ctx, db, 60); err != nil {
			log.Fatal(err)
		}
	}

	api := controllers.NewAPI(cfg)
	api.Db = db
	api.Redis = redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr(),
		DB:   0,
	})
	defer api.Redis.Close()

	if err := os.MkdirAll(cfg.Storage.Dir, 0755); err != nil {
		log.Fatal(err)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      routers.Route(api),
		WriteTimeout: 60 * time.Second,
		ReadTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on %s (%s)", srv.Addr, cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Println(srv.Shutdown(shutdownCtx))
}
