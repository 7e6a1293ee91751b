package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/devblog-app/devblog/internal/auth"
	"github.com/devblog-app/devblog/internal/handler"
	"github.com/devblog-app/devblog/internal/mailer"
	"github.com/devblog-app/devblog/internal/post"
	"github.com/devblog-app/devblog/internal/storage"
	"github.com/devblog-app/devblog/pkg/config"
	"github.com/devblog-app/devblog/pkg/email"
	"github.com/devblog-app/devblog/pkg/httpserver"
	"github.com/devblog-app/devblog/pkg/jwt"
	"github.com/devblog-app/devblog/pkg/logger"
	"github.com/devblog-app/devblog/pkg/pg"
)

type appConfig struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	ClientURL   string `env:"CLIENT_URL" envDefault:"http://localhost:3000"`

	HTTP   httpserver.Config
	DB     pg.Config
	Email  email.Config
	Router handler.Config
	Github auth.GithubOAuthConfig
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(logger.WithEnvironment(cfg.Environment))

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.DB, log); err != nil {
		return err
	}

	repo := storage.New(pool)

	sessions, err := jwt.New(cfg.JWTSecret)
	if err != nil {
		return err
	}

	sender, err := email.NewFromConfig(cfg.Email)
	if err != nil {
		return err
	}
	resetMailer := mailer.New(sender, cfg.ClientURL)

	authSvc := auth.NewService(repo, sessions, auth.WithLogger(log))
	oauthSvc := auth.NewGithubOAuthService(repo, sessions, cfg.Github, cfg.ClientURL,
		auth.WithGithubLogger(log))
	resetSvc := auth.NewResetService(repo, resetMailer, auth.WithResetLogger(log))
	postSvc := post.NewService(repo, post.WithLogger(log))

	authHandler := handler.NewAuthHandler(authSvc, oauthSvc, resetSvc, postSvc, sessions, log)
	postHandler := handler.NewPostHandler(postSvc, sessions, log)

	router := handler.Router(cfg.Router, log, authHandler, postHandler, pg.Healthcheck(pool))

	return httpserver.New(cfg.HTTP, log).Run(ctx, router)
}
