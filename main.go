package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"bookline/agent/conversation"
	"bookline/agent/driver"
	"bookline/agent/orchestrator"
	configx "bookline/pkg/config"
	"bookline/pkg/gcal"
	_ "bookline/pkg/logger/autoload"
	"bookline/pkg/whatsapp"
	"bookline/repository/postgres"
	"bookline/server"
)

func main() {
	ctx := context.Background()

	repoCfg := configx.MustNew[postgres.Config]("POSTGRES")
	repo, err := postgres.New(*repoCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init postgres repository")
	}
	defer repo.Close()
	if err := repo.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("postgres unreachable")
	}

	redisCfg := configx.MustNew[conversation.UpstashRedisConfig]("UPSTASH_REDIS")
	conversations, err := conversation.NewUpstashRedisStore(*redisCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init conversation store")
	}

	gcalCfg := configx.MustNew[gcal.Config]("GOOGLE")
	calendar, err := gcal.NewGateway(*gcalCfg, repo)
	if err != nil {
		log.Fatal().Err(err).Msg("init calendar gateway")
	}

	driverCfg := configx.MustNew[driver.Config]("MODEL")
	drivers, err := driver.NewFactory(ctx, *driverCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init model drivers")
	}

	svc, err := orchestrator.New(repo, conversations, calendar, drivers, whatsapp.New(), orchestrator.Config{
		ModelTimeout: driverCfg.Timeout,
		Seeder:       repo,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init orchestrator")
	}

	srvCfg := configx.MustNew[server.Config]("SERVER")
	srv := server.New(*srvCfg, repo, repo, svc)
	if err := srv.Run(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
