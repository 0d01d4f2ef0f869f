package main

import (
	"log"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/auth-forge/internal/config"
	"github.com/yourusername/auth-forge/internal/notify"
)

func setupNotify(cfg *config.Config) (*notify.Manager, error) {
	opt, err := redis.ParseURL(cfg.QueueRedisURL)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(opt)
	ttlMinutes := cfg.NotifyExpireMinutes
	if ttlMinutes <= 0 {
		ttlMinutes = 1440
	}
	store := notify.NewStore(redisClient, time.Duration(ttlMinutes)*time.Minute)
	sender := notify.NewLogSender(log.Default())

	manager, err := notify.NewManager(cfg.QueueRedisURL, store, sender, log.Default())
	if err != nil {
		return nil, err
	}
	return manager, nil
}
