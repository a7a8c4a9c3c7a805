package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Maze struct {
	MaxDimension int
	DefaultDelay time.Duration
	SessionTTL   time.Duration
}

func NewMaze() (*Maze, error) {
	maxDimension, err := lookupInt("MAZE_MAX_DIMENSION", 200)
	if err != nil {
		return nil, err
	}
	if maxDimension <= 0 {
		return nil, fmt.Errorf("MAZE_MAX_DIMENSION must be positive, got %d", maxDimension)
	}

	delay, err := lookupDuration("MAZE_DEFAULT_DELAY", 10*time.Millisecond)
	if err != nil {
		return nil, err
	}
	if delay < 0 {
		return nil, fmt.Errorf("MAZE_DEFAULT_DELAY must not be negative, got %s", delay)
	}

	ttl, err := lookupDuration("SESSION_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive, got %s", ttl)
	}

	cfg := &Maze{
		MaxDimension: maxDimension,
		DefaultDelay: delay,
		SessionTTL:   ttl,
	}
	return cfg, nil
}

func lookupInt(key string, fallback int) (int, error) {
	str, ok := os.LookupEnv(key)
	if !ok || str == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("unable to parse %s: %w", key, err)
	}
	return v, nil
}

func lookupDuration(key string, fallback time.Duration) (time.Duration, error) {
	str, ok := os.LookupEnv(key)
	if !ok || str == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(str)
	if err != nil {
		return 0, fmt.Errorf("unable to parse %s: %w", key, err)
	}
	return v, nil
}
