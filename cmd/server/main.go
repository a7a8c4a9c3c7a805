package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/snowzach/rotatefilehook"

	"github.com/vancomm/maze-server/internal/app"
	"github.com/vancomm/maze-server/internal/config"
	"github.com/vancomm/maze-server/internal/database"
	"github.com/vancomm/maze-server/internal/handlers"
	"github.com/vancomm/maze-server/internal/maze"
	"github.com/vancomm/maze-server/internal/repository"
	"github.com/vancomm/maze-server/internal/session"
)

var log = logrus.New()

func setupLogging() {
	logLevel := logrus.InfoLevel
	if config.Development() {
		logLevel = logrus.DebugLevel
	}
	log.SetLevel(logLevel)

	if config.Development() {
		log.SetFormatter(&logrus.TextFormatter{ForceColors: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	if path := config.LogFile(); path != "" {
		hook, err := rotatefilehook.NewRotateFileHook(rotatefilehook.RotateFileConfig{
			Filename:   path,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Level:      logLevel,
			Formatter:  &logrus.JSONFormatter{},
		})
		if err != nil {
			log.Fatal("unable to open log file: ", err)
		}
		log.AddHook(hook)
	}

	maze.Log.SetLevel(logLevel)
	maze.Log.SetFormatter(log.Formatter)
}

func main() {
	mainCtx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	if err := config.Load(); err != nil {
		log.Fatal(err)
	}

	setupLogging()

	mazeCfg, err := config.NewMaze()
	if err != nil {
		log.Fatal("unable to read maze config: ", err)
	}
	log.WithFields(logrus.Fields{
		"max_dimension": mazeCfg.MaxDimension,
		"default_delay": mazeCfg.DefaultDelay,
		"session_ttl":   mazeCfg.SessionTTL,
	}).Debug("config")

	jwt, err := config.NewJWT(mazeCfg.SessionTTL)
	if err != nil {
		log.Fatal("unable to read jwt config: ", err)
	}
	if jwt.Ephemeral() {
		log.Warn("no SESSION_SECRET set, control tokens will not survive a restart")
	}

	ws, err := config.NewWebSocket()
	if err != nil {
		log.Fatal("unable to read websocket config: ", err)
	}

	sessionCfg := session.Config{
		MaxDimension: mazeCfg.MaxDimension,
		DefaultDelay: mazeCfg.DefaultDelay,
		TTL:          mazeCfg.SessionTTL,
		Logger:       log,
	}
	var records handlers.RecordLister

	pool, _, err := database.ConnectAndMigrate(mainCtx)
	switch {
	case errors.Is(err, config.ErrNoDatabase):
		log.Warn("no database configured, runs will not be recorded")
	case err != nil:
		log.Fatal("unable to connect to database: ", err)
	default:
		defer pool.Close()
		queries := repository.New(pool)
		sessionCfg.Recorder = queries
		records = queries
		log.Info("connected to database")
	}

	a := app.New(log, app.Options{
		Addr:     config.Port(),
		BasePath: config.BasePath(),
		Sessions: session.NewManager(sessionCfg),
		JWT:      jwt,
		WS:       ws,
		Records:  records,
	})

	if err := a.Start(mainCtx); err != nil {
		log.Fatal(err)
	}
	log.Info("server stopped")
}
