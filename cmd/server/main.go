package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Brownie44l1/diabetes-api/internal/config"
	"github.com/Brownie44l1/diabetes-api/internal/handlers"
	"github.com/Brownie44l1/diabetes-api/internal/metrics"
	"github.com/Brownie44l1/diabetes-api/internal/model"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var (
	name    = "diabetes-api"
	version = "v0.0.1-default"
	commit  = ""

	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "Path to the YAML config file (optional)",
		EnvVars: []string{"CONFIG_PATH"},
	}
	portFlag = &cli.IntFlag{
		Name:    "port",
		Usage:   "Port on which the server will listen",
		EnvVars: []string{"PORT"},
	}
	scalerFlag = &cli.StringFlag{
		Name:    "scaler",
		Usage:   "Path to the exported scaler",
		EnvVars: []string{"SCALER_PATH"},
	}
	classifierFlag = &cli.StringFlag{
		Name:    "classifier",
		Usage:   "Path to the exported classifier",
		EnvVars: []string{"CLASSIFIER_PATH"},
	}
	onnxLibFlag = &cli.StringFlag{
		Name:    "onnx-lib",
		Usage:   "Path to the onnxruntime shared library (onnx classifiers only)",
		EnvVars: []string{"ONNX_LIBRARY_PATH"},
	}
	logLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level [debug, info, warn, error]",
		EnvVars: []string{"LOG_LEVEL"},
	}
	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	predictCmd = &cli.Command{
		Name:      "predict",
		Usage:     "Score one JSON document (argument or stdin) without starting the server",
		ArgsUsage: "[json]",
		Action:    cmdPredict,
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     name,
		Version:  fmt.Sprintf("%s - (commit: %s)", version, commit),
		Compiled: time.Now(),
		Usage:    "Diabetes risk prediction API",
		Flags: []cli.Flag{
			configFlag,
			portFlag,
			scalerFlag,
			classifierFlag,
			onnxLibFlag,
			logLevelFlag,
			debugFlag,
		},
		Commands: []*cli.Command{
			predictCmd,
		},
		Action: cmdServe,
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return nil, err
	}

	if c.IsSet(portFlag.Name) {
		cfg.Server.Port = c.Int(portFlag.Name)
	}
	if c.IsSet(scalerFlag.Name) {
		cfg.Model.ScalerPath = c.String(scalerFlag.Name)
	}
	if c.IsSet(classifierFlag.Name) {
		cfg.Model.ClassifierPath = c.String(classifierFlag.Name)
	}
	if c.IsSet(onnxLibFlag.Name) {
		cfg.Model.ONNXLibraryPath = c.String(onnxLibFlag.Name)
	}
	if c.IsSet(logLevelFlag.Name) {
		cfg.Log.Level = c.String(logLevelFlag.Name)
	}
	if c.Bool(debugFlag.Name) {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	initLogging(cfg.Log)
	return cfg, nil
}

func initLogging(cfg config.LogConfig) {
	log.SetOutput(os.Stdout)
	log.SetReportCaller(false)

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
		return
	}
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:          true,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})
}

func loadModel(cfg *config.Config) (*model.Server, error) {
	log.WithFields(log.Fields{
		"scaler":     cfg.Model.ScalerPath,
		"classifier": cfg.Model.ClassifierPath,
	}).Info("loading model")

	modelServer, err := model.NewServer(model.Paths{
		ScalerPath:      cfg.Model.ScalerPath,
		ClassifierPath:  cfg.Model.ClassifierPath,
		ONNXLibraryPath: cfg.Model.ONNXLibraryPath,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize model server")
	}

	log.WithFields(log.Fields{
		"scaler_kind":     modelServer.Metadata.ScalerKind,
		"classifier_kind": modelServer.Metadata.ClassifierKind,
		"features":        strings.Join(model.FeatureNames, ","),
		"probability":     modelServer.Metadata.HasProbability,
	}).Info("model loaded")
	return modelServer, nil
}

func cmdServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	modelServer, err := loadModel(cfg)
	if err != nil {
		return err
	}
	defer modelServer.Close()

	handler := handlers.NewHandler(modelServer, modelServer.Metadata, metrics.New(),
		handlers.WithLogger(log.StandardLogger()),
		handlers.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	)

	s := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", s.Addr).Info("server starting")
		log.Info("endpoints: GET /health, POST /predict, GET /metrics")
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "server failed")
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}
	return nil
}

func cmdPredict(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log.SetOutput(c.App.ErrWriter)

	var body []byte
	if c.Args().Present() {
		body = []byte(c.Args().First())
	} else {
		if body, err = io.ReadAll(os.Stdin); err != nil {
			return errors.Wrap(err, "failed to read stdin")
		}
	}

	modelServer, err := loadModel(cfg)
	if err != nil {
		return err
	}
	defer modelServer.Close()

	in, err := model.ParseInput(body)
	if err != nil {
		return err
	}
	result, err := modelServer.Predict(c.Context, in)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
