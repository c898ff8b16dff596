package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jetteezhou/PhysVLM-Intent/internal/config"
	"github.com/jetteezhou/PhysVLM-Intent/internal/pipeline"
)

func run(cmd *cobra.Command, input string) error {
	envCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := buildLogger(envCfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := pipelineConfig(cmd, envCfg, input, logger)
	if err != nil {
		return err
	}

	res, err := pipeline.Run(context.Background(), cfg)
	if err != nil {
		return err
	}
	logger.Info("annotation complete",
		zap.String("record", res.RecordPath),
		zap.String("preview", res.PreviewPath),
		zap.Int("objects", len(res.Record.Objects)),
	)
	return nil
}

func pipelineConfig(cmd *cobra.Command, envCfg config.Env, input string, logger *zap.Logger) (pipeline.Config, error) {
	outDir, _ := cmd.Flags().GetString("out")
	intervalMS, _ := cmd.Flags().GetInt64("interval")
	keepWorkDir, _ := cmd.Flags().GetBool("keep-workdir")

	if outDir == "" {
		outDir = envCfg.OutputDir
	}
	if intervalMS == 0 {
		intervalMS = envCfg.SamplingIntervalMS
	}

	absIn, err := filepath.Abs(input)
	if err != nil {
		return pipeline.Config{}, err
	}

	cfg := pipeline.Config{
		InputVideo:  absIn,
		OutDir:      outDir,
		IntervalMS:  intervalMS,
		KeepWorkDir: keepWorkDir,

		FFmpegPath:  envCfg.FFmpegPath,
		FFprobePath: envCfg.FFprobePath,

		DashScopeAPIKey: envCfg.DashScopeAPIKey,
		DashScopeModel:  envCfg.DashScopeModel,

		VideoAnalysis:     envCfg.VideoAnalysis(),
		ObjectDescription: envCfg.ObjectDescription(),
		ObjectLocation:    envCfg.ObjectLocation(),

		Logger: logger,
	}

	if err := cfg.Validate(); err != nil {
		return pipeline.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func buildLogger(level string) (*zap.Logger, error) {
	if strings.EqualFold(level, "debug") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
