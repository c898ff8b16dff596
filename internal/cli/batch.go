package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/jetteezhou/PhysVLM-Intent/internal/config"
	"github.com/jetteezhou/PhysVLM-Intent/internal/pipeline"
	"github.com/jetteezhou/PhysVLM-Intent/internal/types"
)

var videoExtensions = map[string]struct{}{
	".mp4": {},
	".mov": {},
	".avi": {},
	".mkv": {},
}

// batchManifest lists the videos to annotate. Each entry may override the
// output directory.
type batchManifest struct {
	Inputs []batchInput `yaml:"inputs"`
}

type batchInput struct {
	Path string `yaml:"path"`
	Out  string `yaml:"out,omitempty"`
}

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "batch [dir]",
		Short:        "Annotate every video in a directory or manifest, each in its own pipeline instance",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE:         runBatch,
	}
	cmd.Flags().Int("workers", 2, "Concurrent pipeline instances")
	cmd.Flags().String("manifest", "", "YAML manifest listing input videos")
	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	envCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err := buildLogger(envCfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	manifestPath, _ := cmd.Flags().GetString("manifest")
	workers, _ := cmd.Flags().GetInt("workers")
	if workers < 1 {
		workers = 1
	}

	var inputs []batchInput
	switch {
	case manifestPath != "":
		inputs, err = loadManifest(manifestPath)
	case len(args) == 1:
		inputs, err = scanDirectory(args[0])
	default:
		return fmt.Errorf("either a directory argument or --manifest is required")
	}
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no input videos found")
	}

	logger.Info("batch started", zap.Int("videos", len(inputs)), zap.Int("workers", workers))

	// Each job gets its own pipeline instance, temp dirs, and adapter
	// clients; failures are per-video and never stop the batch.
	jobs := make(chan batchInput)
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for in := range jobs {
				if err := runBatchJob(cmd, envCfg, in, logger); err != nil {
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}
		}()
	}
	for _, in := range inputs {
		jobs <- in
	}
	close(jobs)
	wg.Wait()

	logger.Info("batch finished", zap.Int("succeeded", len(inputs)-failed), zap.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("%d of %d videos failed", failed, len(inputs))
	}
	return nil
}

func runBatchJob(cmd *cobra.Command, envCfg config.Env, in batchInput, logger *zap.Logger) error {
	jobID := uuid.NewString()
	log := logger.With(zap.String("job_id", jobID), zap.String("input", in.Path))

	cfg, err := pipelineConfig(cmd, envCfg, in.Path, log)
	if err != nil {
		log.Error("job rejected", zap.Error(err))
		return err
	}
	if in.Out != "" {
		cfg.OutDir = in.Out
	}

	res, err := pipeline.Run(context.Background(), cfg)
	if err != nil {
		var stageErr *types.StageError
		if errors.As(err, &stageErr) {
			log.Error("job failed", zap.String("stage", stageErr.Stage), zap.Error(stageErr.Err))
		} else {
			log.Error("job failed", zap.Error(err))
		}
		return err
	}

	log.Info("job complete", zap.String("record", res.RecordPath))
	return nil
}

func loadManifest(path string) ([]batchInput, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m batchManifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	for i, in := range m.Inputs {
		if in.Path == "" {
			return nil, fmt.Errorf("manifest input %d has no path", i)
		}
	}
	return m.Inputs, nil
}

func scanDirectory(dir string) ([]batchInput, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var inputs []batchInput
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := videoExtensions[strings.ToLower(filepath.Ext(e.Name()))]; ok {
			inputs = append(inputs, batchInput{Path: filepath.Join(dir, e.Name())})
		}
	}
	return inputs, nil
}
