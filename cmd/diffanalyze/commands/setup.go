// Package commands implements the diffanalyze CLI subcommands.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/diffanalyze/internal/config"
	"github.com/Sumatoshi-tech/diffanalyze/internal/symbols"
	"github.com/Sumatoshi-tech/diffanalyze/pkg/gitlib"
)

// newLogger builds the process logger from the persistent root flags.
func newLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	quiet, _ := cmd.Flags().GetBool("quiet")

	level := slog.LevelWarn

	switch {
	case quiet:
		level = slog.LevelError
	case verbose:
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// analysisSetup is everything a command needs before walking commits.
type analysisSetup struct {
	cfg        *config.Config
	repo       *gitlib.Repository
	extractor  *symbols.Extractor
	gate       *symbols.LanguageGate
	pathFilter *regexp.Regexp
	logger     *slog.Logger
}

// newAnalysisSetup loads configuration, resolves the extractor (fatal when
// missing), opens or clones the repository and compiles the path filter.
func newAnalysisSetup(cmd *cobra.Command, repoURI, configPath, pathFilter string) (*analysisSetup, error) {
	logger := newLogger(cmd)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	extractorPath, err := symbols.ResolveExtractor(cfg.Extractor.Path)
	if err != nil {
		return nil, err
	}

	var filter *regexp.Regexp

	if pathFilter == "" {
		pathFilter = cfg.Analysis.PathFilter
	}

	if pathFilter != "" {
		filter, err = regexp.Compile(pathFilter)
		if err != nil {
			return nil, fmt.Errorf("compile path filter: %w", err)
		}
	}

	repo, err := gitlib.OpenOrClone(repoURI, cfg.Clone.Directory, gitlib.NewTerminalCredentials())
	if err != nil {
		return nil, err
	}

	return &analysisSetup{
		cfg:        cfg,
		repo:       repo,
		extractor:  symbols.NewExtractor(extractorPath, cfg.Extractor.Timeout, logger),
		gate:       symbols.NewLanguageGate(cfg.Analysis.Languages),
		pathFilter: filter,
		logger:     logger,
	}, nil
}

// Close releases the repository.
func (s *analysisSetup) Close() {
	if s.repo != nil {
		s.repo.Free()
	}
}
