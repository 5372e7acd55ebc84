package serve

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	cmdUtil "github.com/finnegan-hale/meidkv/cmd/util"
	"github.com/finnegan-hale/meidkv/internal/aol"
	"github.com/finnegan-hale/meidkv/internal/command"
	"github.com/finnegan-hale/meidkv/internal/config"
	"github.com/finnegan-hale/meidkv/internal/engine"
	"github.com/finnegan-hale/meidkv/internal/fileformat"
	"github.com/finnegan-hale/meidkv/internal/lockdown"
	"github.com/finnegan-hale/meidkv/internal/logx"
	"github.com/finnegan-hale/meidkv/internal/metrics"
	"github.com/finnegan-hale/meidkv/internal/recovery"
	"github.com/finnegan-hale/meidkv/internal/shell"
)

var (
	configPath string
	tokensPath string

	// ServeCmd starts the store and its TCP shell.
	ServeCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the meidkv server",
		Long:  `Start the meidkv server: load configuration, replay the append-only log, then accept TCP shell connections.`,
		RunE:  run,
	}
)

func init() {
	ServeCmd.Flags().StringVar(&configPath, "config", "", cmdUtil.WrapString("path to a YAML configuration file"))
	ServeCmd.Flags().StringVar(&tokensPath, "tokens", "", cmdUtil.WrapString("path to a JSON access-token file"))
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return errors.Wrap(err, "serve: load configuration")
	}

	logLevel := logx.Info
	if !cfg.Logs.Enabled {
		logLevel = logx.Off
	}
	logx.Configure(logx.Options{
		Level:      logLevel,
		ShowTime:   cfg.Logs.ShowTime,
		TimeFormat: cfg.Logs.TimeFormat,
		UseColors:  cfg.Logs.UseColors,
	})
	logger := logx.New("serve")

	reg := metrics.New()

	tokenFile, err := shell.LoadTokenFile(tokensPath)
	if err != nil {
		return errors.Wrap(err, "serve: load token file")
	}
	if cfg.Meids.Encrypt {
		logger.Warnf("meids.encrypt is set but this build writes shard headers unencrypted")
	}

	shardStatuses, err := fileformat.EnsureShards(cfg.Dir.Database, cfg.Meids.Count, tokenFile.Signature, cfg.MeidFileMode(), logx.New("fileformat"))
	if err != nil {
		return errors.Wrap(err, "serve: validate shard headers")
	}
	for _, st := range shardStatuses {
		if !st.Active {
			logger.Warnf("shard %d marked inactive after a header mismatch", st.Index)
		}
	}

	var log *aol.Log
	if cfg.Persistent.Enabled {
		backupLimit, err := cfg.BackupSizeLimitBytes()
		if err != nil {
			return errors.Wrap(err, "serve: parse persistent.backup_size_limit")
		}
		log, err = aol.Open(aol.Options{
			Dir:         cfg.Dir.Database,
			RotateBytes: backupLimit,
			Metrics:     reg,
		})
		if err != nil {
			return errors.Wrap(err, "serve: open append-only log")
		}
		defer log.Close()
	}

	entrySize, err := cfg.MeidEntrySizeBytes()
	if err != nil {
		return errors.Wrap(err, "serve: parse meids.size")
	}
	maxMemory, err := cfg.MemoryMaxSizeBytes()
	if err != nil {
		return errors.Wrap(err, "serve: parse memory.max_size")
	}

	eng, err := engine.New(engine.Options{
		ShardCount:      cfg.Meids.Count,
		MaxEntrySize:    int(entrySize),
		MaxMemory:       maxMemory,
		DigestCacheSize: 4096,
		AOL:             log,
		Metrics:         reg,
		Logger:          logx.New("engine"),
	})
	if err != nil {
		return errors.Wrap(err, "serve: construct engine")
	}

	recoveryResult, err := recovery.Run(cfg.Dir.Database, eng, logx.New("recovery"))
	if err != nil {
		return errors.Wrap(err, "serve: replay append-only log")
	}
	logger.Infof("recovery: replayed %d file(s), %d line(s), %d failure(s)",
		recoveryResult.FilesReplayed, recoveryResult.LinesApplied, len(recoveryResult.FilesFailed))

	tracker, err := lockdown.New(".lockdown",
		lockdown.ParseMode(cfg.Server.CLILockdown),
		cfg.Server.MaxCLILoginAttempt,
		time.Duration(cfg.CooldownSeconds())*time.Second)
	if err != nil {
		return errors.Wrap(err, "serve: load lockdown sidecar")
	}

	inputSize, err := cfg.CLIInputSizeBytes()
	if err != nil {
		return errors.Wrap(err, "serve: parse server.cli_input_size")
	}

	srv := shell.New(shell.Options{
		Engine:       eng,
		Metrics:      reg,
		Lockdown:     tracker,
		Registry:     command.NewRegistry(),
		Tokens:       tokenFile.AccessKeys,
		LastRecovery: recoveryResult,
		ShardCount:   cfg.Meids.Count,
		AuthTimeout:  time.Duration(cfg.AuthTimeoutMs()) * time.Millisecond,
		MaxInputSize: inputSize,
		Logger:       logx.New("shell"),
	})

	addr := fmt.Sprintf(":%d", cfg.Server.CLIPort)
	logger.Infof("starting shell on %s", addr)
	return srv.ListenAndServe(addr)
}
