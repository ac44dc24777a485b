package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	cmtconfig "github.com/cometbft/cometbft/config"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	nm "github.com/cometbft/cometbft/node"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/cometbft/cometbft/proxy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/suyogster/agora-scores/app"
	"github.com/suyogster/agora-scores/config"
	"github.com/suyogster/agora-scores/indexer"
)

var rootCmd = &cobra.Command{
	Use:   "agora",
	Short: "Agora is a token-weighted DAO governance chain",
}

type startArguments struct {
	Home      string
	NoIndexer bool
}

var startArgs startArguments

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the node, and the proposal indexer unless disabled",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		run()
	},
}

func init() {
	startCmd.Flags().StringVarP(&startArgs.Home, FlagHome, "d", "", "home directory")
	startCmd.Flags().BoolVar(&startArgs.NoIndexer, "no-indexer", false, "do not run the indexer and its api")
}

func run() {
	homeDir := startArgs.Home
	if homeDir == "" {
		homeDir = os.ExpandEnv(config.DefaultHomeDir)
	}
	appConfig, err := config.Load(homeDir)
	if err != nil {
		log.Fatalf("Loading config: %v", err)
	}

	pv := privval.LoadFilePV(
		appConfig.PrivValidatorKeyFile(),
		appConfig.PrivValidatorStateFile(),
	)
	nodeKey, err := p2p.LoadNodeKey(appConfig.NodeKeyFile())
	if err != nil {
		log.Fatalf("failed to load node's key: %v", err)
	}

	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	logger, err = cmtflags.ParseLogLevel(appConfig.LogLevel, logger, cmtconfig.DefaultLogLevel)
	if err != nil {
		log.Fatalf("failed to parse log level: %v", err)
	}

	agoraApp, err := app.NewAgoraApp(appConfig.App, logger, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("new App err:%v", err)
	}

	node, err := nm.NewNode(
		appConfig.Config,
		pv,
		nodeKey,
		proxy.NewLocalClientCreator(agoraApp),
		nm.DefaultGenesisDocProviderFunc(appConfig.Config),
		cmtconfig.DefaultDBProvider,
		nm.DefaultMetricsProvider(appConfig.Instrumentation),
		logger,
	)
	if err != nil {
		log.Fatalf("Creating node: %v", err)
	}
	if err = node.Start(); err != nil {
		log.Fatalf("start comet node err %s", err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	var idxStore *indexer.Store
	if !startArgs.NoIndexer {
		idxStore, err = startIndexer(ctx, appConfig, logger)
		if err != nil {
			log.Fatalf("start indexer err %s", err.Error())
		}
	}

	defer func() {
		log.Println("shut down...")
		cancel()
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := node.Stop(); err != nil {
				logger.Error("stop comet node fail", "err", err)
			}
			node.Wait()
			agoraApp.Stop()
			if idxStore != nil {
				idxStore.Close()
			}
		}()
		timer := time.NewTimer(time.Second * 10)
		select {
		case <-timer.C:
			os.Exit(1)
		case <-done:
			return
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

func startIndexer(ctx context.Context, appConfig *config.Config, logger cmtlog.Logger) (*indexer.Store, error) {
	rpcUrl, err := url.Parse(appConfig.RPC.ListenAddress)
	if err != nil {
		return nil, fmt.Errorf("parse rpc address: %w", err)
	}
	rpcUrl.Scheme = "http"
	store, err := indexer.OpenStore(appConfig.App.IndexerDBPath())
	if err != nil {
		return nil, err
	}
	chainIndexer, err := indexer.NewChainIndexer(logger, store, rpcUrl.String(), config.DefaultPollInterval)
	if err != nil {
		store.Close()
		return nil, err
	}
	go chainIndexer.Start(ctx)

	svc := indexer.NewService(appConfig.App.IndexerListen, store, logger)
	go func() {
		if err := svc.Start(ctx); err != nil {
			logger.Error("indexer api stopped", "err", err)
		}
	}()
	return store, nil
}
