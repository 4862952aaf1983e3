// txpoold is a local experimentation harness wiring txpool.Pool and
// dmc.Scheduler together against an in-memory FakeExecutor.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	gethlog "github.com/ethereum/go-ethereum/log"

	"github.com/shardhain/txcore/config"
	"github.com/shardhain/txcore/dmc"
	"github.com/shardhain/txcore/dmc/dmctest"
	"github.com/shardhain/txcore/txpool"
)

var configFlag = &cli.StringFlag{
	Name:  "config",
	Usage: "path to a TOML config file (created with defaults if missing)",
	Value: "txpoold.toml",
}

var app = &cli.App{
	Name:  "txpoold",
	Usage: "run the transaction pool and DMC dispatcher in-process",
	Flags: []cli.Flag{configFlag},
	Commands: []*cli.Command{
		runCommand,
		submitCommand,
	},
}

var runCommand = &cli.Command{
	Name:   "run",
	Usage:  "start the pool and block until interrupted",
	Action: runAction,
}

var submitCommand = &cli.Command{
	Name:   "submit",
	Usage:  "submit a single synthetic transaction and print its result",
	Action: submitAction,
}

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	return config.Load(ctx.String(configFlag.Name))
}

func setupLogging(cfg *config.Config) {
	level := gethlog.LvlInfo
	if parsed, err := gethlog.LvlFromString(cfg.Log.Level); err == nil {
		level = parsed
	}
	glogger := gethlog.NewGlogHandler(gethlog.NewTerminalHandler(os.Stderr, cfg.Log.Format != "json"))
	glogger.Verbosity(gethlog.FromLegacyLevel(int(level)))
	gethlog.SetDefault(gethlog.NewLogger(glogger))
}

func runAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	setupLogging(cfg)

	pool := newPool(cfg)
	pool.Start()
	defer pool.Stop()

	gethlog.Info("txpoold started", "poolLimit", cfg.Pool.Limit, "shardConcurrency", cfg.Dispatch.ShardConcurrency)

	ch := make(chan txpool.TxFinishedEvent, 16)
	sub := pool.SubscribeTxFinished(ch)
	defer sub.Unsubscribe()

	<-ctx.Context.Done()
	return nil
}

func submitAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	setupLogging(cfg)

	pool := newPool(cfg)
	pool.Start()
	defer pool.Stop()

	to := txpool.Address{0x02}
	tx := txpool.NewTransaction(txpool.Payload{
		Hash:   txpool.Hash{0xAA},
		Nonce:  txpool.Nonce("demo-nonce"),
		Sender: txpool.Address{0x01},
		To:     to,
	})

	// Submit returns only once the transaction leaves the pool, so it
	// runs in its own goroutine and prints the result after the commit.
	done := make(chan error, 1)
	go func() {
		result, err := pool.Submit(context.Background(), tx)
		if err == nil {
			fmt.Printf("submit result: hash=%s status=%s\n", result.Hash, result.Status)
		}
		done <- err
	}()
	for pool.Size() == 0 {
		time.Sleep(time.Millisecond)
	}

	pool.BatchFetchTxs(10, nil, true)

	shard := dmc.Address(to)
	var finished []*dmc.ExecutionMessage
	script := dmctest.Script{
		ExecuteResults: map[dmc.Address][]dmctest.ExecuteResult{
			shard: {{Outputs: []*dmc.ExecutionMessage{{ContextID: 1, To: shard, Type: dmc.MessageTypeFinished}}}},
		},
	}
	sched := newScheduler(cfg, script, func(m *dmc.ExecutionMessage) { finished = append(finished, m) })
	defer sched.Stop()
	sched.Submit(&dmc.ExecutionMessage{ContextID: 1, To: shard}, false)
	sched.Run()
	fmt.Printf("dispatch terminated: finished=%d\n", len(finished))

	pool.BatchRemove(1, []txpool.CommitResult{{Hash: tx.Hash, Status: txpool.StatusNone, Nonce: tx.Nonce}})
	return <-done
}

// newPool wires a fresh Pool for this process, with no validator or
// nonce checkers (local experimentation only — a real deployment
// injects its chain's validator and nonce-checker implementations).
func newPool(cfg *config.Config) *txpool.Pool {
	return txpool.New(txpool.Config{
		PoolLimit:       cfg.Pool.Limit,
		ExpirationMS:    cfg.Pool.ExpirationMS,
		CleanupInterval: cfg.Pool.CleanupInterval(),
	}, nil, nil, nil, nil)
}

// newScheduler wires a dmc.Scheduler against an in-memory
// dmctest.FakeExecutor for demo purposes; a production node supplies
// its own Executor backend.
func newScheduler(cfg *config.Config, script dmctest.Script, onTxFinished func(*dmc.ExecutionMessage)) *dmc.Scheduler {
	executor := dmctest.NewFakeExecutor(script)
	return dmc.NewScheduler(executor, 0, dmc.BlockHeader{}, onTxFinished, cfg.Dispatch.ShardConcurrency)
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
