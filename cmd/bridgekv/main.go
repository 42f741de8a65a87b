package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"bridgekv/config"
	"bridgekv/db"
	"bridgekv/logging"
	"bridgekv/shutdown"
)

var (
	// Version is set during build time
	Version = "dev"
	// GitCommit is set during build time
	GitCommit = "unknown"
)

const usage = `Usage: bridgekv [flags] <command> [args]

Commands:
  put <key> <value>   store a value
  get <key>           look up a key
  del <key>           delete a key
  scan                list all entries in key order
  destroy             remove the store at the configured path
  repair              run the engine's recovery pass
  version             print version information

Flags:
`

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	dataPath := flag.String("path", "", "database path (overrides configuration)")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	if flag.Arg(0) == "version" {
		fmt.Printf("bridgekv %s (%s, %s, %s/%s)\n",
			Version, GitCommit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bridgekv: %v\n", err)
		os.Exit(1)
	}
	if *dataPath != "" {
		cfg.Database.Path = *dataPath
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bridgekv: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger, flag.Args()); err != nil {
		logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger, args []string) error {
	opts, err := cfg.OpenOptions()
	if err != nil {
		return err
	}

	// Destroy and repair are administrative: no open handle involved.
	switch args[0] {
	case "destroy":
		return db.DestroyDB(cfg.Database.Path, opts)
	case "repair":
		return db.RepairDB(cfg.Database.Path, opts)
	}

	d := db.New(&db.Config{QueueDepth: cfg.Database.QueueDepth, Logger: logger})

	mgr := shutdown.NewManager(10*time.Second, logger)
	mgr.Register("drain operations", 1, func(ctx context.Context) error {
		d.Wait()
		return nil
	})
	mgr.Register("close database", 2, func(ctx context.Context) error {
		d.Shutdown()
		return nil
	})
	mgr.Listen()
	defer mgr.Shutdown()

	if err := open(d, cfg.Database.Path, opts); err != nil {
		return err
	}

	wo := &db.WriteOptions{Sync: cfg.Database.SyncWrites}

	switch cmd := args[0]; cmd {
	case "put":
		if len(args) != 3 {
			return fmt.Errorf("put expects <key> <value>")
		}
		return await(func(cb db.Callback) error {
			return d.Put(args[1], args[2], wo, cb)
		})

	case "del":
		if len(args) != 2 {
			return fmt.Errorf("del expects <key>")
		}
		return await(func(cb db.Callback) error {
			return d.Del(args[1], wo, cb)
		})

	case "get":
		if len(args) != 2 {
			return fmt.Errorf("get expects <key>")
		}
		done := make(chan error, 1)
		err := d.Get(args[1], nil, func(value []byte, err error) {
			if err == nil && value != nil {
				fmt.Printf("%s\n", value)
			} else if err == nil {
				fmt.Fprintln(os.Stderr, "(not found)")
			}
			done <- err
		})
		if err != nil {
			return err
		}
		return <-done

	case "scan":
		it, err := d.NewIterator(nil)
		if err != nil {
			return err
		}
		defer it.Release()
		for ok := it.First(); ok; ok = it.Next() {
			fmt.Printf("%s\t%s\n", it.Key(), it.Value())
		}
		return it.Error()

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func open(d *db.DB, path string, opts *db.Options) error {
	return await(func(cb db.Callback) error {
		return d.Open(path, opts, cb)
	})
}

// await turns one callback-shaped operation into a blocking call.
func await(op func(cb db.Callback) error) error {
	done := make(chan error, 1)
	if err := op(func(err error) { done <- err }); err != nil {
		return err
	}
	return <-done
}
