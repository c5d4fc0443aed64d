// Command beaver runs one party of the two-party Beaver triple generator
// and writes its shares to OUT_DIR/p{rank+1}.csv.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/chain5j/chain5j-beaver/beaver"
	"github.com/chain5j/chain5j-beaver/common"
	"github.com/chain5j/chain5j-beaver/store"
	"github.com/chain5j/chain5j-beaver/transport"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
)

func main() {
	configFile := flag.String("config", "", "JSON config file")
	rank := flag.Int("rank", 0, "party rank: 0 generator, 1 evaluator")
	numTriples := flag.Int("n", common.DefaultNumTriples, "number of triples")
	addr := flag.String("addr", common.DefaultAddr, "generator address")
	outDir := flag.String("out", common.DefaultOutDir, "output directory")
	modulus := flag.String("q", common.DefaultQ.String(), "share modulus")
	bits := flag.Int("bits", common.DefaultNPaillierBits, "paillier key size")
	scheme := flag.String("scheme", common.DefaultScheme, "evaluator paillier engine: native or gadget")
	timeout := flag.Duration("timeout", 0, "run timeout, 0 for the configured one")
	verbosity := flag.Int("verbosity", int(log.LvlInfo), "log level 0-5")
	verify := flag.String("verify", "", "check the triples in p1.csv,p2.csv and exit")
	flag.Parse()

	log.Root().SetHandler(log.LvlFilterHandler(log.Lvl(*verbosity),
		log.StreamHandler(os.Stderr, log.TerminalFormat(false))))

	cfg := common.Default()
	if *configFile != "" {
		var err error
		cfg, err = common.Load(*configFile)
		if err != nil {
			log.Crit("Failed to load config", "err", err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		log.Crit("Invalid environment", "err", err)
	}

	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "rank":
			cfg.Rank = *rank
		case "n":
			cfg.NumTriples = *numTriples
		case "addr":
			cfg.Addr = *addr
		case "out":
			cfg.OutDir = *outDir
		case "q":
			q, ok := new(big.Int).SetString(*modulus, 0)
			if !ok {
				flagErr = errors.Errorf("-q %q: not an integer", *modulus)
				return
			}
			cfg.Q = q
		case "bits":
			cfg.NPaillierBits = *bits
		case "scheme":
			cfg.Scheme = *scheme
		case "timeout":
			cfg.Timeout = *timeout
		}
	})
	if flagErr != nil {
		log.Crit("Invalid flags", "err", flagErr)
	}

	if *verify != "" {
		if err := verifyFiles(cfg.Q, *verify); err != nil {
			fmt.Fprintf(os.Stderr, "verify: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := cfg.Validate(); err != nil {
		log.Crit("Invalid config", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if err := run(ctx, cfg); err != nil {
		log.Error("Run failed", "err", err)
		os.Exit(1)
	}
}

func connect(ctx context.Context, cfg *common.Config) (*transport.TCP, error) {
	role := beaver.Role(cfg.Rank)
	if role == beaver.RoleGenerator {
		l, err := transport.Listen(cfg.Addr, int(role), int(role.Peer()))
		if err != nil {
			return nil, err
		}
		defer l.Close()
		log.Info("Waiting for evaluator", "addr", l.Addr())
		return l.Accept(ctx)
	}
	log.Info("Connecting to generator", "addr", cfg.Addr)
	return transport.Dial(ctx, cfg.Addr, int(role), int(role.Peer()), transport.DefaultRetryDelay)
}

func run(ctx context.Context, cfg *common.Config) error {
	conn, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	res, runErr := beaver.Run(ctx, cfg, conn)
	if res == nil {
		return runErr
	}

	path := filepath.Join(cfg.OutDir, store.FileName(cfg.Rank))
	if err := store.Write(path, res.Triples); err != nil {
		if runErr != nil {
			log.Error("Failed to save partial triples", "path", path, "err", err)
			return runErr
		}
		return err
	}
	log.Info("Saved triples", "path", path, "count", len(res.Triples))

	res.Timing.Print(os.Stdout, conn.Stats.Sent.Load(), conn.Stats.Recvd.Load())
	return runErr
}

func verifyFiles(q *big.Int, arg string) error {
	paths := strings.Split(arg, ",")
	if len(paths) != 2 {
		return errors.Errorf("want two comma-separated files, got %q", arg)
	}
	start := time.Now()
	shares1, err := store.Read(paths[0])
	if err != nil {
		return err
	}
	shares2, err := store.Read(paths[1])
	if err != nil {
		return err
	}
	if err := beaver.Verify(q, shares1, shares2); err != nil {
		return err
	}
	log.Info("Triples verified", "count", len(shares1), "q", q, "elapsed", time.Since(start))
	return nil
}
