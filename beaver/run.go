// Package beaver
package beaver

import (
	"context"
	"fmt"
	"time"

	"github.com/chain5j/chain5j-beaver/common"
	"github.com/ethereum/go-ethereum/log"
)

// Result holds one party's output of a run.
type Result struct {
	Role    Role
	Triples []*Triple
	Timing  *Timing
}

// Run generates cfg.NumTriples triples with the peer over ch. On failure
// it returns the triples completed so far together with the error. The
// generator completes a round once s is sent, so when the evaluator fails
// receiving s the generator holds one triple more; Verify rejects such a
// pair of files.
func Run(ctx context.Context, cfg *common.Config, ch Channel) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	role := Role(cfg.Rank)
	logger := log.New("role", role)

	res := &Result{
		Role:    role,
		Triples: make([]*Triple, 0, cfg.NumTriples),
		Timing:  NewTiming(),
	}

	party, err := Setup(ctx, cfg, ch)
	if err != nil {
		logger.Error("Setup failed", "err", err)
		return res, err
	}
	res.Timing.Sample("Setup", nil)

	var fastest, slowest time.Duration
	start := time.Now()
	for i := 0; i < cfg.NumTriples; i++ {
		roundStart := time.Now()
		t, err := party.GenerateTriple(ctx, uint64(i))
		if err != nil {
			logger.Error("Triple generation failed", "round", i, "err", err)
			res.Timing.Sample("Triples", []string{fmt.Sprintf("%d", len(res.Triples))})
			return res, err
		}
		res.Triples = append(res.Triples, t)

		d := time.Since(roundStart)
		if i == 0 || d < fastest {
			fastest = d
		}
		if d > slowest {
			slowest = d
		}
	}
	sample := res.Timing.Sample("Triples", []string{fmt.Sprintf("%d", len(res.Triples))})
	if n := len(res.Triples); n > 0 {
		sample.AbsSubSample("Min", fastest)
		sample.AbsSubSample("Avg", time.Since(start)/time.Duration(n))
		sample.AbsSubSample("Max", slowest)
	}

	if err := party.finish(ctx, uint64(cfg.NumTriples)); err != nil {
		logger.Error("Finish failed", "err", err)
		return res, err
	}
	res.Timing.Sample("Done", nil)

	logger.Info("Generated triples", "count", len(res.Triples),
		"elapsed", time.Since(res.Timing.Start))
	return res, nil
}
