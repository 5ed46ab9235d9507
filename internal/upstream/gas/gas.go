// Package gas samples gas prices from independent chain RPC endpoints.
package gas

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/ethclient"

	"gasbot/pkg/logx"
)

// SourceConfig names one chain and its RPC endpoint.
type SourceConfig struct {
	Name     string
	Endpoint string
}

// Reading is one chain's sampled gas price, or the sampling error.
type Reading struct {
	Chain string
	Gwei  uint64
	Err   error
}

// Snapshot is one complete poll result, in source-declared order.
// It is ephemeral and superseded wholesale by the next tick.
type Snapshot []Reading

// Value returns the sampled gwei for a chain, ok=false if the chain is
// absent or errored in this snapshot.
func (s Snapshot) Value(chain string) (uint64, bool) {
	for _, r := range s {
		if r.Chain == chain && r.Err == nil {
			return r.Gwei, true
		}
	}
	return 0, false
}

// Format renders the snapshot as one "chain: N gwei" line per source.
func (s Snapshot) Format() string {
	var b strings.Builder
	for _, r := range s {
		if r.Err != nil {
			fmt.Fprintf(&b, "%s: unavailable\n", r.Chain)
			continue
		}
		fmt.Fprintf(&b, "%s: %d gwei\n", r.Chain, r.Gwei)
	}
	return b.String()
}

var gweiPerWei = big.NewInt(1_000_000_000)

type source struct {
	name string
	rpc  *ethclient.Client
}

// Pool holds one dialed RPC client per configured chain. Clients are
// reused across ticks. SampleAll never fails as a whole; each source's
// error is tagged into its reading.
type Pool struct {
	sources []source
	log     logx.Logger
}

// Dial connects every configured source. A source that cannot even be
// dialed aborts startup; sampling errors later are per-tick and soft.
func Dial(cfgs []SourceConfig, log logx.Logger) (*Pool, error) {
	if len(cfgs) == 0 {
		return nil, errors.New("no gas sources configured")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	p := &Pool{log: log}
	for _, c := range cfgs {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" || strings.TrimSpace(c.Endpoint) == "" {
			p.Close()
			return nil, fmt.Errorf("gas source %q: name and endpoint are required", c.Name)
		}
		rpc, err := ethclient.Dial(c.Endpoint)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("dial %s RPC: %w", name, err)
		}
		p.sources = append(p.sources, source{name: name, rpc: rpc})
	}
	return p, nil
}

// Chains returns the configured chain names in declared order.
func (p *Pool) Chains() []string {
	out := make([]string, len(p.sources))
	for i, s := range p.sources {
		out[i] = s.name
	}
	return out
}

// SampleAll queries every source in declared order and returns one
// snapshot with per-source result tagging.
func (p *Pool) SampleAll(ctx context.Context) Snapshot {
	snap := make(Snapshot, 0, len(p.sources))
	for _, s := range p.sources {
		gwei, err := sampleOne(ctx, s.rpc)
		if err != nil {
			p.log.Warn("gas sample failed", logx.String("chain", s.name), logx.Err(err))
			snap = append(snap, Reading{Chain: s.name, Err: err})
			continue
		}
		snap = append(snap, Reading{Chain: s.name, Gwei: gwei})
	}
	return snap
}

func (p *Pool) Close() {
	for _, s := range p.sources {
		s.rpc.Close()
	}
	p.sources = nil
}

func sampleOne(ctx context.Context, rpc *ethclient.Client) (uint64, error) {
	wei, err := rpc.SuggestGasPrice(ctx)
	if err != nil {
		return 0, err
	}
	return new(big.Int).Div(wei, gweiPerWei).Uint64(), nil
}
