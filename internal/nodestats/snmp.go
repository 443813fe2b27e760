package nodestats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
)

// SNMPConfig configures the SNMP stats source.
type SNMPConfig struct {
	Community      string
	Version        string // "2c" (default) | "1"
	Port           uint16
	Timeout        time.Duration
	Retries        int
	MaxRepetitions uint32
	// SampleDelay separates the two counter samples a rate is computed from.
	SampleDelay time.Duration
	// Targets maps node ids to management addresses.
	Targets map[string]string
}

const (
	oidSysUpTime0     = "1.3.6.1.2.1.1.3.0"
	oidIfHCInOctets   = "1.3.6.1.2.1.31.1.1.1.6"
	oidIfHCOutOctets  = "1.3.6.1.2.1.31.1.1.1.10"
	oidIfHCInUcastPkt = "1.3.6.1.2.1.31.1.1.1.7"
	oidIfHCOutUcastPk = "1.3.6.1.2.1.31.1.1.1.11"
)

// SNMPSource derives node stats from interface counters of the node's host:
// packet and octet rates from two walks SampleDelay apart, latency from the
// round trip of a sysUpTime get.
type SNMPSource struct {
	cfg SNMPConfig
	now func() time.Time
}

func NewSNMPSource(cfg SNMPConfig) *SNMPSource {
	if strings.TrimSpace(cfg.Community) == "" {
		cfg.Community = "public"
	}
	if strings.TrimSpace(cfg.Version) == "" {
		cfg.Version = "2c"
	}
	if cfg.Port == 0 {
		cfg.Port = 161
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 900 * time.Millisecond
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.MaxRepetitions == 0 {
		cfg.MaxRepetitions = 10
	}
	if cfg.SampleDelay <= 0 {
		cfg.SampleDelay = time.Second
	}
	targets := make(map[string]string, len(cfg.Targets))
	for id, addr := range cfg.Targets {
		if strings.TrimSpace(addr) != "" {
			targets[id] = strings.TrimSpace(addr)
		}
	}
	cfg.Targets = targets
	return &SNMPSource{cfg: cfg, now: time.Now}
}

func (s *SNMPSource) HasTarget(nodeID string) bool {
	_, ok := s.cfg.Targets[nodeID]
	return ok
}

func (s *SNMPSource) connect(ctx context.Context, address string) (*gosnmp.GoSNMP, error) {
	var version gosnmp.SnmpVersion
	switch strings.ToLower(strings.TrimSpace(s.cfg.Version)) {
	case "2c", "v2c", "":
		version = gosnmp.Version2c
	case "1", "v1":
		version = gosnmp.Version1
	default:
		return nil, fmt.Errorf("unsupported snmp version %q", s.cfg.Version)
	}

	g := &gosnmp.GoSNMP{
		Context:        ctx,
		Target:         address,
		Port:           s.cfg.Port,
		Community:      s.cfg.Community,
		Version:        version,
		Timeout:        s.cfg.Timeout,
		Retries:        s.cfg.Retries,
		MaxRepetitions: s.cfg.MaxRepetitions,
	}
	if err := g.Connect(); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *SNMPSource) Fetch(ctx context.Context, nodeID string) (Stats, error) {
	address, ok := s.cfg.Targets[nodeID]
	if !ok {
		return Stats{}, fmt.Errorf("%w: %s", ErrNoTarget, nodeID)
	}

	g, err := s.connect(ctx, address)
	if err != nil {
		return newStats(nodeID, "snmp", s.now().UTC(), nil), fmt.Errorf("snmp connect %s: %w", address, err)
	}
	defer g.Conn.Close()

	values := make(map[StatID]*float64, len(AllStats))

	start := time.Now()
	if _, err := g.Get([]string{oidSysUpTime0}); err == nil {
		ms := float64(time.Since(start).Microseconds()) / 1000
		values[Latency] = &ms
	}

	first, firstAt := s.sample(g)
	select {
	case <-ctx.Done():
		return newStats(nodeID, "snmp", s.now().UTC(), values), ctx.Err()
	case <-time.After(s.cfg.SampleDelay):
	}
	second, secondAt := s.sample(g)

	elapsed := secondAt.Sub(firstAt)
	if v, ok := counterRate(first.packets, second.packets, elapsed); ok {
		values[MessagesPerSecond] = &v
	}
	if v, ok := counterRate(first.octets, second.octets, elapsed); ok {
		mb := v / 1_000_000
		values[MBsPerSecond] = &mb
	}

	return newStats(nodeID, "snmp", s.now().UTC(), values), nil
}

type counterSample struct {
	octets  *uint64
	packets *uint64
}

func (s *SNMPSource) sample(g *gosnmp.GoSNMP) (counterSample, time.Time) {
	var out counterSample
	in, errIn := g.BulkWalkAll(oidIfHCInOctets)
	outOct, errOut := g.BulkWalkAll(oidIfHCOutOctets)
	if errIn == nil && errOut == nil {
		total := sumCounters(in) + sumCounters(outOct)
		out.octets = &total
	}
	inPkts, errIn := g.BulkWalkAll(oidIfHCInUcastPkt)
	outPkts, errOut := g.BulkWalkAll(oidIfHCOutUcastPk)
	if errIn == nil && errOut == nil {
		total := sumCounters(inPkts) + sumCounters(outPkts)
		out.packets = &total
	}
	return out, time.Now()
}

func sumCounters(pdus []gosnmp.SnmpPDU) uint64 {
	var total uint64
	for _, p := range pdus {
		if v, ok := pduUint64(p); ok {
			total += v
		}
	}
	return total
}

func pduUint64(pdu gosnmp.SnmpPDU) (uint64, bool) {
	switch v := pdu.Value.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

// counterRate converts two counter readings into a per-second rate. A counter
// that went backwards (reset or wrap) yields no rate.
func counterRate(first, second *uint64, elapsed time.Duration) (float64, bool) {
	if first == nil || second == nil || elapsed <= 0 {
		return 0, false
	}
	if *second < *first {
		return 0, false
	}
	return float64(*second-*first) / elapsed.Seconds(), true
}
