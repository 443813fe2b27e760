package trackerapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"

	"netexplorer/core-go/internal/topology"
)

// SRVDiscovery resolves trackers from SRV records such as
// _tracker._tcp.example.net. Each target becomes http://target:port.
type SRVDiscovery struct {
	Name    string
	Server  string // host:port; empty means the first resolv.conf nameserver
	Scheme  string
	Timeout time.Duration
}

func (d *SRVDiscovery) Discover(ctx context.Context) ([]topology.Tracker, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return nil, errors.New("srv name is empty")
	}
	server, err := d.server()
	if err != nil {
		return nil, err
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	scheme := d.Scheme
	if scheme == "" {
		scheme = "http"
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeSRV)
	m.RecursionDesired = true

	c := &dns.Client{Timeout: timeout}
	in, _, err := c.ExchangeContext(ctx, m, server)
	if err != nil {
		return nil, fmt.Errorf("srv lookup %s via %s: %w", name, server, err)
	}
	if in.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("srv lookup %s: %s", name, dns.RcodeToString[in.Rcode])
	}

	records := make([]*dns.SRV, 0, len(in.Answer))
	for _, rr := range in.Answer {
		if srv, ok := rr.(*dns.SRV); ok && srv.Target != "." {
			records = append(records, srv)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Priority != records[j].Priority {
			return records[i].Priority < records[j].Priority
		}
		if records[i].Weight != records[j].Weight {
			return records[i].Weight > records[j].Weight
		}
		return records[i].Target < records[j].Target
	})

	out := make([]topology.Tracker, 0, len(records))
	for _, srv := range records {
		host := strings.TrimSuffix(srv.Target, ".")
		hostPort := net.JoinHostPort(host, strconv.Itoa(int(srv.Port)))
		out = append(out, topology.Tracker{
			ID:      hostPort,
			HTTPURL: scheme + "://" + hostPort,
		})
	}
	return out, nil
}

func (d *SRVDiscovery) server() (string, error) {
	if s := strings.TrimSpace(d.Server); s != "" {
		if _, _, err := net.SplitHostPort(s); err != nil {
			return net.JoinHostPort(s, "53"), nil
		}
		return s, nil
	}
	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return "", fmt.Errorf("read resolv.conf: %w", err)
	}
	if len(cfg.Servers) == 0 {
		return "", errors.New("no nameserver configured")
	}
	return net.JoinHostPort(cfg.Servers[0], cfg.Port), nil
}
