package naming

import (
	"strings"
	"testing"
)

func TestNormalizeCandidate(t *testing.T) {
	title, score, ok := NormalizeCandidate("0xabc", "tracker", "  Warm   Fiery Octagon ")
	if !ok {
		t.Fatalf("expected ok")
	}
	if title != "Warm Fiery Octagon" {
		t.Fatalf("expected collapsed whitespace, got %q", title)
	}
	if score < 60 {
		t.Fatalf("expected score >= 60, got %d", score)
	}
}

func TestChooseTitle_PrefersHigherSignal(t *testing.T) {
	title := ChooseTitle("0xabc", []Candidate{
		{Name: "edge-router-7", Source: "snmp"},
		{Name: "Helsinki Relay", Source: "tracker"},
	})
	if title != "Helsinki Relay" {
		t.Fatalf("expected tracker title to win, got %q", title)
	}
}

func TestChooseTitle_RejectsAddressesAndFallsBack(t *testing.T) {
	id := "0x13581255eE2D20e780B0cD3D07fac018241B5E03"
	title := ChooseTitle(id, []Candidate{
		{Name: id, Source: "tracker"},
		{Name: "0xdeadbeefdeadbeefdeadbeef", Source: "tracker"},
		{Name: "unknown", Source: "snmp"},
	})
	if title != Generate(id) {
		t.Fatalf("expected generated fallback, got %q", title)
	}
}

func TestGenerate_StableAndCaseInsensitive(t *testing.T) {
	a := Generate("0xFeaDE0B77130F5468D57037e2a259295bfdD8390")
	b := Generate("0xfeade0b77130f5468d57037e2a259295bfdd8390")
	if a != b {
		t.Fatalf("expected case-insensitive generation, got %q vs %q", a, b)
	}
	if len(strings.Fields(a)) != 3 {
		t.Fatalf("expected three words, got %q", a)
	}
	if Generate("node-1") == Generate("node-2") && Generate("node-2") == Generate("node-3") {
		t.Fatalf("expected different ids to spread across titles")
	}
}
