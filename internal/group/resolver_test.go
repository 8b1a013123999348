package group

import (
	"sync"
	"testing"
)

var urbanRules = []Rule{
	{Prefix: "首都高速", Group: "首都高速道路"},
	{Prefix: "名古屋高速", Group: "名古屋高速道路"},
	{Prefix: "阪神高速", Group: "阪神高速道路"},
	{Prefix: "広島高速", Group: "広島高速道路"},
	{Prefix: "北九州高速", Group: "北九州都市高速道路"},
	{Prefix: "北九州都市高速", Group: "北九州都市高速道路"},
	{Prefix: "福岡高速", Group: "福岡都市高速道路"},
	{Prefix: "福岡都市高速", Group: "福岡都市高速道路"},
}

func TestResolve(t *testing.T) {
	r := NewResolver(urbanRules)

	tests := []struct {
		raw  string
		want string
	}{
		{"首都高速1号上野線", "首都高速道路"},
		{"首都高速都心環状線", "首都高速道路"},
		{"首都高速中央環状線", "首都高速道路"},
		{"阪神高速11号池田線", "阪神高速道路"},
		{"名古屋高速道路小牧-大高線高架路", "名古屋高速道路"},
		{"福岡高速6号アイランドシティ線", "福岡都市高速道路"},
		{"福岡都市高速環状線", "福岡都市高速道路"},
		{"北九州都市高速4号線", "北九州都市高速道路"},
		{"東名高速道路", "東名高速道路"},
		{"", ""},
		{"高速首都", "高速首都"},
	}

	for _, tt := range tests {
		if got := r.Resolve(tt.raw); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestResolveFirstMatchWins(t *testing.T) {
	r := NewResolver([]Rule{
		{Prefix: "首都", Group: "A"},
		{Prefix: "首都高速", Group: "B"},
	})
	if got := r.Resolve("首都高速1号上野線"); got != "A" {
		t.Errorf("Resolve() = %q, want first declared rule A", got)
	}

	r = NewResolver([]Rule{
		{Prefix: "首都高速", Group: "B"},
		{Prefix: "首都", Group: "A"},
	})
	if got := r.Resolve("首都高速1号上野線"); got != "B" {
		t.Errorf("Resolve() = %q, want first declared rule B", got)
	}
}

func TestResolveIdempotent(t *testing.T) {
	r := NewResolver(urbanRules)
	names := []string{
		"首都高速1号上野線", "阪神高速32号新神戸トンネル", "名古屋高速道路",
		"北九州高速", "福岡都市高速", "東名高速道路", "中央自動車道", "",
	}
	for _, name := range names {
		once := r.Resolve(name)
		if twice := r.Resolve(once); twice != once {
			t.Errorf("Resolve(Resolve(%q)) = %q, want %q", name, twice, once)
		}
	}
}

func TestLookup(t *testing.T) {
	r := NewResolver(urbanRules)

	if g, ok := r.Lookup("阪神高速3号神戸線"); !ok || g != "阪神高速道路" {
		t.Errorf("Lookup(阪神高速3号神戸線) = %q, %v", g, ok)
	}
	if g, ok := r.Lookup("東北自動車道"); ok || g != "東北自動車道" {
		t.Errorf("Lookup(東北自動車道) = %q, %v", g, ok)
	}
}

func TestResolverCache(t *testing.T) {
	r := NewResolver(urbanRules)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Resolve("首都高速都心環状線")
				r.Resolve("東名高速道路")
			}
		}()
	}
	wg.Wait()

	if got := r.CacheSize(); got != 2 {
		t.Errorf("CacheSize() = %d, want 2", got)
	}
}

func TestNewResolverCopiesRules(t *testing.T) {
	rules := []Rule{{Prefix: "首都高速", Group: "首都高速道路"}}
	r := NewResolver(rules)
	rules[0].Group = "changed"

	if got := r.Resolve("首都高速1号上野線"); got != "首都高速道路" {
		t.Errorf("Resolve() = %q after caller mutation", got)
	}
}

func TestCheck(t *testing.T) {
	t.Run("disjoint idempotent rules", func(t *testing.T) {
		r := NewResolver([]Rule{
			{Prefix: "首都高速", Group: "首都高速道路"},
			{Prefix: "阪神高速", Group: "阪神高速道路"},
		})
		if got := r.Check(); len(got) != 0 {
			t.Errorf("Check() = %v, want none", got)
		}
	})

	t.Run("non idempotent canonical name", func(t *testing.T) {
		r := NewResolver([]Rule{
			{Prefix: "阪神", Group: "首都高速道路"},
			{Prefix: "首都", Group: "首都高速"},
		})
		got := r.Check()
		if len(got) != 1 || got[0].Other != nil {
			t.Fatalf("Check() = %v, want one idempotency flag", got)
		}
	})

	t.Run("overlapping prefixes", func(t *testing.T) {
		r := NewResolver([]Rule{
			{Prefix: "首都高速", Group: "首都高速道路"},
			{Prefix: "首都", Group: "首都"},
		})
		got := r.Check()
		if len(got) != 1 || got[0].Other == nil || got[0].Other.Prefix != "首都" {
			t.Fatalf("Check() = %v, want one overlap flag", got)
		}
		if got[0].String() == "" {
			t.Error("Ambiguity.String() is empty")
		}
	})
}
