package watchlist

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
)

func TestToggle(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "watch.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	added, err := s.Toggle(ctx, "btc")
	if err != nil || !added {
		t.Fatalf("Toggle(btc) = %v, %v; want added", added, err)
	}
	if _, err := s.Toggle(ctx, "ETH"); err != nil {
		t.Fatal(err)
	}

	got, err := s.Symbols(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"BTC", "ETH"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Symbols = %v, want %v", got, want)
	}

	added, err = s.Toggle(ctx, "BTC")
	if err != nil || added {
		t.Fatalf("second Toggle(BTC) = %v, %v; want removed", added, err)
	}
	got, _ = s.Symbols(ctx)
	if want := []string{"ETH"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Symbols after removal = %v, want %v", got, want)
	}

	if _, err := s.Toggle(ctx, "  "); err == nil {
		t.Error("Toggle of an empty symbol should fail")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "watch.db")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Toggle(ctx, "SOL"); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Symbols(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"SOL"}) {
		t.Errorf("Symbols after reopen = %v, want [SOL]", got)
	}
}

func TestInMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Symbols(context.Background())
	if err != nil || len(got) != 0 {
		t.Errorf("empty list = %v, %v", got, err)
	}
}
