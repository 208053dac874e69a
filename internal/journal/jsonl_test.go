package journal

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"ammcore/internal/model"
)

func TestAppendAndScan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ops.jsonl")
	w := NewWriter(path)

	args, _ := json.Marshal(model.SwapArgs{Direction: "a_to_b", AmountIn: 1000, Deadline: 5})
	first := []model.Operation{
		{Seq: 1, Op: model.OpCreatePool, Pool: "usdc-weth", Now: 1},
		{Seq: 2, Op: model.OpSwap, Pool: "usdc-weth", Now: 2, Args: args},
	}
	if err := w.AppendOperations(first); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.AppendOperations([]model.Operation{{Seq: 3, Op: model.OpWithdrawFees, Pool: "usdc-weth", Now: 3}}); err != nil {
		t.Fatalf("append: %v", err)
	}

	var got []model.Operation
	err := ScanOperations(context.Background(), path, func(op model.Operation) error {
		got = append(got, op)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("scanned %d operations, want 3", len(got))
	}

	var swap model.SwapArgs
	if err := json.Unmarshal(got[1].Args, &swap); err != nil {
		t.Fatalf("decode args: %v", err)
	}
	if swap.AmountIn != 1000 || swap.Direction != "a_to_b" {
		t.Fatalf("swap args = %+v", swap)
	}

	last, err := LastSeq(context.Background(), path)
	if err != nil || last != 3 {
		t.Fatalf("last seq = %d, %v", last, err)
	}
}

func TestScanSkipsBadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.jsonl")
	content := "{\"seq\":1,\"op\":\"swap\",\"pool\":\"p\",\"now\":1}\n\nnot json\n{\"seq\":2}\n{\"seq\":3,\"op\":\"swap\",\"pool\":\"p\",\"now\":3}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var seqs []uint64
	var bad []int
	err := ScanOperations(context.Background(), path, func(op model.Operation) error {
		seqs = append(seqs, op.Seq)
		return nil
	}, func(e *DecodeError) {
		bad = append(bad, e.Line)
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(seqs) != 2 || seqs[0] != 1 || seqs[1] != 3 {
		t.Fatalf("seqs = %v", seqs)
	}
	if len(bad) != 2 || bad[0] != 3 || bad[1] != 4 {
		t.Fatalf("bad lines = %v", bad)
	}
}

func TestLastSeqMissingFile(t *testing.T) {
	last, err := LastSeq(context.Background(), filepath.Join(t.TempDir(), "missing.jsonl"))
	if err != nil || last != 0 {
		t.Fatalf("last seq = %d, %v", last, err)
	}
}
