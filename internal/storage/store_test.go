package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"testing"

	"github.com/san-kum/dynmap/internal/models"
	"github.com/san-kum/dynmap/internal/orbit"
	"gonum.org/v1/gonum/mat"
)

func testOrbits(t *testing.T, n int) []*orbit.Orbit {
	t.Helper()
	m, err := models.NewStandard().Map()
	if err != nil {
		t.Fatal(err)
	}
	out := make([]*orbit.Orbit, n)
	for i := range out {
		x0 := mat.NewVecDense(2, []float64{0.5 + 0.1*float64(i), 0.5})
		out[i], err = orbit.New(m, 1, orbit.Forward, 20, x0)
		if err != nil {
			t.Fatal(err)
		}
	}
	return out
}

func openStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStoreSaveLoad(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	orbits := testOrbits(t, 3)

	runID, err := st.Save(ctx, RunMetadata{
		Model:     "standard",
		Params:    map[string]float64{"k": 0.4},
		Order:     1,
		Steps:     20,
		Direction: "forward",
		Seed:      42,
		Metrics:   map[string]float64{"lyapunov_0": 0.01},
	}, orbits)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(ctx, runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Model != "standard" {
		t.Errorf("expected model 'standard', got '%s'", meta.Model)
	}
	if meta.Seed != 42 {
		t.Errorf("expected seed 42, got %d", meta.Seed)
	}
	if meta.Params["k"] != 0.4 {
		t.Errorf("expected k 0.4, got %f", meta.Params["k"])
	}
	if meta.Orbits != 3 || meta.Dim != 2 {
		t.Errorf("expected 3 orbits of dim 2, got %d of dim %d", meta.Orbits, meta.Dim)
	}
	if meta.Metrics["lyapunov_0"] != 0.01 {
		t.Errorf("expected metric 0.01, got %f", meta.Metrics["lyapunov_0"])
	}

	loaded, err := st.LoadOrbits(ctx, runID)
	if err != nil {
		t.Fatalf("load orbits failed: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("expected 3 orbits, got %d", len(loaded))
	}
	for i, o := range orbits {
		want := o.Points()
		if len(loaded[i]) != len(want) {
			t.Fatalf("orbit %d: expected %d points, got %d", i, len(want), len(loaded[i]))
		}
		for j := range want {
			for k := range want[j] {
				if math.Abs(loaded[i][j][k]-want[j][k]) > 1e-6*math.Max(1, math.Abs(want[j][k])) {
					t.Errorf("orbit %d point %d: got %v, want %v", i, j, loaded[i][j], want[j])
				}
			}
		}
	}
}

func TestStoreSingleOrbitFile(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	orbits := testOrbits(t, 1)

	runID, err := st.Save(ctx, RunMetadata{Model: "standard"}, orbits)
	if err != nil {
		t.Fatal(err)
	}
	path, err := st.DataPath(ctx, runID)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var want bytes.Buffer
	if err := orbits[0].Save(&want); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, want.Bytes()) {
		t.Error("single orbit run should be written in the single-orbit layout")
	}
}

func TestStoreList(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)

	runs, err := st.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected empty list, got %d", len(runs))
	}

	first, err := st.Save(ctx, RunMetadata{Model: "henon"}, testOrbits(t, 1))
	if err != nil {
		t.Fatal(err)
	}
	second, err := st.Save(ctx, RunMetadata{Model: "standard"}, testOrbits(t, 2))
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatal("run ids must be unique")
	}

	runs, err = st.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != second {
		t.Errorf("expected newest run first, got %s", runs[0].ID)
	}
}

func TestStoreNotFound(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)

	if _, err := st.Load(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := st.LoadOrbits(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if err := st.Delete(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := st.Save(ctx, RunMetadata{Model: "x"}, nil); err == nil {
		t.Error("expected error saving no orbits")
	}
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)

	runID, err := st.Save(ctx, RunMetadata{Model: "standard", Metrics: map[string]float64{"a": 1}}, testOrbits(t, 2))
	if err != nil {
		t.Fatal(err)
	}
	path, _ := st.DataPath(ctx, runID)

	if err := st.Delete(ctx, runID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := st.Load(ctx, runID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("run still present: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("data file still present: %v", err)
	}
}

func TestStoreReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	st, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	runID, err := st.Save(ctx, RunMetadata{Model: "standard"}, testOrbits(t, 1))
	if err != nil {
		t.Fatal(err)
	}
	st.Close()

	st, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer st.Close()
	if _, err := st.Load(ctx, runID); err != nil {
		t.Errorf("run lost after reopen: %v", err)
	}
}

func TestExportJSON(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	runID, err := st.Save(ctx, RunMetadata{Model: "standard", Steps: 20}, testOrbits(t, 2))
	if err != nil {
		t.Fatal(err)
	}
	meta, _ := st.Load(ctx, runID)
	orbits, _ := st.LoadOrbits(ctx, runID)

	var buf bytes.Buffer
	if err := ExportJSON(&buf, meta, orbits); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var got ExportData
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got.Run.ID != runID || len(got.Orbits) != 2 || len(got.Orbits[0]) != 21 {
		t.Errorf("unexpected export: id=%s orbits=%d", got.Run.ID, len(got.Orbits))
	}
}
