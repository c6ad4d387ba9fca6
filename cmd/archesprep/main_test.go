package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const model = `{"graph": [{"nodes": [
	{"nodeid": "g1", "nodegroup_id": "c1", "datatype": "geojson-feature-collection", "name": "Site element geometry"},
	{"nodeid": "g2", "nodegroup_id": "c1", "datatype": "geojson-feature-collection", "name": "Legal boundary"},
	{"nodeid": "g3", "nodegroup_id": "c2", "datatype": "geojson-feature-collection", "name": "Access route"},
	{"nodeid": "s1", "nodegroup_id": "c3", "datatype": "string", "name": "Site Name"}
]}]}`

const sites = "MAEASaM ID,Site Name,Site element geometry\n" +
	"S1,Hill,POINT (1 1)\n" +
	"S1,,POINT (2 2)\n"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFixtures(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	files := map[string]string{
		"model.json": model,
		"sites.csv":  sites,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := "job: cli-test\n" +
		"source: { kind: file, file: { path: " + filepath.Join(dir, "sites.csv") + " } }\n" +
		"schema: " + filepath.Join(dir, "model.json") + "\n" +
		"transform:\n  - kind: normalize\n" +
		"storage: { kind: csv, csv: { path: " + filepath.Join(dir, "out.csv") + " } }\n"
	cfgPath = filepath.Join(dir, "pipeline.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, cfgPath
}

func TestRunCommand(t *testing.T) {
	dir, cfgPath := writeFixtures(t)

	out, err := execute(t, "run", "--config", cfgPath)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "rows written:     2") {
		t.Fatalf("summary missing written count:\n%s", out)
	}
	b, err := os.ReadFile(filepath.Join(dir, "out.csv"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := "ResourceID,MAEASaM ID,Site Name,Site element geometry\n" +
		"S1,S1,Hill,POINT (1 1)\n" +
		"S1,S1,Hill,POINT (2 2)\n"
	if string(b) != want {
		t.Fatalf("output =\n%s\nwant\n%s", b, want)
	}
}

func TestValidateCommand(t *testing.T) {
	_, cfgPath := writeFixtures(t)

	out, err := execute(t, "validate", "-c", cfgPath)
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), ": ok") {
		t.Fatalf("output = %q", out)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"storage": {"kind": "parquet"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "validate", "-c", bad)
	if err == nil || !strings.Contains(out, "storage.kind") {
		t.Fatalf("validate bad config: err=%v out=%q", err, out)
	}
}

func TestCardsCommand(t *testing.T) {
	dir, _ := writeFixtures(t)

	out, err := execute(t, "cards", "--schema", filepath.Join(dir, "model.json"))
	if err != nil {
		t.Fatalf("cards: %v", err)
	}
	want := "CARD  N  GEOMETRY NODES\n" +
		"c1    2  Site element geometry; Legal boundary\n" +
		"c2    1  Access route\n"
	if out != want {
		t.Fatalf("cards output =\n%q\nwant\n%q", out, want)
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if _, err := execute(t, "run"); err == nil {
		t.Fatal("run without --config: want error")
	}
}

func TestProbeCommandDraftsLoadablePipeline(t *testing.T) {
	dir, _ := writeFixtures(t)

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"probe",
		"--input", filepath.Join(dir, "sites.csv"),
		"--schema", filepath.Join(dir, "model.json"),
	})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("probe: %v\n%s", err, stderr.String())
	}
	if !strings.Contains(stderr.String(), "geometry, in model") {
		t.Fatalf("column report missing geometry note:\n%s", stderr.String())
	}

	drafted := filepath.Join(dir, "drafted.yaml")
	if err := os.WriteFile(drafted, stdout.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "validate", "--config", drafted)
	if err != nil {
		t.Fatalf("drafted pipeline does not validate: %v\n%s\n%s", err, out, stdout.String())
	}
}
