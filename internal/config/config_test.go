package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindConfig_Explicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	os.WriteFile(path, []byte("database_path: x.db\n"), 0600)

	got, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig(%q) error: %v", path, err)
	}
	if got != path {
		t.Errorf("FindConfig(%q) = %q, want %q", path, got, path)
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	_, err := FindConfig("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("FindConfig with missing explicit path should error")
	}
}

func TestFindConfig_SearchPath(t *testing.T) {
	// Override searchPathsFunc to avoid finding real config files on
	// developer/deploy machines (/etc/smldaq/config.yaml etc.).
	dir := t.TempDir()
	orig := searchPathsFunc
	searchPathsFunc = func() []string {
		return []string{filepath.Join(dir, "config.yaml")}
	}
	defer func() { searchPathsFunc = orig }()

	_, err := FindConfig("")
	if err == nil {
		t.Fatal("FindConfig(\"\") with no config files should error")
	}
}

func TestFindConfig_CWD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("database_path: x.db\n"), 0600)

	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	got, err := FindConfig("")
	if err != nil {
		t.Fatalf("FindConfig(\"\") error: %v", err)
	}
	if got != "config.yaml" {
		t.Errorf("FindConfig(\"\") = %q, want %q", got, "config.yaml")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("meters: []\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.DatabasePath == "" {
		t.Error("expected default database path")
	}
	if cfg.Listen.Raw == "" {
		t.Error("expected default raw listen address")
	}
	if cfg.LogInterval == 0 {
		t.Error("expected default log interval")
	}
}

func TestLoadMeters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte(`
meters:
  - index: 0
    name: Hauptwohnung
    serial_device: /dev/ttyUSB0
    positions:
      - obis: "0100010800ff"
        label: consumption
        type: number
`), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(cfg.Meters) != 1 {
		t.Fatalf("len(Meters) = %d, want 1", len(cfg.Meters))
	}
	if cfg.Meters[0].Name != "Hauptwohnung" {
		t.Errorf("Name = %q", cfg.Meters[0].Name)
	}
	if cfg.Meters[0].Positions[0].Obis != "0100010800ff" {
		t.Errorf("Obis = %q", cfg.Meters[0].Positions[0].Obis)
	}
}

func TestValidateRejectsSparseIndices(t *testing.T) {
	cfg := &Config{
		Meters: []MeterConfig{
			{Index: 0, Name: "a"},
			{Index: 2, Name: "b"},
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for sparse meter indices")
	}
}

func TestValidateRejectsDuplicateIndices(t *testing.T) {
	cfg := &Config{
		Meters: []MeterConfig{
			{Index: 0, Name: "a"},
			{Index: 0, Name: "b"},
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for duplicate meter indices")
	}
}

func TestValidateRejectsTooManyPositions(t *testing.T) {
	cfg := &Config{
		Meters: []MeterConfig{
			{Index: 0, Name: "a", Positions: make([]PositionConfig, MaxPositions+1)},
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for too many positions")
	}
}

func TestValidateAcceptsEmptyMeterList(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := &Config{LogLevel: "not-a-level"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}
