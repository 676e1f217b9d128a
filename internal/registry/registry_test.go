package registry

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"krxdb/model"
)

func writeRegistry(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fields.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write registry fixture: %v", err)
	}
	return path
}

func TestLoadResolvesField(t *testing.T) {
	path := writeRegistry(t, `
fields:
  close:
    table: snapshots
    column: tdd_clsprc
    adjustable: true
  volume:
    table: snapshots
    column: acc_trdvol
    adjustable: false
`)
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	entry, err := r.Resolve("close")
	if err != nil {
		t.Fatalf("Resolve(close) failed: %v", err)
	}
	if entry.Table != "snapshots" || entry.Column != "tdd_clsprc" || !entry.Adjustable {
		t.Errorf("unexpected entry for close: %+v", entry)
	}
}

func TestLoadMalformedYAMLIsConfigError(t *testing.T) {
	path := writeRegistry(t, "fields: [not, a, map")
	_, err := Load(path)
	var configErr *model.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected *model.ConfigError, got %T (%v)", err, err)
	}
}

func TestLoadEmptyFieldsIsConfigError(t *testing.T) {
	path := writeRegistry(t, "fields: {}\n")
	_, err := Load(path)
	var configErr *model.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected *model.ConfigError, got %T (%v)", err, err)
	}
}

func TestLoadMissingFileIsConfigError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var configErr *model.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected *model.ConfigError, got %T (%v)", err, err)
	}
}

func TestResolveUnknownFieldCarriesKnownFields(t *testing.T) {
	r := Default()
	_, err := r.Resolve("does_not_exist")
	var regErr *model.RegistryError
	if !errors.As(err, &regErr) {
		t.Fatalf("expected *model.RegistryError, got %T (%v)", err, err)
	}
	if len(regErr.Known) == 0 {
		t.Error("expected RegistryError.Known to list known fields")
	}
	found := false
	for _, f := range regErr.Known {
		if f == "close" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected known-fields list to include 'close', got %v", regErr.Known)
	}
}

func TestDefaultSeparatesOriginalAndDerivedFields(t *testing.T) {
	r := Default()

	original := r.ListOriginalFields()
	derived := r.ListDerivedFields()
	all := r.ListFields()

	sort.Strings(original)
	sort.Strings(derived)
	sort.Strings(all)

	if len(original)+len(derived) != len(all) {
		t.Errorf("original (%d) + derived (%d) should partition all fields (%d)", len(original), len(derived), len(all))
	}

	hasDerived := func(name string) bool {
		for _, f := range derived {
			if f == name {
				return true
			}
		}
		return false
	}
	if !hasDerived("adjustment_factor") || !hasDerived("liquidity_rank") {
		t.Errorf("expected adjustment_factor and liquidity_rank to be derived fields, got %v", derived)
	}
}

func TestDefaultOnlyPriceFieldsAreAdjustable(t *testing.T) {
	r := Default()
	for _, name := range r.ListFields() {
		entry, err := r.Resolve(name)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", name, err)
		}
		switch name {
		case "close", "base_price", "price_change":
			if !entry.Adjustable {
				t.Errorf("expected %s to be adjustable", name)
			}
		default:
			if entry.Adjustable {
				t.Errorf("expected %s to be non-adjustable", name)
			}
		}
	}
}
