package mite

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiscoveryOrder(t *testing.T) {
	r := NewRegistry()
	r.Register("example.com/static.Oracle", fakeFactory("static"))

	opener := &fakeOpener{modules: map[string]fakeModule{
		"b.so": registering("example.com/b.Sybase"),
		"a.so": registering("example.com/a.DB2", "example.com/a.Informix"),
	}}
	d := Discovery{
		Registry:  r,
		PluginDir: pluginDir(t, "b.so", "a.so", "readme.txt"),
		open:      opener.open,
	}

	names, err := collect(d)
	if err != nil {
		t.Fatal(err)
	}
	expected := []string{
		"example.com/static.Oracle",
		"example.com/a.DB2",
		"example.com/a.Informix",
		"example.com/b.Sybase",
	}
	if strings.Join(names, ",") != strings.Join(expected, ",") {
		t.Errorf("Expected candidates %v, got %v", expected, names)
	}
}

func TestDiscoveryRecordsPluginSource(t *testing.T) {
	opener := &fakeOpener{modules: map[string]fakeModule{
		"oracle.so": registering("example.com/oracle.Oracle"),
	}}
	d := Discovery{PluginDir: pluginDir(t, "oracle.so"), open: opener.open}

	for c, err := range d.Candidates() {
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasSuffix(c.Source, "oracle.so") {
			t.Errorf("Expected Source to be the module path, got '%s'", c.Source)
		}
		if c.Name != "Oracle" {
			t.Errorf("Expected short name Oracle, got '%s'", c.Name)
		}
	}
}

func TestDiscoveryRescansOnEveryCall(t *testing.T) {
	opener := &fakeOpener{modules: map[string]fakeModule{
		"oracle.so": registering("example.com/oracle.Oracle"),
	}}
	d := Discovery{PluginDir: pluginDir(t, "oracle.so"), open: opener.open}

	for i := 0; i < 2; i++ {
		if _, err := collect(d); err != nil {
			t.Fatal(err)
		}
	}
	if len(opener.opened) != 2 {
		t.Errorf("Expected 2 module opens, got %d", len(opener.opened))
	}
}

func TestDiscoveryIsLazy(t *testing.T) {
	r := NewRegistry()
	r.Register("example.com/static.Oracle", fakeFactory("static"))
	opener := &fakeOpener{modules: map[string]fakeModule{
		"sybase.so": registering("example.com/sybase.Sybase"),
	}}
	d := Discovery{Registry: r, PluginDir: pluginDir(t, "sybase.so"), open: opener.open}

	for range d.Candidates() {
		break
	}
	if len(opener.opened) != 0 {
		t.Errorf("Expected no modules to be opened after stopping early, got %v", opener.opened)
	}
}

func TestDiscoverySkipsBrokenModules(t *testing.T) {
	var str StrLog
	opener := &fakeOpener{modules: map[string]fakeModule{
		"good.so":      registering("example.com/good.Oracle"),
		"noentry.so":   {},
		"wrongtype.so": {PluginEntryPoint: func() {}},
		"panics.so": {PluginEntryPoint: func(r *Registry) {
			panic("init failed")
		}},
	}}
	d := Discovery{
		PluginDir: pluginDir(t, "broken.so", "good.so", "noentry.so", "panics.so", "wrongtype.so"),
		Logger:    &str,
		open:      opener.open,
	}

	names, err := collect(d)
	if err != nil {
		t.Fatalf("Expected broken modules to be skipped, got %v", err)
	}
	if len(names) != 1 || names[0] != "example.com/good.Oracle" {
		t.Errorf("Expected only the good module's candidate, got %v", names)
	}
	if !strings.Contains(string(str), "wrongtype.so") {
		t.Errorf("Expected the last skipped module to be logged, got '%s'", str)
	}
}

func TestDiscoveryStrictAbortsOnBrokenModule(t *testing.T) {
	opener := &fakeOpener{modules: map[string]fakeModule{
		"z.so": registering("example.com/z.Oracle"),
	}}
	d := Discovery{
		PluginDir: pluginDir(t, "broken.so", "z.so"),
		Strict:    true,
		open:      opener.open,
	}

	names, err := collect(d)
	var loadErr *ModuleLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected a *ModuleLoadError, got %v", err)
	}
	if !strings.HasSuffix(loadErr.Path, "broken.so") {
		t.Errorf("Expected the error to name broken.so, got '%s'", loadErr.Path)
	}
	if len(names) != 0 {
		t.Errorf("Expected discovery to stop at the broken module, got %v", names)
	}
	for _, opened := range opener.opened {
		if opened == "z.so" {
			t.Error("Expected z.so not to be opened after the failure")
		}
	}
}

func TestDiscoveryWithoutPluginDir(t *testing.T) {
	r := NewRegistry()
	r.Register("example.com/static.Oracle", fakeFactory("static"))
	opener := &fakeOpener{}
	d := Discovery{Registry: r, open: opener.open}

	names, err := collect(d)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 {
		t.Errorf("Expected 1 candidate, got %v", names)
	}
	if len(opener.opened) != 0 {
		t.Errorf("Expected no modules to be opened, got %v", opener.opened)
	}
}

func TestDiscoveryPluginDirWithGlobCharacters(t *testing.T) {
	for _, name := range []string{"plug[ins", "p[1]", "p*"} {
		t.Run(name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), name)
			if err := os.Mkdir(dir, 0o755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(filepath.Join(dir, "oracle.so"), nil, 0o600); err != nil {
				t.Fatal(err)
			}
			opener := &fakeOpener{modules: map[string]fakeModule{
				"oracle.so": registering("example.com/oracle.Oracle"),
			}}
			d := Discovery{PluginDir: dir, Strict: true, open: opener.open}

			names, err := collect(d)
			if err != nil {
				t.Fatal(err)
			}
			if len(names) != 1 || names[0] != "example.com/oracle.Oracle" {
				t.Errorf("Expected the module in %s to be found, got %v", dir, names)
			}
		})
	}
}

func TestDiscoveryMissingPluginDir(t *testing.T) {
	d := Discovery{PluginDir: filepath.Join(t.TempDir(), "absent"), Strict: true, open: (&fakeOpener{}).open}
	names, err := collect(d)
	if err != nil || len(names) != 0 {
		t.Errorf("Expected a missing plugin dir to hold no modules, got %v, %v", names, err)
	}
}

func TestDiscoveryUnreadablePluginDir(t *testing.T) {
	r := NewRegistry()
	r.Register("example.com/static.Oracle", fakeFactory("static"))
	notADir := filepath.Join(t.TempDir(), "plugins")
	if err := os.WriteFile(notADir, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	var str StrLog
	lenient := Discovery{Registry: r, PluginDir: notADir, Logger: &str, open: (&fakeOpener{}).open}
	names, err := collect(lenient)
	if err != nil {
		t.Fatalf("Expected lenient discovery to skip the plugin dir, got %v", err)
	}
	if len(names) != 1 {
		t.Errorf("Expected the registry candidate, got %v", names)
	}
	if !strings.Contains(string(str), notADir) {
		t.Errorf("Expected the unreadable dir to be logged, got '%s'", str)
	}

	strict := lenient
	strict.Strict = true
	_, err = collect(strict)
	var loadErr *ModuleLoadError
	if !errors.As(err, &loadErr) || loadErr.Path != notADir {
		t.Errorf("Expected a *ModuleLoadError for %s, got %v", notADir, err)
	}
}
