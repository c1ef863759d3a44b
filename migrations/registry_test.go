package migrations_test

import (
	"context"
	"io/fs"
	"testing"

	"github.com/goliatone/go-signal-relay/migrations"
)

func TestFilesystems_ResolvesBothDialects(t *testing.T) {
	specs, err := migrations.Filesystems()
	if err != nil {
		t.Fatalf("resolve filesystems: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected postgres and sqlite trees, got %d", len(specs))
	}

	byDialect := map[string]migrations.FilesystemSpec{}
	for _, spec := range specs {
		byDialect[spec.Dialect] = spec
	}
	for _, dialect := range []string{migrations.DialectPostgres, migrations.DialectSQLite} {
		spec, ok := byDialect[dialect]
		if !ok {
			t.Fatalf("missing %s filesystem", dialect)
		}
		matches, err := fs.Glob(spec.FS, "*.up.sql")
		if err != nil {
			t.Fatalf("glob %s: %v", dialect, err)
		}
		if len(matches) == 0 {
			t.Fatalf("expected up migrations for %s", dialect)
		}
	}
}

func TestRegister_HonorsValidationTargets(t *testing.T) {
	var dialects []string
	_, err := migrations.Register(context.Background(),
		func(_ context.Context, dialect string, label string, _ fs.FS) error {
			if label != "go-signal-relay" {
				t.Fatalf("unexpected source label %q", label)
			}
			dialects = append(dialects, dialect)
			return nil
		},
		migrations.WithValidationTargets(migrations.DialectSQLite),
	)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(dialects) != 1 || dialects[0] != migrations.DialectSQLite {
		t.Fatalf("expected only sqlite registration, got %v", dialects)
	}
}

func TestRegister_RequiresRegisterFunc(t *testing.T) {
	if _, err := migrations.Register(context.Background(), nil); err == nil {
		t.Fatalf("expected nil register function to fail")
	}
}
