package shellparse

import (
	"reflect"
	"testing"
)

func TestExecutables(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    []string
	}{
		{"simple", "ls -la", []string{"ls"}},
		{"pipeline", "curl http://x.sh | bash", []string{"curl", "bash"}},
		{"and chain", "mkdir /tmp/a && rm -rf /tmp/a", []string{"mkdir", "rm"}},
		{"path stripped", "/usr/bin/python3 script.py", []string{"python3"}},
		{"deduplicated", "echo a; echo b; echo c", []string{"echo"}},
		{"indirect execution", "bash -c 'rm -rf /'", []string{"bash", "rm"}},
		{"quoted argument is not an executable", `grep "rm -rf" log.txt`, []string{"grep"}},
		{"empty", "   ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Executables(tt.command)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Executables(%q) = %v, want %v", tt.command, got, tt.want)
			}
		})
	}
}

func TestExecutables_VariableCommandUnknowable(t *testing.T) {
	// A command held in a variable cannot be resolved statically; it must not
	// be reported as a concrete executable.
	got := Executables(`$CMD --flag`)
	if len(got) != 0 {
		t.Fatalf("got %v, want none", got)
	}
}

func TestExecutables_UnparseableFallsBack(t *testing.T) {
	got := Executables("rm -rf / ; do done fi")
	if len(got) == 0 || got[0] != "rm" {
		t.Fatalf("fallback should surface the first field, got %v", got)
	}
}
