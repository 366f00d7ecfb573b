package executor

import (
	"path/filepath"
	"strings"
)

// Registry maps program file extensions to the interpreter argv that runs them.
type Registry struct {
	entries []entry
}

type entry struct {
	ext         string
	interpreter []string
}

// NewRegistry creates an empty interpreter registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry runs .py scripts with python and .sh scripts with sh.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(".py", "python")
	r.Register(".sh", "sh")
	return r
}

// Register associates an extension (e.g., ".py") with an interpreter argv.
// Registering an extension again replaces the previous interpreter; an empty
// argv removes it.
func (r *Registry) Register(ext string, interpreter ...string) {
	ext = normalizeExt(ext)
	for i, e := range r.entries {
		if e.ext == ext {
			if len(interpreter) == 0 {
				r.entries = append(r.entries[:i], r.entries[i+1:]...)
				return
			}
			r.entries[i].interpreter = interpreter
			return
		}
	}
	if len(interpreter) == 0 {
		return
	}
	r.entries = append(r.entries, entry{ext: ext, interpreter: interpreter})
}

// Detect returns the interpreter registered for program's extension.
func (r *Registry) Detect(program string) ([]string, bool) {
	if r == nil {
		return nil, false
	}
	ext := strings.ToLower(filepath.Ext(program))
	for _, e := range r.entries {
		if e.ext == ext {
			return e.interpreter, true
		}
	}
	return nil, false
}

// Resolve returns the full argv for command, prefixed with its interpreter
// when one is registered. The input slice is never modified.
func (r *Registry) Resolve(command []string) []string {
	if len(command) == 0 {
		return nil
	}
	interpreter, ok := r.Detect(command[0])
	argv := make([]string, 0, len(interpreter)+len(command))
	if ok {
		argv = append(argv, interpreter...)
	}
	return append(argv, command...)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
