// Package importer resolves module import paths to loaded modules: scripted
// text/binary modules found on disk, or shared-library modules loaded
// through a single exported factory symbol. Grounded on
// original_source/src/vm/load_module.cpp (path resolution, stdlib-root
// detection, module caching) and include/loader/*.
package importer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"runtime"
	"strings"

	"github.com/MeowNBK/meow-vm-legacy/internal/engine"
	"github.com/MeowNBK/meow-vm-legacy/internal/heap"
	"github.com/MeowNBK/meow-vm-legacy/internal/loader"
	"github.com/MeowNBK/meow-vm-legacy/internal/value"
)

// sharedLibExt is the platform's dynamic-library extension used when a
// bare module name (no extension) is resolved as a candidate shared
// library, mirroring load_module.cpp's platform #ifdef.
func sharedLibExt() string {
	switch runtime.GOOS {
	case "windows":
		return ".dll"
	case "darwin":
		return ".dylib"
	default:
		return ".so"
	}
}

// CreateMeowModule is the signature every shared-library module must
// export under that exact symbol name.
type CreateMeowModule func(eng engine.Engine) *value.Module

// Importer resolves and caches modules. One Importer is created per
// interpreter instance and shared by every IMPORT_MODULE dispatch.
type Importer struct {
	heap          *heap.Heap
	cache         map[string]*value.Module
	nativeGlobals map[string]value.Value
	stdlibRoot    string
	entryDir      string

	// openPlugin is swapped out in tests; production wiring is
	// plugin.Open/Lookup.
	openPlugin func(path string) (CreateMeowModule, error)
}

// New constructs an Importer. entryDir is the directory of the
// originally-invoked entry file, used as the base directory for imports
// performed by the entry module itself. nativeGlobals is copied into
// every freshly-loaded scripted module's globals before its @main runs,
// so native builtins are implicitly available without an explicit import.
func New(h *heap.Heap, entryDir string, nativeGlobals map[string]value.Value) *Importer {
	return &Importer{
		heap:          h,
		cache:         make(map[string]*value.Module),
		nativeGlobals: nativeGlobals,
		stdlibRoot:    detectStdlibRoot(),
		entryDir:      entryDir,
		openPlugin:    openRealPlugin,
	}
}

func openRealPlugin(path string) (CreateMeowModule, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	sym, err := p.Lookup("CreateMeowModule")
	if err != nil {
		return nil, err
	}
	fn, ok := sym.(func(engine.Engine) *value.Module)
	if !ok {
		return nil, fmt.Errorf("%s: CreateMeowModule has the wrong signature", path)
	}
	return fn, nil
}

// detectStdlibRoot mirrors load_module.cpp's detectStdlibRoot_cached: it
// runs once per process (New is called once per interpreter) and never
// refreshes afterward.
func detectStdlibRoot() string {
	exe, err := os.Executable()
	if err != nil {
		wd, _ := os.Getwd()
		return wd
	}
	exeDir := filepath.Dir(exe)

	rootFile := filepath.Join(exeDir, "meow-root")
	if data, err := os.ReadFile(rootFile); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			return strings.ReplaceAll(line, "$ORIGIN", exeDir)
		}
	}

	if filepath.Base(exeDir) == "bin" {
		return filepath.Dir(exeDir)
	}
	return exeDir
}

// Resolve imports path as seen from the module located at fromDir,
// returning the (possibly freshly-loaded, possibly cached) module. The
// caller (the interpreter) is responsible for running @main when the
// returned module reports HasMain && !IsExecuted && !IsExecuting: a
// currently-executing module is returned as-is per spec, so a nested
// self-import never re-enters.
func (imp *Importer) Resolve(path, fromDir string, eng engine.Engine) (*value.Module, error) {
	if cached, ok := imp.cache[path]; ok {
		return cached, nil
	}

	if !isScriptExtension(path) {
		if mod, resolved, err := imp.tryLoadSharedLibrary(path, fromDir, eng); err != nil {
			return nil, err
		} else if mod != nil {
			imp.cache[path] = mod
			if resolved != "" {
				imp.cache[resolved] = mod
			}
			return mod, nil
		}
	}

	return imp.loadScripted(path, fromDir)
}

func isScriptExtension(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".meow" || ext == ".meowb"
}

// tryLoadSharedLibrary walks a fixed resolution order for a non-script
// path, returning (nil, "", nil) when no shared-library
// candidate exists on disk so the caller falls through to the scripted
// loader.
func (imp *Importer) tryLoadSharedLibrary(path, fromDir string, eng engine.Engine) (*value.Module, string, error) {
	ext := sharedLibExt()
	candidate := path
	if filepath.Ext(candidate) != ext {
		candidate += ext
	}

	var search []string
	if filepath.IsAbs(candidate) {
		search = append(search, candidate)
	} else {
		root := imp.stdlibRoot
		search = append(search,
			filepath.Join(root, candidate),
			filepath.Join(root, "lib", candidate),
			filepath.Join(root, "stdlib", candidate),
			filepath.Join(root, "bin", "stdlib", candidate),
			filepath.Join(root, "bin", candidate),
			filepath.Join(root, "..", "bin", "stdlib", candidate),
			filepath.Join(imp.baseDir(fromDir), candidate),
		)
	}

	for _, resolved := range search {
		if _, err := os.Stat(resolved); err != nil {
			continue
		}
		factory, err := imp.openPlugin(resolved)
		if err != nil {
			return nil, "", fmt.Errorf("loading shared library %q: %w", resolved, err)
		}
		mod := factory(eng)
		if mod == nil {
			return nil, "", fmt.Errorf("%s: CreateMeowModule returned no module", resolved)
		}
		mod.Path = resolved
		mod.IsExecuted = true
		return mod, resolved, nil
	}

	return nil, "", nil
}

func (imp *Importer) baseDir(fromDir string) string {
	if fromDir != "" {
		return fromDir
	}
	return imp.entryDir
}

// loadScripted loads path as a textual or binary module from disk,
// relative to baseDir. The returned module's @main has not been run.
func (imp *Importer) loadScripted(path, fromDir string) (*value.Module, error) {
	base := imp.baseDir(fromDir)
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(base, path)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("import %q: %w", path, err)
	}

	var protos map[string]*value.FunctionProto
	isBinary := filepath.Ext(full) == ".meowb"
	if isBinary {
		protos, err = loader.ParseBinary(imp.heap, bytes.NewReader(data))
	} else {
		protos, err = loader.ParseText(imp.heap, string(data), full)
	}
	if err != nil {
		return nil, fmt.Errorf("import %q: %w", path, err)
	}

	mod := value.NewModule(path, full, isBinary)
	heap.NewObject(imp.heap, mod)
	for name, v := range imp.nativeGlobals {
		mod.Globals[name] = v
	}

	if main, ok := protos["@main"]; ok {
		mod.MainProto = main
		mod.HasMain = true
	} else {
		return nil, fmt.Errorf("import %q: module has no @main prototype", path)
	}

	imp.cache[path] = mod
	imp.cache[full] = mod
	return mod, nil
}

// Modules returns every distinct module currently cached, for the GC root
// walk: a module reachable only through the import cache (no script holds
// it in a register any more) must still keep its globals/exports alive.
func (imp *Importer) Modules() []*value.Module {
	seen := make(map[*value.Module]bool, len(imp.cache))
	out := make([]*value.Module, 0, len(imp.cache))
	for _, mod := range imp.cache {
		if !seen[mod] {
			seen[mod] = true
			out = append(out, mod)
		}
	}
	return out
}

// PreloadStdlib attempts to load each of the given module names as a
// shared library at VM start, matching define_natives.cpp's silent-failure
// preload of array/object/string. Failures are swallowed: a missing
// standard-library shared object is not fatal to starting the VM.
func (imp *Importer) PreloadStdlib(names []string, eng engine.Engine) {
	for _, name := range names {
		_, _ = imp.Resolve(name, imp.entryDir, eng)
	}
}
