package vm

import (
	"path/filepath"

	"github.com/MeowNBK/meow-vm-legacy/internal/value"
)

// opImportModule handles IMPORT_MODULE: [dst, pathConst]. Resolves (or
// fetches from cache) the named module, binds it into dst, and — if its
// @main has neither run nor is currently running — schedules it by pushing
// a frame, exactly the way a CALL would, rather than running it to
// completion inline. Grounded on module.cpp's opImportModule, with the
// IsExecuted-only-after-completion correction described on
// callFrame.IsModuleMain and runModuleMain.
func (it *Interpreter) opImportModule(f *callFrame, inst value.Instruction) {
	dst, pathIdx := inst.Args[0], inst.Args[1]
	path := it.constName(f, pathIdx, "IMPORT_MODULE")

	fromDir := filepath.Dir(f.Module.Path)
	mod, err := it.imp.Resolve(path, fromDir, it)
	if err != nil {
		it.raise("%s", err.Error())
	}
	it.setReg(f, dst, value.Obj(mod))

	if mod.HasMain && !mod.IsExecuted && !mod.IsExecuting {
		mod.IsExecuting = true
		closure := &value.Closure{Proto: mod.MainProto}
		child := it.pushFrame(closure, mod, len(it.stack), 0, noDest)
		child.IsModuleMain = true
	}
}

// opExport handles EXPORT: [nameConst, srcReg]. Grounded on module.cpp's
// opExport.
func (it *Interpreter) opExport(f *callFrame, inst value.Instruction) {
	nameIdx, srcReg := inst.Args[0], inst.Args[1]
	name := it.constName(f, nameIdx, "EXPORT")
	f.Module.Exports[name] = it.reg(f, srcReg)
}

// opGetExport and opGetModuleExport both handle [dst, moduleReg, nameConst]
// against a module value's exports; the original implements them
// identically (GET_EXPORT predates GET_MODULE_EXPORT as a synonym kept for
// compatibility). Grounded on module.cpp's opGetExport/opGetModuleExport.
func (it *Interpreter) opGetExport(f *callFrame, inst value.Instruction) {
	it.getModuleExport(f, inst, "GET_EXPORT")
}

func (it *Interpreter) opGetModuleExport(f *callFrame, inst value.Instruction) {
	it.getModuleExport(f, inst, "GET_MODULE_EXPORT")
}

func (it *Interpreter) getModuleExport(f *callFrame, inst value.Instruction, opName string) {
	dst, moduleReg, nameIdx := inst.Args[0], inst.Args[1], inst.Args[2]
	modVal := it.reg(f, moduleReg)
	if !modVal.IsModule() {
		it.raise("%s can only be used on a module value", opName)
	}
	name := it.constName(f, nameIdx, opName)
	mod := modVal.AsModule()
	v, ok := mod.Exports[name]
	if !ok {
		it.raise("module '%s' has no export '%s'", mod.Name, name)
	}
	it.setReg(f, dst, v)
}

// opImportAll handles IMPORT_ALL: [moduleReg]. Copies every export of the
// named module into the current module's globals. Grounded on module.cpp's
// opImportAll.
func (it *Interpreter) opImportAll(f *callFrame, inst value.Instruction) {
	moduleReg := inst.Args[0]
	modVal := it.reg(f, moduleReg)
	if !modVal.IsModule() {
		it.raise("IMPORT_ALL can only be used on a module value")
	}
	for name, v := range modVal.AsModule().Exports {
		f.Module.Globals[name] = v
	}
}
