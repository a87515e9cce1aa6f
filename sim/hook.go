package sim

// HookPos defines the enum of possible hooking positions
type HookPos struct {
	Name string
}

// HookCtx is the context that holds all the information about the site that
// a hook is triggered
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   interface{}
	Detail interface{}
}

// Hookable defines an object that accept Hooks
type Hookable interface {
	// AcceptHook registers a hook
	AcceptHook(hook Hook)
}

// HookPosBeforeStep is a hook position that triggers before a timestep runs.
var HookPosBeforeStep = &HookPos{Name: "BeforeStep"}

// HookPosAfterStep is a hook position that triggers after a timestep runs.
var HookPosAfterStep = &HookPos{Name: "AfterStep"}

// HookPosBeforeModuleStep triggers before one module's step within a
// timestep. The hook context Item is the module.
var HookPosBeforeModuleStep = &HookPos{Name: "BeforeModuleStep"}

// HookPosAfterModuleStep triggers after one module's step within a
// timestep. The hook context Item is the module.
var HookPosAfterModuleStep = &HookPos{Name: "AfterModuleStep"}

// HookPosSimFinalize triggers once, when the simulation finalizes.
var HookPosSimFinalize = &HookPos{Name: "SimFinalize"}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// A HookableBase provides some utility function for other type that
// implement the Hookable interface.
type HookableBase struct {
	Hooks []Hook
}

// NewHookableBase creates a HookableBase object
func NewHookableBase() *HookableBase {
	h := new(HookableBase)
	h.Hooks = make([]Hook, 0)
	return h
}

// AcceptHook register a hook
func (h *HookableBase) AcceptHook(hook Hook) {
	h.Hooks = append(h.Hooks, hook)
}

// InvokeHook triggers the register Hooks
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.Hooks {
		hook.Func(ctx)
	}
}
