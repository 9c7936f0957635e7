// Package vm - debugger support, grounded in the teacher's
// pkg/vm/debugger.go: the same breakpoint/step/inspect/command-loop
// shape, adapted from the teacher's flat vm.stack/vm.locals/
// vm.callStack arrays to this VM's per-Context operand stack,
// Environment, and Context-chain model.
package vm

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kristofer/scheme/pkg/builder"
)

// Debugger provides interactive debugging capabilities for the VM.
type Debugger struct {
	vm          *VM
	breakpoints map[int]bool
	stepMode    bool
	enabled     bool
}

func NewDebugger(vm *VM) *Debugger {
	return &Debugger{vm: vm, breakpoints: make(map[int]bool)}
}

func (d *Debugger) Enable()              { d.enabled = true }
func (d *Debugger) Disable()             { d.enabled = false }
func (d *Debugger) SetStepMode(on bool)  { d.stepMode = on }
func (d *Debugger) AddBreakpoint(ip int) { d.breakpoints[ip] = true }
func (d *Debugger) RemoveBreakpoint(ip int) {
	delete(d.breakpoints, ip)
}
func (d *Debugger) ClearBreakpoints() { d.breakpoints = make(map[int]bool) }

// ShouldPause mirrors the teacher's check: disabled debuggers never
// pause, a no-op short-circuit that keeps dispatch semantics identical
// whether or not the debugger is attached.
func (d *Debugger) ShouldPause() bool {
	if !d.enabled {
		return false
	}
	if d.stepMode {
		return true
	}
	return d.breakpoints[d.vm.Current.IP]
}

func (d *Debugger) ShowCurrentInstruction() {
	ctx := d.vm.Current
	if ctx.IP >= len(ctx.Code.Instructions) {
		fmt.Println("No current instruction")
		return
	}
	instr := ctx.Code.Instructions[ctx.IP]
	fmt.Printf("  %4d: %-24s a=%d b=%d\n", ctx.IP, instr.Op, instr.A, instr.B)
}

func (d *Debugger) ShowStack() {
	ctx := d.vm.Current
	fmt.Println("Stack (top to bottom):")
	if len(ctx.Stack) == 0 {
		fmt.Println("  (empty)")
		return
	}
	for i := len(ctx.Stack) - 1; i >= 0; i-- {
		fmt.Printf("  [%d] %s\n", i, ctx.Stack[i].Write())
	}
}

func (d *Debugger) ShowLocals() {
	ctx := d.vm.Current
	fmt.Println("Local variables:")
	names := ctx.Env.Names()
	if len(names) == 0 {
		fmt.Println("  (none set)")
		return
	}
	for i, name := range names {
		fmt.Printf("  [%d] %s = %s\n", i, name, ctx.Env.Read(i).Write())
	}
}

func (d *Debugger) ShowGlobals() {
	fmt.Println("Global variables:")
	names := d.vm.Global.Names()
	if len(names) == 0 {
		fmt.Println("  (none)")
		return
	}
	for i, name := range names {
		fmt.Printf("  %s = %s\n", name, d.vm.Global.Read(i).Write())
	}
}

func (d *Debugger) ShowCallStack() {
	fmt.Println("Call stack (top to bottom):")
	if d.vm.Current == nil {
		fmt.Println("  (empty)")
		return
	}
	for c := d.vm.Current; c != nil; c = c.Prev {
		if c.ContinuationID != "" {
			fmt.Printf("  %s [IP: %d] (resumed continuation %s)\n", c.ProcName, c.IP, c.ContinuationID)
		} else {
			fmt.Printf("  %s [IP: %d]\n", c.ProcName, c.IP)
		}
	}
}

// InteractivePrompt is called when execution pauses at a breakpoint or
// in step mode; it returns false to abort execution.
func (d *Debugger) InteractivePrompt(code *builder.Code) (continueExecution bool) {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("\n=== Debugger Paused ===")
	d.ShowCurrentInstruction()

	for {
		fmt.Print("debug> ")
		if !scanner.Scan() {
			return false
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		switch parts[0] {
		case "help", "h", "?":
			d.printHelp()
		case "continue", "c":
			d.SetStepMode(false)
			return true
		case "step", "s":
			d.SetStepMode(true)
			return true
		case "next", "n":
			return true
		case "stack", "st":
			d.ShowStack()
		case "locals", "l":
			d.ShowLocals()
		case "globals", "g":
			d.ShowGlobals()
		case "callstack", "cs":
			d.ShowCallStack()
		case "instruction", "i":
			d.ShowCurrentInstruction()
		case "breakpoint", "b":
			if len(parts) < 2 {
				fmt.Println("Usage: breakpoint <instruction_number>")
				continue
			}
			ip, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("Invalid instruction number")
				continue
			}
			d.AddBreakpoint(ip)
			fmt.Printf("Breakpoint added at instruction %d\n", ip)
		case "delete", "d":
			if len(parts) < 2 {
				fmt.Println("Usage: delete <instruction_number>")
				continue
			}
			ip, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("Invalid instruction number")
				continue
			}
			d.RemoveBreakpoint(ip)
			fmt.Printf("Breakpoint removed at instruction %d\n", ip)
		case "list", "ls":
			d.listInstructions(code)
		case "quit", "q":
			return false
		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", parts[0])
		}
	}
}

func (d *Debugger) printHelp() {
	fmt.Println("Debugger Commands:")
	fmt.Println("  help, h, ?           Show this help")
	fmt.Println("  continue, c          Continue execution")
	fmt.Println("  step, s              Enable step mode (pause after each instruction)")
	fmt.Println("  next, n              Execute next instruction")
	fmt.Println("  stack, st            Show operand stack")
	fmt.Println("  locals, l            Show local variables")
	fmt.Println("  globals, g           Show global variables")
	fmt.Println("  callstack, cs        Show call (Context) stack")
	fmt.Println("  instruction, i       Show current instruction")
	fmt.Println("  breakpoint <n>, b    Add breakpoint at instruction n")
	fmt.Println("  delete <n>, d        Remove breakpoint at instruction n")
	fmt.Println("  list, ls             List all instructions")
	fmt.Println("  quit, q              Quit debugging (abort execution)")
}

func (d *Debugger) listInstructions(code *builder.Code) {
	fmt.Println("Instructions:")
	for i, instr := range code.Instructions {
		marker := "  "
		if i == d.vm.Current.IP {
			marker = "->"
		} else if d.breakpoints[i] {
			marker = "*"
		}
		fmt.Printf("%s %4d: %-24s a=%d b=%d\n", marker, i, instr.Op, instr.A, instr.B)
	}
}
