// trace.go - Category-filtered tracing for the IntuitionGT simulator

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2025 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionGT

License: GPLv3 or later
*/

/*
trace.go - Category-Filtered Tracing

Every pipeline stage emits single-line trace records tagged with a
category. A bitmask selects which categories reach the sink, so a run
can be narrowed to, say, just command-stream decode or just EU
execution. Warnings are always emitted regardless of the mask.

Categories:

    CS   - command-stream packet decode
    VF   - vertex fetch
    VS   - vertex shader dispatch
    PS   - pixel shader dispatch
    URB  - URB send messages
    EU   - shader instruction execution
    WARN - bounds warnings and stubbed functionality

Output ordering within a batch is source order; the sink is an
append-only line writer. Colour is applied to warning lines only when
the sink is an interactive terminal.
*/

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	TRACE_CS uint32 = 1 << iota
	TRACE_VF
	TRACE_VS
	TRACE_PS
	TRACE_URB
	TRACE_EU
	TRACE_WARN
)

var traceCategories = map[string]uint32{
	"cs":   TRACE_CS,
	"vf":   TRACE_VF,
	"vs":   TRACE_VS,
	"ps":   TRACE_PS,
	"urb":  TRACE_URB,
	"eu":   TRACE_EU,
	"warn": TRACE_WARN,
	"all":  0xffffffff,
}

var (
	traceMask   uint32 = TRACE_WARN
	traceWriter io.Writer = os.Stdout
	traceColour        = term.IsTerminal(int(os.Stdout.Fd()))
)

// ParseTraceMask converts a comma-separated category list ("cs,eu" or
// "all") into a trace bitmask.
func ParseTraceMask(spec string) (uint32, error) {
	var mask uint32 = TRACE_WARN
	if spec == "" {
		return mask, nil
	}
	for _, name := range strings.Split(spec, ",") {
		bit, ok := traceCategories[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("unknown trace category %q", name)
		}
		mask |= bit
	}
	return mask, nil
}

func gtTrace(category uint32, format string, args ...interface{}) {
	if traceMask&category == 0 {
		return
	}
	fmt.Fprintf(traceWriter, format, args...)
}

func gtWarn(format string, args ...interface{}) {
	if traceColour {
		fmt.Fprintf(traceWriter, "\033[33mwarn:\033[0m "+format, args...)
	} else {
		fmt.Fprintf(traceWriter, "warn: "+format, args...)
	}
}

// stub records recognized but unimplemented functionality. The
// operation is skipped; execution continues.
func stub(format string, args ...interface{}) {
	gtWarn("stub: "+format+"\n", args...)
}

// gtAssert guards hardware invariants. A violation means the command
// stream or the simulator state is corrupt and the batch cannot
// continue.
func gtAssert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("assertion failed: "+format, args...))
	}
}
