// main.go - Main entry point for the IntuitionGT simulator

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
Buy me a coffee: https://ko-fi.com/intuition/tip

License: GPLv3 or later
*/

package main

import (
	"flag"
	"fmt"
	"os"
)

func boilerPlate() {
	fmt.Println("IntuitionGT - a functional simulator of a modern GPU's 3D and compute pipeline.")
	fmt.Println("(c) 2025 - 2026 Zayn Otley")
	fmt.Println("https://github.com/IntuitionAmiga/IntuitionGT")
	fmt.Println("License: GPLv3 or later")
}

func main() {
	var (
		imagePath   = flag.String("image", "", "guest memory image file")
		batchAddr   = flag.Uint64("batch", 0, "batch buffer start address")
		traceSpec   = flag.String("trace", "", "trace categories (cs,vf,vs,ps,urb,eu,warn,all)")
		framebuffer = flag.String("framebuffer", "", "dump the render target here on flush (.png or .bmp)")
		display     = flag.String("display", DISPLAY_BACKEND_HEADLESS, "display backend (headless, ebiten)")
		quiet       = flag.Bool("quiet", false, "suppress the startup banner")
	)
	flag.Parse()

	if !*quiet {
		boilerPlate()
	}

	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "usage: intuitiongt -image <memory image> -batch <address>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	mask, err := ParseTraceMask(*traceSpec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	traceMask = mask

	mem, err := LoadImage(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	out, err := NewDisplayOutput(*display)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := out.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize display: %v\n", err)
		os.Exit(1)
	}
	defer out.Stop()

	gt := NewGT(mem)
	gt.FramebufferPath = *framebuffer
	gt.Display = out

	if err := gt.StartBatchBuffer(*batchAddr); err != nil {
		fmt.Fprintf(os.Stderr, "Batch failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("batch complete: %d vertices, %d primitives, %d vs threads, %d ps threads\n",
		gt.IAVerticesCount, gt.IAPrimitivesCount, gt.VSInvocationCount, gt.PSInvocationCount)
}
