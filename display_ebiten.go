// display_ebiten.go - Ebiten display backend

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

/*
display_ebiten.go - Windowed Display Backend

Presents the simulated render target in an Ebiten window. The
simulator pushes frames with UpdateFrame; the Ebiten game loop pulls
the latest frame each draw. Useful when watching a batch render
interactively rather than dumping files.
*/

package main

import (
	"fmt"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
)

type EbitenDisplayOutput struct {
	running     bool
	window      *ebiten.Image
	width       int
	height      int
	scale       int
	frameBuffer []byte
	bufferMutex sync.RWMutex
	frameCount  uint64
	vsyncChan   chan struct{}
}

func NewEbitenDisplayOutput() *EbitenDisplayOutput {
	return &EbitenDisplayOutput{
		width:       640,
		height:      480,
		scale:       1,
		frameBuffer: make([]byte, 640*480*4),
		vsyncChan:   make(chan struct{}, 1),
	}
}

func (eo *EbitenDisplayOutput) Start() error {
	if eo.running {
		return nil
	}
	eo.running = true
	ebiten.SetWindowSize(eo.width*eo.scale, eo.height*eo.scale)
	ebiten.SetWindowTitle("IntuitionGT (c) 2025 - 2026 Zayn Otley")
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)

	go func() {
		if err := ebiten.RunGame(eo); err != nil {
			fmt.Printf("Ebiten error: %v\n", err)
		}
	}()

	// Wait for the first Draw call to ensure Ebiten is ready.
	<-eo.vsyncChan
	return nil
}

func (eo *EbitenDisplayOutput) Stop() error {
	eo.running = false
	return nil
}

func (eo *EbitenDisplayOutput) IsStarted() bool {
	return eo.running
}

func (eo *EbitenDisplayOutput) SetDisplayConfig(config DisplayConfig) error {
	eo.bufferMutex.Lock()
	defer eo.bufferMutex.Unlock()

	width := config.Width
	height := config.Height
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 480
	}
	eo.width = width
	eo.height = height
	if config.Scale > 0 {
		eo.scale = config.Scale
	}

	newSize := eo.width * eo.height * 4
	if len(eo.frameBuffer) != newSize {
		eo.frameBuffer = make([]byte, newSize)
	}
	return nil
}

func (eo *EbitenDisplayOutput) GetDisplayConfig() DisplayConfig {
	eo.bufferMutex.RLock()
	defer eo.bufferMutex.RUnlock()
	return DisplayConfig{Width: eo.width, Height: eo.height, Scale: eo.scale}
}

func (eo *EbitenDisplayOutput) UpdateFrame(buffer []byte) error {
	eo.bufferMutex.Lock()
	copy(eo.frameBuffer, buffer)
	eo.frameCount++
	eo.bufferMutex.Unlock()
	return nil
}

func (eo *EbitenDisplayOutput) GetFrameCount() uint64 {
	eo.bufferMutex.RLock()
	defer eo.bufferMutex.RUnlock()
	return eo.frameCount
}

/* Ebiten game loop */

func (eo *EbitenDisplayOutput) Update() error {
	return nil
}

func (eo *EbitenDisplayOutput) Draw(screen *ebiten.Image) {
	eo.bufferMutex.RLock()
	if eo.window == nil || eo.window.Bounds().Dx() != eo.width || eo.window.Bounds().Dy() != eo.height {
		eo.window = ebiten.NewImage(eo.width, eo.height)
	}
	eo.window.WritePixels(eo.frameBuffer)
	eo.bufferMutex.RUnlock()

	screen.DrawImage(eo.window, nil)

	select {
	case eo.vsyncChan <- struct{}{}:
	default:
	}
}

func (eo *EbitenDisplayOutput) Layout(outsideWidth, outsideHeight int) (int, int) {
	eo.bufferMutex.RLock()
	defer eo.bufferMutex.RUnlock()
	return eo.width, eo.height
}
