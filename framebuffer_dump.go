// framebuffer_dump.go - Render target readback and image dumping

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
framebuffer_dump.go - Render Target Readback

Reads the bound render target back into a plain RGBA image,
de-tiling as needed, and encodes it to PNG or BMP depending on the
output file extension. The same readback feeds the display backend.
*/

package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
)

// surfaceToImage reads one pixel surface back as RGBA, undoing the
// tiling layout.
func surfaceToImage(rt *Surface) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, int(rt.Width), int(rt.Height)))

	for y := uint32(0); y < rt.Height; y++ {
		for x := uint32(0); x < rt.Width; x++ {
			var off uint32
			switch rt.TileMode {
			case TILE_LINEAR:
				off = y*rt.Stride + x*rt.CPP
			case TILE_XMAJOR:
				off = xTileOffset(x, y, rt.CPP, rt.Stride)
			case TILE_YMAJOR:
				off = yTileOffset(x, y, rt.CPP, rt.Stride)
			default:
				return nil, fmt.Errorf("unsupported tile mode %d", rt.TileMode)
			}

			dst := img.PixOffset(int(x), int(y))
			switch rt.Format {
			case SF_B8G8R8A8_UNORM, SF_B8G8R8A8_UNORM_SRGB,
				SF_B8G8R8X8_UNORM, SF_B8G8R8X8_UNORM_SRGB:
				img.Pix[dst+0] = rt.Pixels[off+2]
				img.Pix[dst+1] = rt.Pixels[off+1]
				img.Pix[dst+2] = rt.Pixels[off+0]
				img.Pix[dst+3] = rt.Pixels[off+3]
			case SF_R8G8B8A8_UNORM, SF_R8G8B8A8_UNORM_SRGB, SF_R8G8B8X8_UNORM:
				copy(img.Pix[dst:dst+4], rt.Pixels[off:off+4])
			case SF_R16G16B16A16_UNORM:
				img.Pix[dst+0] = rt.Pixels[off+1]
				img.Pix[dst+1] = rt.Pixels[off+3]
				img.Pix[dst+2] = rt.Pixels[off+5]
				img.Pix[dst+3] = rt.Pixels[off+7]
			case SF_R8_UNORM, SF_R8_UINT:
				v := rt.Pixels[off]
				img.Pix[dst+0] = v
				img.Pix[dst+1] = v
				img.Pix[dst+2] = v
				img.Pix[dst+3] = 0xff
			default:
				return nil, fmt.Errorf("unsupported readback format 0x%03x", rt.Format)
			}
		}
	}

	return img, nil
}

// dumpFramebuffer writes the render target to path; the extension
// picks PNG or BMP.
func (gt *GT) dumpFramebuffer(path string, rt *Surface) error {
	img, err := surfaceToImage(rt)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".bmp":
		return bmp.Encode(f, img)
	default:
		return png.Encode(f, img)
	}
}

// presentSurface pushes the render target to the attached display
// backend.
func (gt *GT) presentSurface(rt *Surface) {
	img, err := surfaceToImage(rt)
	if err != nil {
		gtWarn("display: %v\n", err)
		return
	}

	gt.Display.SetDisplayConfig(DisplayConfig{
		Width:  int(rt.Width),
		Height: int(rt.Height),
	})
	if err := gt.Display.UpdateFrame(img.Pix); err != nil {
		gtWarn("display: %v\n", err)
	}
}
