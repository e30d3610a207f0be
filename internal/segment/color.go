package segment

import "fmt"

// Color is a packed 0xRRGGBB display color. Being a plain integer it
// compares by value and works as a map key.
type Color uint32

// RGB packs 8-bit channels into a Color.
func RGB(r, g, b uint8) Color {
	return Color(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// R returns the red channel.
func (c Color) R() uint8 { return uint8(c >> 16) }

// G returns the green channel.
func (c Color) G() uint8 { return uint8(c >> 8) }

// B returns the blue channel.
func (c Color) B() uint8 { return uint8(c) }

// Floats returns the channels scaled to [0,1], the layout vertex color
// buffers use.
func (c Color) Floats() [3]float32 {
	return [3]float32{
		float32(c.R()) / 255,
		float32(c.G()) / 255,
		float32(c.B()) / 255,
	}
}

// String formats the color as "#rrggbb".
func (c Color) String() string {
	return fmt.Sprintf("#%06x", uint32(c)&0xFFFFFF)
}
