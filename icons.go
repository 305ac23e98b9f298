package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
)

var (
	iconIdle      []byte
	iconRecording []byte
)

func init() {
	grey := color.RGBA{R: 142, G: 142, B: 147, A: 255}
	red := color.RGBA{R: 255, G: 59, B: 48, A: 255}
	iconIdle = renderDot(22, grey)
	iconRecording = renderDot(22, red)
}

func renderDot(size int, dot color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	c := float64(size) / 2
	r := c - 1
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if math.Hypot(float64(x)+0.5-c, float64(y)+0.5-c) <= r {
				img.Set(x, y, dot)
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic("renderDot: " + err.Error())
	}
	return buf.Bytes()
}
