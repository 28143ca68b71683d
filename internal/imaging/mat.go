package imaging

import (
	"encoding/binary"
	"fmt"
	"math"

	"gocv.io/x/gocv"
)

// ToMat copies the plane into a single-channel 32-bit float Mat.
// The caller owns the returned Mat and must Close it.
func (p *Plane) ToMat() (gocv.Mat, error) {
	buf := make([]byte, 4*len(p.Pix))
	for i, v := range p.Pix {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
	}
	m, err := gocv.NewMatFromBytes(p.Height, p.Width, gocv.MatTypeCV32F, buf)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to build matrix: %w", err)
	}
	return m, nil
}

// ToMat8 min-max normalizes the plane into an 8-bit single-channel Mat.
// The caller owns the returned Mat and must Close it.
func (p *Plane) ToMat8() (gocv.Mat, error) {
	src, err := p.ToMat()
	if err != nil {
		return src, err
	}
	defer src.Close()

	norm := gocv.NewMat()
	defer norm.Close()
	gocv.Normalize(src, &norm, 0, 255, gocv.NormMinMax)

	out := gocv.NewMat()
	norm.ConvertTo(&out, gocv.MatTypeCV8U)
	return out, nil
}
