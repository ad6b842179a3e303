/*
Copyright 2025 The goARRG Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

/*
Package assets decodes files into the raw forms the nova loader uploads:
tightly packed RGBA8 pixels for images and plain bytes for everything else.
PNG, JPEG, GIF, BMP and WebP images are understood.
*/
package assets

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
	"goarrg.com/asset"
	"goarrg.com/debug"
	"goarrg.com/gmath"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var instance = struct {
	logger *debug.Logger
}{
	logger: debug.NewLogger("nova", "assets"),
}

// Image is a decoded image, Pixels holds Size.X*Size.Y*4 bytes of non premultiplied RGBA.
type Image struct {
	Size   gmath.Extent2i32
	Pixels []byte
}

/*
DecodeImage decodes r and applies any EXIF orientation. Images larger than
maxSize in either dimension are scaled down preserving the aspect ratio, a zero
maxSize disables scaling.
*/
func DecodeImage(r io.Reader, maxSize gmath.Extent2i32) (*Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to decode image")
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, debug.Errorf("Image is empty: %dx%d", bounds.Dx(), bounds.Dy())
	}
	if maxSize.X > 0 && maxSize.Y > 0 && (bounds.Dx() > int(maxSize.X) || bounds.Dy() > int(maxSize.Y)) {
		instance.logger.VPrintf("Scaling %dx%d image to fit %dx%d", bounds.Dx(), bounds.Dy(), maxSize.X, maxSize.Y)
		img = imaging.Fit(img, int(maxSize.X), int(maxSize.Y), imaging.Lanczos)
		bounds = img.Bounds()
	}

	return &Image{
		Size:   gmath.Extent2i32{X: int32(bounds.Dx()), Y: int32(bounds.Dy())},
		Pixels: toRGBA(img).Pix,
	}, nil
}

// toRGBA returns img as a tightly packed *image.NRGBA anchored at the origin.
func toRGBA(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && bounds.Min == (image.Point{}) && n.Stride == 4*bounds.Dx() {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, bounds.Min, xdraw.Src)
	return dst
}

// LoadFile reads the whole file name from fs.
func LoadFile(fs *asset.FileSystem, name string) ([]byte, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to open %q", name)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to read %q", name)
	}
	return data, nil
}

func LoadImage(fs *asset.FileSystem, name string, maxSize gmath.Extent2i32) (*Image, error) {
	data, err := LoadFile(fs, name)
	if err != nil {
		return nil, err
	}
	img, err := DecodeImage(bytes.NewReader(data), maxSize)
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to load image %q", name)
	}
	instance.logger.VPrintf("Loaded image %q: %dx%d", name, img.Size.X, img.Size.Y)
	return img, nil
}
