package debug

import (
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/draw"

	"github.com/valerio/go-advance/advance/video"
)

// FrameImage converts a framebuffer to an image.
func FrameImage(frame *video.FrameBuffer) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, video.FramebufferWidth, video.FramebufferHeight))
	for i, pixel := range frame.ToSlice() {
		idx := i * 4
		img.Pix[idx] = byte(pixel >> 24)
		img.Pix[idx+1] = byte(pixel >> 16)
		img.Pix[idx+2] = byte(pixel >> 8)
		img.Pix[idx+3] = byte(pixel)
	}
	return img
}

// ScaleImage enlarges img by an integer factor with nearest-neighbour
// sampling, keeping pixels sharp. Factors below 2 return img unchanged.
func ScaleImage(img *image.RGBA, scale int) *image.RGBA {
	if scale < 2 {
		return img
	}
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx()*scale, bounds.Dy()*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

// TakeSnapshot saves frame in the working directory, logging failures.
func TakeSnapshot(frame *video.FrameBuffer) {
	if frame == nil {
		slog.Warn("No frame data available for snapshot")
		return
	}

	if _, err := SaveFramePNGToDir(frame, "advance_snapshot", ""); err != nil {
		slog.Error("Failed to save snapshot", "error", err)
	}
}

// SaveFramePNGToDir saves a framebuffer as a timestamped PNG in directory, or
// in the working directory when directory is empty. It returns the file path.
func SaveFramePNGToDir(frame *video.FrameBuffer, baseName, directory string) (string, error) {
	return SaveScaledFramePNGToDir(frame, baseName, directory, 1)
}

// SaveScaledFramePNGToDir is SaveFramePNGToDir with the image enlarged by scale.
func SaveScaledFramePNGToDir(frame *video.FrameBuffer, baseName, directory string, scale int) (string, error) {
	outputDir := directory
	if outputDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
		outputDir = cwd
	}

	timestamp := time.Now().Format("20060102_150405")
	filePath := filepath.Join(outputDir, fmt.Sprintf("%s_%s.png", baseName, timestamp))

	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", filePath, err)
	}
	defer file.Close()

	img := ScaleImage(FrameImage(frame), scale)
	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("failed to encode PNG: %w", err)
	}

	slog.Info("Snapshot saved", "path", filePath, "size", fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy()))
	return filePath, nil
}
