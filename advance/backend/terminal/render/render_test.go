package render

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-advance/advance/video"
)

func TestLogBuffer(t *testing.T) {
	lb := NewLogBuffer(3)
	assert.Nil(t, lb.GetRecent(0))

	for _, msg := range []string{"a", "b", "c", "d"} {
		lb.Add(LogEntry{Message: msg})
	}

	recent := lb.GetRecent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "d", recent[0].Message)
	assert.Equal(t, "b", recent[2].Message)

	recent = lb.GetRecent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[1].Message)

	lb.Clear()
	assert.Zero(t, lb.Len())
}

func TestLogBufferHandler(t *testing.T) {
	lb := NewLogBuffer(10)
	logger := slog.New(NewLogBufferHandler(lb, slog.LevelInfo)).With("unit", "dma")

	logger.Debug("hidden")
	logger.Warn("transfer", "channel", 3)

	recent := lb.GetRecent(0)
	require.Len(t, recent, 1)
	assert.Equal(t, "transfer unit=dma channel=3", recent[0].Message)
	assert.Equal(t, slog.LevelWarn, recent[0].Level)

	h := NewLogBufferHandler(lb, slog.LevelWarn)
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
}

func TestFormatLogEntry(t *testing.T) {
	entry := LogEntry{
		Time:    time.Date(2024, 1, 1, 12, 30, 45, 0, time.UTC),
		Level:   slog.LevelError,
		Message: "boom",
	}
	assert.Equal(t, "12:30:45 [ERR] boom", FormatLogEntry(entry))
}

func TestCell(t *testing.T) {
	frame := video.NewFrameBuffer()
	frame.SetPixel(0, 0, 0xFF0000FF)
	frame.SetPixel(1, 0, 0xFF0000FF)
	frame.SetPixel(0, 1, 0x000000FF)
	frame.SetPixel(1, 1, 0xFFFFFFFF)

	top, bottom := Cell(frame, 0, 0)
	assert.Equal(t, uint32(0xFF0000FF), top)
	assert.Equal(t, uint32(0x7F7F7FFF), bottom)

	glyph, _ := HalfBlock(top, bottom)
	assert.Equal(t, '▀', glyph)
	glyph, _ = HalfBlock(top, top)
	assert.Equal(t, '█', glyph)

	assert.Equal(t, tcell.NewRGBColor(0xFF, 0, 0), Color(top))
}
