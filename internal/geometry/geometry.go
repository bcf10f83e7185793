// Package geometry computes the zoom-dependent dimensions of a Polaroid map
// marker. Everything downstream (markup, icon size, anchors) reads from the
// RenderSpec produced here, so no other package does scaling math.
package geometry

import "math"

// Base dimensions of a marker at its largest size, in CSS pixels.
const (
	BasePhotoWidth     = 160
	BaseBorder         = 12
	BaseCaptionHeight  = 30
	BasePinOffset      = 25
	BasePinFontSize    = 30
	BaseCaptionFont    = 14
	BaseRotationBuffer = 12
)

// Photo width targets and the zoom range they are interpolated over.
const (
	MinPhotoWidth = 40
	MaxPhotoWidth = BasePhotoWidth

	MinSizeZoom = 7.0
	MaxSizeZoom = 13.0
)

// Lower bounds applied after scaling.
const (
	photoWidthFloor     = 20
	borderFloor         = 4
	captionHeightFloor  = 15
	pinOffsetFloor      = 10
	pinFontFloor        = 14
	captionFontFloor    = 8
	rotationBufferFloor = 6
	placeholderFontBase = 10
	placeholderFloor    = 8
)

// RenderSpec is the full set of pixel dimensions for one zoom level.
type RenderSpec struct {
	Zoom  float64 `json:"zoom"`
	Scale float64 `json:"scale"`

	PhotoWidth      int `json:"photoWidth"`
	PhotoHeight     int `json:"photoHeight"`
	Border          int `json:"border"`
	CaptionHeight   int `json:"captionHeight"`
	PinOffset       int `json:"pinOffset"`
	PinFontSize     int `json:"pinFontSize"`
	CaptionFontSize int `json:"captionFontSize"`
	RotationBuffer  int `json:"rotationBuffer"`

	CardWidth  int `json:"cardWidth"`
	CardHeight int `json:"cardHeight"`
	IconWidth  int `json:"iconWidth"`
	IconHeight int `json:"iconHeight"`

	IconAnchor  [2]float64 `json:"iconAnchor"`
	PopupAnchor [2]float64 `json:"popupAnchor"`

	// Secondary values used only by the marker markup.
	PinNudge            int `json:"pinNudge"`
	PhotoBorder         int `json:"photoBorder"`
	InnerShadow         int `json:"innerShadow"`
	CaptionPadY         int `json:"captionPadY"`
	CaptionPadX         int `json:"captionPadX"`
	PlaceholderFontSize int `json:"placeholderFontSize"`
	PlaceholderPad      int `json:"placeholderPad"`
}

// Scale returns the RenderSpec for a zoom level. Zooms outside
// [MinSizeZoom, MaxSizeZoom] clamp to the nearest end of the range.
func Scale(zoom float64) RenderSpec {
	width := PhotoWidth(zoom)
	scale := float64(width) / MaxPhotoWidth

	s := RenderSpec{
		Zoom:            zoom,
		Scale:           scale,
		PhotoWidth:      width,
		PhotoHeight:     width,
		Border:          scaled(BaseBorder, scale, borderFloor),
		CaptionHeight:   scaled(BaseCaptionHeight, scale, captionHeightFloor),
		PinOffset:       scaled(BasePinOffset, scale, pinOffsetFloor),
		PinFontSize:     scaled(BasePinFontSize, scale, pinFontFloor),
		CaptionFontSize: scaled(BaseCaptionFont, scale, captionFontFloor),
		RotationBuffer:  scaled(BaseRotationBuffer, scale, rotationBufferFloor),

		PinNudge:            round(4 * scale),
		PhotoBorder:         scaled(1, scale, 1),
		InnerShadow:         scaled(2, scale, 1),
		CaptionPadY:         round(2 * scale),
		CaptionPadX:         round(4 * scale),
		PlaceholderFontSize: scaled(placeholderFontBase, scale, placeholderFloor),
		PlaceholderPad:      round(2 * scale),
	}

	// The card has top/side padding of one border; the caption's top margin
	// supplies the border below the photo.
	s.CardWidth = s.PhotoWidth + 2*s.Border
	s.CardHeight = s.Border + s.PhotoHeight + s.Border + s.CaptionHeight

	s.IconWidth = s.CardWidth + s.RotationBuffer
	s.IconHeight = s.CardHeight + s.PinOffset + s.RotationBuffer

	s.IconAnchor = [2]float64{
		float64(s.IconWidth) / 2,
		float64(s.PinOffset) + float64(s.RotationBuffer)/2,
	}
	s.PopupAnchor = [2]float64{
		0,
		-(float64(s.CardHeight) / 2) - float64(s.PinOffset),
	}
	return s
}

// PhotoWidth interpolates the photo width for a zoom level.
func PhotoWidth(zoom float64) int {
	return max(photoWidthFloor, round(lerp(zoom)))
}

func lerp(zoom float64) float64 {
	switch {
	case math.IsNaN(zoom) || zoom <= MinSizeZoom:
		return MinPhotoWidth
	case zoom >= MaxSizeZoom:
		return MaxPhotoWidth
	}
	t := (zoom - MinSizeZoom) / (MaxSizeZoom - MinSizeZoom)
	return MinPhotoWidth + t*(MaxPhotoWidth-MinPhotoWidth)
}

func scaled(base int, scale float64, floor int) int {
	return max(floor, round(float64(base)*scale))
}

func round(v float64) int {
	return int(math.Round(v))
}
