package encoding

// Preset describes one rendition in the quality ladder.
type Preset struct {
	// Name is the public quality label, also used in object keys.
	Name string
	// Height is the target frame height the encode scales down to.
	Height int
	// MinSourceHeight gates eligibility: the source must be at least this
	// tall for the preset to be selected. Zero means always eligible.
	MinSourceHeight int
	// CRF is the constant rate factor passed to libx264.
	CRF int
	// MaxRateKbps caps the video bitrate; bufsize is twice this.
	MaxRateKbps int
	// MaxWidth bounds the scaled frame width.
	MaxWidth int
}

// AudioBitrateKbps returns the AAC bitrate paired with this preset.
func (p Preset) AudioBitrateKbps() int {
	if p.Height <= 480 {
		return 96
	}
	return 128
}

// H264Profile returns the encoder profile for this preset. Low renditions use
// baseline for maximum device compatibility.
func (p Preset) H264Profile() string {
	if p.Height <= 480 {
		return "baseline"
	}
	return "main"
}

// Ladder is the full rendition ladder in descending quality order. Only the
// two largest presets gate on source height; 720p and below always encode,
// even from smaller sources.
var Ladder = []Preset{
	{Name: "4k", Height: 2160, MinSourceHeight: 2160, CRF: 22, MaxRateKbps: 8000, MaxWidth: 3840},
	{Name: "1080p", Height: 1080, MinSourceHeight: 1080, CRF: 23, MaxRateKbps: 3500, MaxWidth: 1920},
	{Name: "720p", Height: 720, CRF: 24, MaxRateKbps: 1500, MaxWidth: 1280},
	{Name: "480p", Height: 480, CRF: 26, MaxRateKbps: 800, MaxWidth: 854},
	{Name: "preview", Height: 240, CRF: 30, MaxRateKbps: 300, MaxWidth: 426},
}

// Select returns the presets eligible for a source of the given height, in
// ladder order. Selection looks only at height: a source shorter than a
// preset's floor skips it, while the ungated presets are always produced and
// keep their labels even when the source is smaller than the label implies.
func Select(sourceHeight int) []Preset {
	selected := make([]Preset, 0, len(Ladder))
	for _, preset := range Ladder {
		if preset.MinSourceHeight > 0 && sourceHeight < preset.MinSourceHeight {
			continue
		}
		selected = append(selected, preset)
	}
	return selected
}

// PresetByName looks up a ladder entry by its quality label.
func PresetByName(name string) (Preset, bool) {
	for _, preset := range Ladder {
		if preset.Name == name {
			return preset, true
		}
	}
	return Preset{}, false
}
