package pricing

// Money represents a monetary value stored in minor units (paise).
type Money = int64

// PosterSize identifies a supported print size.
type PosterSize string

// Supported poster sizes.
const (
	SizeA4 PosterSize = "A4"
	SizeA3 PosterSize = "A3"
)

// FrameFinish identifies an optional frame add-on finish.
type FrameFinish string

// Supported frame finishes.
const (
	FinishBlack   FrameFinish = "black"
	FinishWhite   FrameFinish = "white"
	FinishNatural FrameFinish = "natural"
)

// FrameOption pairs a poster size with a finish. Frame price depends on both.
type FrameOption struct {
	Size   PosterSize  `json:"size"`
	Finish FrameFinish `json:"finish"`
}

var sizePrices = map[PosterSize]Money{
	SizeA4: 9_900,
	SizeA3: 14_900,
}

var framePrices = map[PosterSize]map[FrameFinish]Money{
	SizeA4: {
		FinishBlack:   24_900,
		FinishWhite:   24_900,
		FinishNatural: 29_900,
	},
	SizeA3: {
		FinishBlack:   34_900,
		FinishWhite:   34_900,
		FinishNatural: 39_900,
	},
}

// SizePrice returns the base unit price for a poster size. An unrecognised
// size prices at 0 rather than erroring; validation belongs upstream.
func SizePrice(size PosterSize) Money {
	return sizePrices[size]
}

// FramePrice returns the add-on price for a frame option, 0 when the
// size/finish pair is unknown.
func FramePrice(frame FrameOption) Money {
	return framePrices[frame.Size][frame.Finish]
}

// UnitPrice computes the price of a single unit: the size base price plus
// the frame add-on when a frame is selected.
func UnitPrice(size PosterSize, frame *FrameOption) Money {
	price := SizePrice(size)
	if frame != nil {
		price += FramePrice(*frame)
	}
	return price
}
