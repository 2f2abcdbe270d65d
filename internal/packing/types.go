// Package packing implements the four pure packing strategies:
// 1D-FFD, 1D-BFD, 2D-BottomLeft, 2D-Guillotine.
//
// All dimensions are integer millimetres; kerf is a non-negative integer.
// No floating point enters the placement math — waste percentages and
// efficiency are computed as basis points internally and only converted to
// float64 at the DTO boundary (BasisPointsToFloat).
package packing

// Kind distinguishes 1D bar stock from 2D sheet stock.
type Kind string

const (
	Bar1D   Kind = "BAR_1D"
	Sheet2D Kind = "SHEET_2D"
)

// Algorithm tags the four named strategies as data, per the Design Notes
// "strategies as data" guidance — the engine dispatches on this tag rather
// than relying on interface-based polymorphism.
type Algorithm string

const (
	FFD1D        Algorithm = "1D_FFD"
	BFD1D        Algorithm = "1D_BFD"
	BottomLeft2D Algorithm = "2D_BOTTOM_LEFT"
	Guillotine2D Algorithm = "2D_GUILLOTINE"
)

// Piece is a single unit to place, after quantity has been flattened into
// individual pieces by the caller (the OptimizationEngine).
type Piece struct {
	ID          string // unique within the run, independent of OrderItemID
	OrderItemID string
	LengthMM    int // 1D length, or the 2D "length" dimension
	WidthMM     int // 2D only
	CanRotate   bool
}

// StockClass is one admissible class of raw stock: a material/thickness/
// dimension combination with a bounded number of physical units available.
type StockClass struct {
	ID             string
	Kind           Kind
	LengthMM       int // 1D bar length, or a 2D sheet's x extent
	WidthMM        int // 2D sheet's y extent
	HeightMM       int // copied from the stock item; not read by the strategies
	UnitPriceCents int64
	AvailableQty   int
	InsertionOrder int // tie-break order when UnitPriceCents ties
}

// UsableLength returns the class's usable 1D length after kerf margins;
// 1D stock only loses kerf between adjacent pieces, never at the ends.
func (c StockClass) UsableLength() int { return c.LengthMM }

// Options are the common packing parameters shared by all four strategies.
type Options struct {
	KerfMM             int
	AllowRotation      bool
	CancellationToken  *CancellationToken
	ProgressSink       ProgressSink
}

// CancellationToken is checked cooperatively between pieces.
type CancellationToken struct {
	cancelled chan struct{}
}

// NewCancellationToken returns a token that has not been cancelled.
func NewCancellationToken() *CancellationToken {
	return &CancellationToken{cancelled: make(chan struct{})}
}

// Cancel marks the token cancelled. Safe to call more than once.
func (t *CancellationToken) Cancel() {
	select {
	case <-t.cancelled:
	default:
		close(t.cancelled)
	}
}

// IsCancelled reports whether Cancel has been called.
func (t *CancellationToken) IsCancelled() bool {
	if t == nil {
		return false
	}
	select {
	case <-t.cancelled:
		return true
	default:
		return false
	}
}

// ProgressSink receives coarse-grained progress during a single strategy run.
type ProgressSink interface {
	Report(current, total int, message string)
}

// NoopProgressSink discards progress reports.
type NoopProgressSink struct{}

func (NoopProgressSink) Report(current, total int, message string) {}

// Orientation of a 2D placement.
type Orientation string

const (
	Normal   Orientation = "NORMAL"
	Rotated  Orientation = "ROTATED90"
)

// Placement records where a piece landed.
type Placement struct {
	PieceID      string
	OrderItemID  string
	StockID      string // opened stock instance ID, e.g. "<classID>#<n>"
	StockClassID string
	X            int // 2D only; 0 for 1D
	Y            int // 2D only; 0 for 1D
	LengthMM     int // placed length (post-rotation for 2D)
	WidthMM      int // placed width (post-rotation for 2D); 0 for 1D
	Orientation  Orientation
	Sequence     int // cut order within the stock unit
}

// StockUsage summarizes one opened stock instance's outcome.
type StockUsage struct {
	StockID      string
	StockClassID string
	Placements   []Placement
	WasteMM2     int64 // 1D: linear waste in mm; 2D: area waste in mm^2
	UsedAreaMM2  int64
	TotalAreaMM2 int64
}

// Result is the output of any strategy.
type Result struct {
	Placements          []Placement
	Unplaced            []Piece
	UsageByStock        []StockUsage
	TotalWasteMM2       int64
	WastePercentageBP   int64 // basis points: 1bp = 0.01%
	EfficiencyBP        int64 // basis points
	StockUsedCount      int
}

// BasisPointsToFloat converts a basis-point integer to the float64 DTO form
// (e.g. 10000bp -> 1.0, meaning 100%).
func BasisPointsToFloat(bp int64) float64 {
	return float64(bp) / 10000.0
}

func reportProgress(sink ProgressSink, current, total int, message string) {
	if sink == nil {
		return
	}
	sink.Report(current, total, message)
}
