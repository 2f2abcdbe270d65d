package packing

import (
	"sort"
	"strconv"
)

// openBar1D tracks a single opened bar instance while packing proceeds.
type openBar1D struct {
	stockID      string
	stockClassID string
	classLength  int
	remaining    int
	placements   []Placement
	empty        bool
}

// Pack1D implements both 1D-FFD and 1D-BFD: sort pieces by length
// descending, then place each into the first (FFD) or best-fitting (BFD)
// already-open bar that admits it, opening a new bar from the cheapest
// admitting stock class when none does.
func Pack1D(pieces []Piece, classes []StockClass, opts Options, bestFit bool) Result {
	sorted := make([]Piece, len(pieces))
	copy(sorted, pieces)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LengthMM > sorted[j].LengthMM
	})

	sortedClasses := make([]StockClass, len(classes))
	copy(sortedClasses, classes)
	sort.SliceStable(sortedClasses, func(i, j int) bool {
		if sortedClasses[i].UnitPriceCents != sortedClasses[j].UnitPriceCents {
			return sortedClasses[i].UnitPriceCents < sortedClasses[j].UnitPriceCents
		}
		return sortedClasses[i].InsertionOrder < sortedClasses[j].InsertionOrder
	})

	opened := make([]*openBar1D, 0)
	openedCountByClass := make(map[string]int)
	var unplaced []Piece

	total := len(sorted)
	for i, piece := range sorted {
		if opts.CancellationToken.IsCancelled() {
			reportProgress(opts.ProgressSink, i, total, "cancelled")
			unplaced = append(unplaced, sorted[i:]...)
			break
		}

		bar := chooseBar1D(opened, piece, opts.KerfMM, bestFit)
		if bar == nil {
			class := openAdmittingClass1D(sortedClasses, openedCountByClass, piece.LengthMM)
			if class == nil {
				unplaced = append(unplaced, piece)
				reportProgress(opts.ProgressSink, i+1, total, "unplaced")
				continue
			}
			openedCountByClass[class.ID]++
			bar = &openBar1D{
				stockID:      stockInstanceID(class.ID, openedCountByClass[class.ID]),
				stockClassID: class.ID,
				classLength:  class.LengthMM,
				remaining:    class.LengthMM,
				empty:        true,
			}
			opened = append(opened, bar)
		}

		placeOnBar1D(bar, piece, opts.KerfMM)
		reportProgress(opts.ProgressSink, i+1, total, "placed")
	}

	return buildResult1D(opened, unplaced)
}

func chooseBar1D(opened []*openBar1D, piece Piece, kerf int, bestFit bool) *openBar1D {
	var best *openBar1D
	bestSlack := -1

	for _, bar := range opened {
		avail := bar.remaining
		if !bar.empty {
			avail -= kerf
		}
		if avail < piece.LengthMM {
			continue
		}
		if !bestFit {
			return bar
		}
		slack := avail - piece.LengthMM
		if best == nil || slack < bestSlack {
			best = bar
			bestSlack = slack
		}
	}
	return best
}

func openAdmittingClass1D(classes []StockClass, openedCount map[string]int, length int) *StockClass {
	for i := range classes {
		c := &classes[i]
		if c.LengthMM < length {
			continue
		}
		if openedCount[c.ID] >= c.AvailableQty {
			continue
		}
		return c
	}
	return nil
}

func placeOnBar1D(bar *openBar1D, piece Piece, kerf int) {
	if !bar.empty {
		bar.remaining -= kerf
	}
	bar.remaining -= piece.LengthMM
	bar.empty = false
	bar.placements = append(bar.placements, Placement{
		PieceID:      piece.ID,
		OrderItemID:  piece.OrderItemID,
		StockID:      bar.stockID,
		StockClassID: bar.stockClassID,
		LengthMM:     piece.LengthMM,
		Orientation:  Normal,
		Sequence:     len(bar.placements),
	})
}

func buildResult1D(opened []*openBar1D, unplaced []Piece) Result {
	var result Result
	var totalStockLen, totalWaste int64

	for _, bar := range opened {
		if len(bar.placements) == 0 {
			continue
		}
		var usedLen int64
		for _, p := range bar.placements {
			usedLen += int64(p.LengthMM)
		}
		waste := int64(bar.remaining)
		if waste < 0 {
			waste = 0
		}

		result.Placements = append(result.Placements, bar.placements...)
		result.UsageByStock = append(result.UsageByStock, StockUsage{
			StockID:      bar.stockID,
			StockClassID: bar.stockClassID,
			Placements:   bar.placements,
			WasteMM2:     waste,
			UsedAreaMM2:  usedLen,
			TotalAreaMM2: int64(bar.classLength),
		})

		totalStockLen += int64(bar.classLength)
		totalWaste += waste
		result.StockUsedCount++
	}

	result.Unplaced = unplaced
	result.TotalWasteMM2 = totalWaste
	if totalStockLen > 0 {
		result.WastePercentageBP = (result.TotalWasteMM2 * 10000) / totalStockLen
		result.EfficiencyBP = 10000 - result.WastePercentageBP
	}
	return result
}

func stockInstanceID(classID string, n int) string {
	return classID + "#" + strconv.Itoa(n)
}
