package packing

import "sort"

// point2D is a candidate bottom-left placement position.
type point2D struct {
	x, y int
}

// rect2D is a placed rectangle's footprint, inflated by kerf on its right
// and top edges (the trailing edges, matching the 1D kerf convention of
// losing material only between adjacent pieces).
type rect2D struct {
	x, y, w, h int
}

func (r rect2D) overlaps(o rect2D) bool {
	if r.x+r.w <= o.x || o.x+o.w <= r.x {
		return false
	}
	if r.y+r.h <= o.y || o.y+o.h <= r.y {
		return false
	}
	return true
}

// openSheet2D tracks one opened sheet instance during packing.
type openSheet2D struct {
	stockID      string
	stockClassID string
	sheetLength  int
	sheetWidth   int
	placements   []Placement
	rects        []rect2D
	corners      []point2D
}

// BottomLeft2DPack implements the 2D-BottomLeft strategy: sort pieces
// by area descending, then for each piece scan the sheet's bottom-left
// candidate corners (lowest y, then leftmost x) for the first position the
// piece fits, trying its normal orientation before a 90-degree rotation
// when the piece allows it and the run permits rotation.
func BottomLeft2DPack(pieces []Piece, classes []StockClass, opts Options) Result {
	sorted := make([]Piece, len(pieces))
	copy(sorted, pieces)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LengthMM*sorted[i].WidthMM > sorted[j].LengthMM*sorted[j].WidthMM
	})

	sortedClasses := sortClasses2D(classes)
	opened := make([]*openSheet2D, 0)
	openedCountByClass := make(map[string]int)
	var unplaced []Piece

	total := len(sorted)
	for i, piece := range sorted {
		if opts.CancellationToken.IsCancelled() {
			reportProgress(opts.ProgressSink, i, total, "cancelled")
			unplaced = append(unplaced, sorted[i:]...)
			break
		}

		placed := false
		for _, sheet := range opened {
			if placeBottomLeft(sheet, piece, opts.KerfMM, opts.AllowRotation) {
				placed = true
				break
			}
		}

		if !placed {
			sheet := openAdmittingSheet2D(sortedClasses, openedCountByClass, piece, opts.AllowRotation)
			if sheet != nil {
				opened = append(opened, sheet)
				placed = placeBottomLeft(sheet, piece, opts.KerfMM, opts.AllowRotation)
			}
		}

		if !placed {
			unplaced = append(unplaced, piece)
			reportProgress(opts.ProgressSink, i+1, total, "unplaced")
			continue
		}
		reportProgress(opts.ProgressSink, i+1, total, "placed")
	}

	return buildResult2D(opened, unplaced)
}

func sortClasses2D(classes []StockClass) []StockClass {
	sorted := make([]StockClass, len(classes))
	copy(sorted, classes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].UnitPriceCents != sorted[j].UnitPriceCents {
			return sorted[i].UnitPriceCents < sorted[j].UnitPriceCents
		}
		return sorted[i].InsertionOrder < sorted[j].InsertionOrder
	})
	return sorted
}

func openAdmittingSheet2D(classes []StockClass, openedCount map[string]int, piece Piece, allowRotation bool) *openSheet2D {
	for i := range classes {
		c := &classes[i]
		fitsNormal := c.LengthMM >= piece.LengthMM && c.WidthMM >= piece.WidthMM
		fitsRotated := allowRotation && piece.CanRotate && c.LengthMM >= piece.WidthMM && c.WidthMM >= piece.LengthMM
		if !fitsNormal && !fitsRotated {
			continue
		}
		if openedCount[c.ID] >= c.AvailableQty {
			continue
		}
		openedCount[c.ID]++
		return &openSheet2D{
			stockID:      stockInstanceID(c.ID, openedCount[c.ID]),
			stockClassID: c.ID,
			sheetLength:  c.LengthMM,
			sheetWidth:   c.WidthMM,
			corners:      []point2D{{0, 0}},
		}
	}
	return nil
}

// placeBottomLeft tries both orientations (normal first) at the lowest,
// leftmost candidate corner the piece fits without overlapping existing
// placements or exceeding the sheet bounds.
func placeBottomLeft(sheet *openSheet2D, piece Piece, kerf int, allowRotation bool) bool {
	sort.SliceStable(sheet.corners, func(i, j int) bool {
		if sheet.corners[i].y != sheet.corners[j].y {
			return sheet.corners[i].y < sheet.corners[j].y
		}
		return sheet.corners[i].x < sheet.corners[j].x
	})

	orientations := []Orientation{Normal}
	if allowRotation && piece.CanRotate {
		orientations = append(orientations, Rotated)
	}

	for _, corner := range sheet.corners {
		for _, orientation := range orientations {
			w, h := piece.LengthMM, piece.WidthMM
			if orientation == Rotated {
				w, h = piece.WidthMM, piece.LengthMM
			}
			candidate := rect2D{x: corner.x, y: corner.y, w: w + kerf, h: h + kerf}
			if candidate.x+w > sheet.sheetLength || candidate.y+h > sheet.sheetWidth {
				continue
			}
			if overlapsAny(sheet.rects, candidate) {
				continue
			}

			sheet.rects = append(sheet.rects, candidate)
			sheet.placements = append(sheet.placements, Placement{
				PieceID:      piece.ID,
				OrderItemID:  piece.OrderItemID,
				StockID:      sheet.stockID,
				StockClassID: sheet.stockClassID,
				X:            corner.x,
				Y:            corner.y,
				LengthMM:     w,
				WidthMM:      h,
				Orientation:  orientation,
				Sequence:     len(sheet.placements),
			})
			sheet.corners = append(sheet.corners, point2D{x: candidate.x + candidate.w, y: corner.y}, point2D{x: corner.x, y: candidate.y + candidate.h})
			return true
		}
	}
	return false
}

func overlapsAny(rects []rect2D, candidate rect2D) bool {
	for _, r := range rects {
		if r.overlaps(candidate) {
			return true
		}
	}
	return false
}

func buildResult2D(opened []*openSheet2D, unplaced []Piece) Result {
	var result Result
	var totalArea, usedArea int64

	for _, sheet := range opened {
		if len(sheet.placements) == 0 {
			continue
		}
		var sheetUsed int64
		for _, p := range sheet.placements {
			sheetUsed += int64(p.LengthMM) * int64(p.WidthMM)
		}
		sheetTotal := int64(sheet.sheetLength) * int64(sheet.sheetWidth)
		waste := sheetTotal - sheetUsed
		if waste < 0 {
			waste = 0
		}

		result.Placements = append(result.Placements, sheet.placements...)
		result.UsageByStock = append(result.UsageByStock, StockUsage{
			StockID:      sheet.stockID,
			StockClassID: sheet.stockClassID,
			Placements:   sheet.placements,
			WasteMM2:     waste,
			UsedAreaMM2:  sheetUsed,
			TotalAreaMM2: sheetTotal,
		})

		totalArea += sheetTotal
		usedArea += sheetUsed
		result.StockUsedCount++
	}

	result.Unplaced = unplaced
	result.TotalWasteMM2 = totalArea - usedArea
	if totalArea > 0 {
		result.WastePercentageBP = (result.TotalWasteMM2 * 10000) / totalArea
		result.EfficiencyBP = 10000 - result.WastePercentageBP
	}
	return result
}
