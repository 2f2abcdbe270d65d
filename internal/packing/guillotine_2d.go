package packing

// freeRect2D is an axis-aligned free region still available on a sheet.
type freeRect2D struct {
	x, y, w, h int
}

// guillotineSheet tracks one opened sheet instance for the Guillotine strategy.
type guillotineSheet struct {
	stockID      string
	stockClassID string
	sheetLength  int
	sheetWidth   int
	placements   []Placement
	free         []freeRect2D
}

// Guillotine2DPack implements the 2D-Guillotine strategy: sort pieces
// by area descending, then for each piece pick the free rectangle with the
// smallest admitting area (best-area-fit) and guillotine-split it in two,
// always cutting along the axis that leaves the shorter leftover strip.
func Guillotine2DPack(pieces []Piece, classes []StockClass, opts Options) Result {
	sorted := make([]Piece, len(pieces))
	copy(sorted, pieces)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].LengthMM*sorted[j].WidthMM > sorted[j-1].LengthMM*sorted[j-1].WidthMM; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	sortedClasses := sortClasses2D(classes)
	opened := make([]*guillotineSheet, 0)
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
			if placeGuillotine(sheet, piece, opts.KerfMM, opts.AllowRotation) {
				placed = true
				break
			}
		}

		if !placed {
			sheet := openAdmittingGuillotineSheet(sortedClasses, openedCountByClass, piece, opts.AllowRotation)
			if sheet != nil {
				opened = append(opened, sheet)
				placed = placeGuillotine(sheet, piece, opts.KerfMM, opts.AllowRotation)
			}
		}

		if !placed {
			unplaced = append(unplaced, piece)
			reportProgress(opts.ProgressSink, i+1, total, "unplaced")
			continue
		}
		reportProgress(opts.ProgressSink, i+1, total, "placed")
	}

	return buildResultGuillotine(opened, unplaced)
}

func openAdmittingGuillotineSheet(classes []StockClass, openedCount map[string]int, piece Piece, allowRotation bool) *guillotineSheet {
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
		return &guillotineSheet{
			stockID:      stockInstanceID(c.ID, openedCount[c.ID]),
			stockClassID: c.ID,
			sheetLength:  c.LengthMM,
			sheetWidth:   c.WidthMM,
			free:         []freeRect2D{{x: 0, y: 0, w: c.LengthMM, h: c.WidthMM}},
		}
	}
	return nil
}

// placeGuillotine selects the admitting free rectangle with the smallest
// area (best-area-fit) and splits it after placement.
func placeGuillotine(sheet *guillotineSheet, piece Piece, kerf int, allowRotation bool) bool {
	bestIdx := -1
	bestArea := -1
	bestW, bestH := 0, 0
	bestOrientation := Normal

	for idx, free := range sheet.free {
		for _, orientation := range candidateOrientations(piece, allowRotation) {
			w, h := piece.LengthMM, piece.WidthMM
			if orientation == Rotated {
				w, h = piece.WidthMM, piece.LengthMM
			}
			if w+kerf > free.w || h+kerf > free.h {
				continue
			}
			area := free.w * free.h
			if bestIdx == -1 || area < bestArea {
				bestIdx, bestArea, bestW, bestH, bestOrientation = idx, area, w, h, orientation
			}
		}
	}
	if bestIdx == -1 {
		return false
	}

	free := sheet.free[bestIdx]
	sheet.free = append(sheet.free[:bestIdx], sheet.free[bestIdx+1:]...)

	sheet.placements = append(sheet.placements, Placement{
		PieceID:      piece.ID,
		OrderItemID:  piece.OrderItemID,
		StockID:      sheet.stockID,
		StockClassID: sheet.stockClassID,
		X:            free.x,
		Y:            free.y,
		LengthMM:     bestW,
		WidthMM:      bestH,
		Orientation:  bestOrientation,
		Sequence:     len(sheet.placements),
	})

	sheet.free = append(sheet.free, splitGuillotine(free, bestW+kerf, bestH+kerf)...)
	return true
}

func candidateOrientations(piece Piece, allowRotation bool) []Orientation {
	orientations := []Orientation{Normal}
	if allowRotation && piece.CanRotate {
		orientations = append(orientations, Rotated)
	}
	return orientations
}

// splitGuillotine cuts a free rectangle after a piece wxh is placed at its
// origin, always leaving the shorter leftover strip as the limited piece so
// the larger connected remainder stays usable for subsequent pieces.
func splitGuillotine(free freeRect2D, w, h int) []freeRect2D {
	leftoverW := free.w - w
	leftoverH := free.h - h

	var rects []freeRect2D
	if leftoverW >= leftoverH {
		// right strip spans the full height, top strip is limited to w.
		if leftoverW > 0 {
			rects = append(rects, freeRect2D{x: free.x + w, y: free.y, w: leftoverW, h: free.h})
		}
		if leftoverH > 0 {
			rects = append(rects, freeRect2D{x: free.x, y: free.y + h, w: w, h: leftoverH})
		}
	} else {
		// top strip spans the full width, right strip is limited to h.
		if leftoverH > 0 {
			rects = append(rects, freeRect2D{x: free.x, y: free.y + h, w: free.w, h: leftoverH})
		}
		if leftoverW > 0 {
			rects = append(rects, freeRect2D{x: free.x + w, y: free.y, w: leftoverW, h: h})
		}
	}
	return rects
}

func buildResultGuillotine(opened []*guillotineSheet, unplaced []Piece) Result {
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
