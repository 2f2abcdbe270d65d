package packing

// BFD1DPack runs the Best-Fit-Decreasing 1D strategy: as FFD, but
// among admitting bars chooses the one with the smallest remaining slack
// after placement.
func BFD1DPack(pieces []Piece, classes []StockClass, opts Options) Result {
	return Pack1D(pieces, classes, opts, true)
}
