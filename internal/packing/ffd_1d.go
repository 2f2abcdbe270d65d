package packing

// FFD1DPack runs the First-Fit-Decreasing 1D strategy.
func FFD1DPack(pieces []Piece, classes []StockClass, opts Options) Result {
	return Pack1D(pieces, classes, opts, false)
}
