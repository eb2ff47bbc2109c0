package rope

import "fmt"

// CheckParams verifies the preconditions Apply assumes but never checks.
// It exists for callers that want to fail loudly at the boundary instead
// of corrupting tensors: tools, tests, and debug builds run it before
// dispatch; the kernel itself never does.
//
// queryLen, keyLen, and cacheLen are the element counts of the
// corresponding buffers.
func CheckParams(p Params, positions []int64, queryLen, keyLen, cacheLen int) error {
	if p.RotDim <= 0 || p.RotDim%2 != 0 {
		return fmt.Errorf("rope: RotDim must be positive and even, got %d", p.RotDim)
	}
	if p.RotDim > p.HeadSize {
		return fmt.Errorf("rope: RotDim (%d) exceeds HeadSize (%d)", p.RotDim, p.HeadSize)
	}
	if p.NumHeads <= 0 || p.NumKVHeads <= 0 {
		return fmt.Errorf("rope: head counts must be positive, got %d query / %d key", p.NumHeads, p.NumKVHeads)
	}
	if p.QueryStride < p.NumHeads*p.HeadSize {
		return fmt.Errorf("rope: QueryStride (%d) smaller than %d heads x %d", p.QueryStride, p.NumHeads, p.HeadSize)
	}
	if p.KeyStride < p.NumKVHeads*p.HeadSize {
		return fmt.Errorf("rope: KeyStride (%d) smaller than %d heads x %d", p.KeyStride, p.NumKVHeads, p.HeadSize)
	}

	numTokens := len(positions)
	if numTokens == 0 {
		return nil
	}

	// The last token only needs its head region, not a full stride.
	needQ := (numTokens-1)*p.QueryStride + p.NumHeads*p.HeadSize
	if queryLen < needQ {
		return fmt.Errorf("rope: query buffer holds %d elements, need %d for %d tokens", queryLen, needQ, numTokens)
	}
	needK := (numTokens-1)*p.KeyStride + p.NumKVHeads*p.HeadSize
	if keyLen < needK {
		return fmt.Errorf("rope: key buffer holds %d elements, need %d for %d tokens", keyLen, needK, numTokens)
	}

	var maxPos int64
	for _, pos := range positions {
		if pos < 0 {
			return fmt.Errorf("rope: negative position %d", pos)
		}
		if pos > maxPos {
			maxPos = pos
		}
	}
	if need := (int(maxPos) + 1) * p.RotDim; cacheLen < need {
		return fmt.Errorf("rope: angle cache holds %d elements, need %d for position %d", cacheLen, need, maxPos)
	}

	return nil
}
