package solve

// RowIndex maps a piece index to the sorted list of rows in a bucket
// containing it, per spec.md §4.6's "rows_by_piece".
type RowIndex map[int32][]int

// BuildRowIndex builds rows_by_piece for a bucket's rows. Rows are
// scanned in ascending order, so each piece's row list is already
// ascending by construction.
func BuildRowIndex(rows [][]int32) RowIndex {
	idx := make(RowIndex)
	for r, row := range rows {
		for _, x := range row {
			idx[x] = append(idx[x], r)
		}
	}
	return idx
}
