package store

// coversPos returns a predicate on the range columns of alias that holds
// when (line, col) lies inside the range, end inclusive. It takes the
// arguments line, line, col, line, line, col.
func coversPos(alias string) string {
	a := alias + "."
	return "(" + a + "start_line < ? OR (" + a + "start_line = ? AND " + a + "start_col <= ?)) AND (" +
		a + "end_line > ? OR (" + a + "end_line = ? AND " + a + "end_col >= ?))"
}
