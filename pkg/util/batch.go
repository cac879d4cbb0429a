package util

// Batch 将切片按固定大小拆分，最后一批可能小于 batchSize。
// 返回的各批共享 items 的底层数组，调用方不应修改。
func Batch[T any](items []T, batchSize int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 || batchSize > len(items) {
		batchSize = len(items)
	}
	result := make([][]T, 0, (len(items)+batchSize-1)/batchSize)
	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		result = append(result, items[start:end:end])
	}
	return result
}
