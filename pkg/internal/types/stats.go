package types

// StatsStatusItem 按状态聚合（状态为观察语义，过期未固化的记录计入 EXPIRED）.
type StatsStatusItem struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
	Size   int64  `json:"size"`
}

// TransferStatsResponse 传输总体统计.
type TransferStatsResponse struct {
	TotalTransfers int64             `json:"total_transfers"`
	TotalSize      int64             `json:"total_size"`
	TotalDownloads int64             `json:"total_downloads"`
	ByStatus       []StatsStatusItem `json:"by_status"`
}
