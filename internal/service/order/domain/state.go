package domain

// Status 是订单的生命周期状态。
type Status string

const (
	StatusCreated Status = "CREATED"
	StatusPlaced  Status = "PLACED"
	StatusFailed  Status = "FAILED"
)
