package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrBookingOverlap 数据库排他约束拒绝了重叠预约（并发写入兜底）
var ErrBookingOverlap = errors.New("所选时间段已被占用")

// ErrDuplicateKey 唯一约束冲突
var ErrDuplicateKey = errors.New("记录已存在")
