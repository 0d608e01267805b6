package cron

import "context"

// Job 带有元数据的定时任务
type Job interface {
	Name() string
	Description() string
	Spec() string
	// Run 的 ctx 在服务停止时取消
	Run(ctx context.Context) error
}

// BaseJob 提供基础字段封装
type BaseJob struct {
	JobName string
	JobSpec string
	JobDesc string
}

func (b *BaseJob) Name() string        { return b.JobName }
func (b *BaseJob) Spec() string        { return b.JobSpec }
func (b *BaseJob) Description() string { return b.JobDesc }
