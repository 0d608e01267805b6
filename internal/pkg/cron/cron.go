package cron

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// Cron 表达式
var (
	EveryMinuteSpec      = "0 * * * * *" // 每分钟
	EveryFiveMinutesSpec = "0 */5 * * * *"
	DailySpec            = "0 0 0 * * *" // 每天
	DailyAt              = func(hour, minute, second int) string {
		return fmt.Sprintf("%d %d %d * * *", second, minute, hour)
	} // 每天指定时间
)

// Server 定时任务服务，独立于请求处理协程运行，实现 transport.Server
type Server struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	log    *log.Helper
}

func NewServer(logger log.Logger) *Server {
	helper := log.NewHelper(log.With(logger, "module", "cron"))
	adapter := &cronLogger{log: helper}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		// WithSeconds 让表达式支持秒级；同一任务上一次未结束时跳过本次
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(adapter),
			cron.WithChain(cron.SkipIfStillRunning(adapter)),
		),
		ctx:    ctx,
		cancel: cancel,
		log:    helper,
	}
}

// AddJob 注册任务，表达式非法时返回错误
func (s *Server) AddJob(job Job) error {
	if _, err := s.cron.AddJob(job.Spec(), s.makeSafe(job)); err != nil {
		return fmt.Errorf("cron: register job %s with spec %q: %w", job.Name(), job.Spec(), err)
	}
	s.log.Infof("[Cron] 已注册任务: [%s] 频率: [%s] 描述: %s", job.Name(), job.Spec(), job.Description())
	return nil
}

// Len 已注册的任务数
func (s *Server) Len() int {
	return len(s.cron.Entries())
}

// makeSafe 封装 Recovery 和日志记录
func (s *Server) makeSafe(j Job) cron.Job {
	return cron.FuncJob(func() {
		s.RunNow(j)
	})
}

// RunNow 立即执行一次任务，panic 与错误只记录日志
func (s *Server) RunNow(j Job) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("[Cron] 任务 %s 发生 Panic: %v\n%s", j.Name(), r, debug.Stack())
		}
	}()

	start := time.Now()
	if err := j.Run(s.ctx); err != nil {
		s.log.Errorf("[Cron] 任务 %s 执行失败, 耗时: %v, err: %v", j.Name(), time.Since(start), err)
		return
	}
	s.log.Infof("[Cron] 任务 %s 执行完成, 耗时: %v", j.Name(), time.Since(start))
}

func (s *Server) Start(ctx context.Context) error {
	s.cron.Start()
	return nil
}

// Stop 停止调度并取消正在执行的任务，等待其退出或 ctx 超时
func (s *Server) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger 将 robfig/cron 的日志接入 kratos log
type cronLogger struct {
	log *log.Helper
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(append([]interface{}{"msg", msg}, keysAndValues...)...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(append([]interface{}{"msg", msg, "err", err}, keysAndValues...)...)
}
