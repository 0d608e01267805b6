package snowflake

/*
ID 结构组成（64位）
	1位 符号位：固定为 0
	41位 时间戳：毫秒级
	10位 工作机器 ID：最多 1024 个节点
	12位 序列号：每毫秒 4096 个
*/

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/idgen"
)

const (
	defaultEpoch int64 = 1767225600000 // 2026-01-01

	workerIDBits   = 10
	sequenceBits   = 12
	maxWorkerID    = -1 ^ (-1 << workerIDBits)
	maxSequence    = -1 ^ (-1 << sequenceBits)
	timestampShift = sequenceBits + workerIDBits

	// 时钟回拨容忍
	maxBackoffMS int64 = 5
)

var ErrClockMovedBackwards = errors.New("snowflake: clock moved backwards")

var _ idgen.IDGenerator = (*Snowflake)(nil)

type Snowflake struct {
	mu       sync.Mutex
	lastTS   int64
	seq      int64
	epoch    int64
	workerID int64
	now      func() int64
}

type Option func(*Snowflake)

func WithEpoch(epoch int64) Option {
	return func(s *Snowflake) {
		s.epoch = epoch
	}
}

func NewSnowflake(workerID int64, opts ...Option) (*Snowflake, error) {
	if workerID < 0 || workerID > maxWorkerID {
		return nil, fmt.Errorf("snowflake: worker id %d out of range [0, %d]", workerID, maxWorkerID)
	}
	s := &Snowflake{
		workerID: workerID,
		epoch:    defaultEpoch,
		now:      func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Snowflake) NextID() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now < s.lastTS {
		offset := s.lastTS - now
		if offset > maxBackoffMS {
			return 0, ErrClockMovedBackwards
		}
		time.Sleep(time.Duration(offset) * time.Millisecond)
		now = s.now()
	}

	if now == s.lastTS {
		s.seq = (s.seq + 1) & maxSequence
		if s.seq == 0 {
			// 本毫秒序列号用尽，等待下一毫秒
			for now <= s.lastTS {
				now = s.now()
			}
		}
	} else {
		s.seq = 0
	}
	s.lastTS = now

	return (now-s.epoch)<<timestampShift | s.workerID<<sequenceBits | s.seq, nil
}
