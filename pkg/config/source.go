package config

import (
	"crypto/md5"
	"fmt"
	"time"
)

// ChangeSet 一次配置读取的原始内容
type ChangeSet struct {
	Data      []byte
	Checksum  string
	Format    string
	Source    string
	Timestamp time.Time
}

// Sum 计算配置内容的校验和
func (c *ChangeSet) Sum() string {
	h := md5.New()
	h.Write(c.Data)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Source 配置来源
type Source interface {
	// Read 读取完整配置
	Read() (*ChangeSet, error)

	// Watch 监听配置变更，变更时回调新的ChangeSet
	Watch(fn func(*ChangeSet)) error

	// String 来源名称
	String() string
}
